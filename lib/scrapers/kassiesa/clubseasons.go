package kassiesa

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ClubSeasonRow is one club's line on a per-year club details page:
// its qualifying and final tournament record plus the coefficient
// points earned that season. Names are raw site spellings.
type ClubSeasonRow struct {
	Year         int
	Country      string
	CountryTeams int
	Position     int
	Club         string
	Cup          string
	QualWins     int
	QualDraws    int
	QualLosses   int
	FinalWins    int
	FinalDraws   int
	FinalLosses  int
	Bonus        float64
	Points       float64
}

var teamsRegex = regexp.MustCompile(`(\d+)\s*teams?`)

// ParseClubSeasonPage reads the per-club details table for one year.
// Clubs are grouped under country separator lines carrying the country
// name in bold and its team count; per-country total lines are
// skipped.
func ParseClubSeasonPage(markup string, year int) ([]ClubSeasonRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	var rows []ClubSeasonRow
	currentCountry := ""
	currentTeams := 0

	doc.Find("table.t1").Each(func(_ int, table *goquery.Selection) {
		labels := headerLabels(table)
		col := func(name string, fallback int) int {
			if i := labelIndex(labels, name); i >= 0 {
				return i
			}
			return fallback
		}
		posIdx := col("pos", 0)
		clubIdx := col("club", 1)
		cupIdx := col("cup", 2)
		qualWinIdx := col("qw", 3)
		qualDrawIdx := col("qd", 4)
		qualLossIdx := col("ql", 5)
		finalWinIdx := col("#w", 6)
		finalDrawIdx := col("#d", 7)
		finalLossIdx := col("#l", 8)
		bonusIdx := col("bonus", 9)
		pointsIdx := col("points", 10)

		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			if tr.HasClass("countryheader") {
				return
			}
			if tr.HasClass("countryline") {
				currentCountry = cellText(tr.Find("b").First())
				if currentCountry == "" {
					currentCountry = cellText(tr.Find("td").First())
				}
				currentTeams = 0
				if m := teamsRegex.FindStringSubmatch(cellText(tr)); m != nil {
					currentTeams, _ = firstInt(m[1])
				}
				return
			}

			tds := tr.Find("td")
			if tds.Length() <= pointsIdx {
				return
			}
			club := cellText(tds.Eq(clubIdx))
			if club == "" || strings.HasPrefix(strings.ToLower(club), "total") {
				return
			}

			row := ClubSeasonRow{
				Year:         year,
				Country:      currentCountry,
				CountryTeams: currentTeams,
				Club:         club,
				Cup:          cellText(tds.Eq(cupIdx)),
			}
			count := func(idx int) int {
				v, _ := firstInt(cellText(tds.Eq(idx)))
				return v
			}
			row.Position = count(posIdx)
			row.QualWins = count(qualWinIdx)
			row.QualDraws = count(qualDrawIdx)
			row.QualLosses = count(qualLossIdx)
			row.FinalWins = count(finalWinIdx)
			row.FinalDraws = count(finalDrawIdx)
			row.FinalLosses = count(finalLossIdx)
			if v, ok := lastNumber(cellText(tds.Eq(bonusIdx))); ok {
				row.Bonus = v
			}
			if v, ok := lastNumber(cellText(tds.Eq(pointsIdx))); ok {
				row.Points = v
			}
			rows = append(rows, row)
		})
	})

	return rows, nil
}
