package kassiesa

import (
	"regexp"
	"strconv"
	"strings"

	"uefadata-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// CountryRow is one country's line on a per-year ranking page.
type CountryRow struct {
	Year         int
	Position     int
	Country      string
	SeasonPoints float64
	TotalPoints  float64
	Teams        int
}

var numberRegex = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
var intRegex = regexp.MustCompile(`\d+`)

// lastNumber pulls the trailing numeric value out of a cell like
// "2018-2020 7.500".
func lastNumber(cell string) (float64, bool) {
	nums := numberRegex.FindAllString(cell, -1)
	if len(nums) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(nums[len(nums)-1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func firstInt(cell string) (int, bool) {
	m := intRegex.FindString(cell)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCountryRankingPage reads the country ranking table for one year.
// The header labels columns; between "country" and "ranking" sit one
// seasonal points column per counted season, of which only the page's
// own season matters here.
func ParseCountryRankingPage(markup string, year int) ([]CountryRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	var rows []CountryRow
	doc.Find("table.t1").Each(func(_ int, table *goquery.Selection) {
		labels := headerLabels(table)
		countryIdx := labelIndex(labels, "country")
		rankingIdx := labelIndex(labels, "ranking")
		if rankingIdx < 0 {
			rankingIdx = labelIndex(labels, "rank")
		}
		if countryIdx < 0 || rankingIdx < 0 || rankingIdx <= countryIdx+1 {
			return
		}
		seasonIdx := rankingIdx - 1

		table.Find("tr.countryline").Each(func(_ int, tr *goquery.Selection) {
			tds := tr.Find("td")
			if tds.Length() <= rankingIdx {
				return
			}

			row := CountryRow{Year: year}
			row.Country = cellText(tds.Eq(countryIdx))
			if row.Country == "" {
				return
			}
			if pos, ok := firstInt(cellText(tds.Eq(0))); ok {
				row.Position = pos
			}
			if pts, ok := lastNumber(cellText(tds.Eq(seasonIdx))); ok {
				row.SeasonPoints = pts
			}
			if total, ok := lastNumber(cellText(tds.Eq(rankingIdx))); ok {
				row.TotalPoints = total
			}
			if teams, ok := firstInt(cellText(tds.Eq(tds.Length() - 1))); ok {
				row.Teams = teams
			}
			rows = append(rows, row)
		})
	})

	return rows, nil
}

// headerLabels expands the colspans of the header row so that label
// indexes line up with td indexes in the country lines.
func headerLabels(table *goquery.Selection) []string {
	var labels []string
	header := table.Find("tr.countryheader").First()
	header.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
		span := 1
		if cs, ok := cell.Attr("colspan"); ok {
			if v, err := strconv.Atoi(cs); err == nil && v > 1 {
				span = v
			}
		}
		for i := 0; i < span-1; i++ {
			labels = append(labels, "")
		}
		labels = append(labels, cellText(cell))
	})
	return labels
}

func labelIndex(labels []string, name string) int {
	for i, l := range labels {
		if strings.EqualFold(strings.TrimSpace(l), name) {
			return i
		}
	}
	for i, l := range labels {
		if textutil.MatchName(l, []string{name}) {
			return i
		}
	}
	return -1
}
