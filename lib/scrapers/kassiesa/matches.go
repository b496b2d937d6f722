package kassiesa

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MatchRow is one leg of a tie as printed on a kassiesa match page.
// Team names and country codes are raw site spellings; normalization
// happens downstream.
type MatchRow struct {
	Year        int
	Cup         string
	Stage       string
	Leg         int
	Home        string
	HomeCountry string
	Away        string
	AwayCountry string
	Score       string
	HomeGoals   *int
	AwayGoals   *int
	// TwoLegWinner carries the bolded team's raw name, only on leg 1
	// of a two-legged tie.
	TwoLegWinner string
}

var scoreRegex = regexp.MustCompile(`^\s*(\d+)\s*[-–]\s*(\d+)\s*$`)

// ParseScore splits "2-1" (or "2–1") into goals. Returns nils for
// anything else: walkovers, byes, unplayed legs.
func ParseScore(s string) (*int, *int) {
	m := scoreRegex.FindStringSubmatch(s)
	if m == nil {
		return nil, nil
	}
	home, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, nil
	}
	away, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, nil
	}
	return &home, &away
}

// ParseMatchPage extracts both legs of every tie on a per-year match
// page. Competition and stage headers sit in <th> rows interleaved with
// the match rows, so state carries across tables.
func ParseMatchPage(markup string, year int) ([]MatchRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	var rows []MatchRow
	currentCup := ""
	currentStage := ""

	doc.Find("table.t1").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			if th := tr.Find("th"); th.Length() > 0 {
				if cup := th.Find("div.cupheader"); cup.Length() > 0 {
					currentCup = cellText(cup)
					currentStage = ""
					return
				}
				if round := th.Find("div.roundheader"); round.Length() > 0 {
					currentStage = cellText(round)
					return
				}
			}

			tds := tr.Find("td")
			if tds.Length() < 4 {
				return
			}

			homeCell := tds.Eq(0)
			awayCell := tds.Eq(2)
			home := cellText(homeCell)
			homeCountry := cellText(tds.Eq(1))
			away := cellText(awayCell)
			awayCountry := cellText(tds.Eq(3))
			if home == "" && away == "" {
				return
			}

			leg1Text := ""
			leg2Text := ""
			if tds.Length() > 4 {
				leg1Text = cellText(tds.Eq(4))
			}
			if tds.Length() > 5 {
				leg2Text = cellText(tds.Eq(5))
			}

			homeBold := homeCell.Find("b").Length() > 0
			awayBold := awayCell.Find("b").Length() > 0
			twoLegWinner := ""
			if homeBold && !awayBold {
				twoLegWinner = home
			} else if awayBold && !homeBold {
				twoLegWinner = away
			}

			leg1Home, leg1Away := ParseScore(leg1Text)
			row1 := MatchRow{
				Year:        year,
				Cup:         currentCup,
				Stage:       currentStage,
				Leg:         1,
				Home:        home,
				HomeCountry: homeCountry,
				Away:        away,
				AwayCountry: awayCountry,
				Score:       leg1Text,
				HomeGoals:   leg1Home,
				AwayGoals:   leg1Away,
			}
			if leg2Text != "" {
				row1.TwoLegWinner = twoLegWinner
			}
			rows = append(rows, row1)

			if leg2Text == "" {
				return
			}

			// the printed leg 2 score is still in tie order, so home
			// and away swap along with the goals
			leg2First, leg2Second := ParseScore(leg2Text)
			score2 := leg2Text
			if leg2First != nil && leg2Second != nil {
				score2 = fmt.Sprintf("%d-%d", *leg2Second, *leg2First)
			}
			rows = append(rows, MatchRow{
				Year:        year,
				Cup:         currentCup,
				Stage:       currentStage,
				Leg:         2,
				Home:        away,
				HomeCountry: awayCountry,
				Away:        home,
				AwayCountry: homeCountry,
				Score:       score2,
				HomeGoals:   leg2Second,
				AwayGoals:   leg2First,
			})
		})
	})

	return rows, nil
}
