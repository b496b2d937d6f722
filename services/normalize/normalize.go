// Package normalize turns raw scraper rows into canonical records: one
// vocabulary for club, country and competition names across all sources,
// with duplicates collapsed and malformed rows dropped.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"uefadata-backend/lib/scrapers/kassiesa"
	"uefadata-backend/lib/scrapers/uefaapi"
	"uefadata-backend/lib/textutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/normalize")

// ParseError describes a single raw record that could not be coerced
// into a canonical one. Records failing this way are dropped and
// logged, never fatal.
type ParseError struct {
	Source string
	Year   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s year %d: %s", e.Source, e.Year, e.Reason)
}

// Canonical competition names. UEFA Cup seasons fold into Europa League
// so the dashboard sees one continuous competition.
const (
	CompetitionNone       = ""
	CompetitionChampions  = "Champions League"
	CompetitionEuropa     = "Europa League"
	CompetitionConference = "Conference League"
)

// CanonicalCompetition maps a raw competition label, from either a
// kassiesa cup header ("Champions' League 2023/24", "UEFA Cup") or a
// coefficients API display name ("UEFA Champions League"), onto the
// canonical name. Unrecognized labels pass through cleaned.
func CanonicalCompetition(raw string) string {
	s := textutil.CleanCell(raw)
	if s == "" {
		return CompetitionNone
	}
	upper := strings.ToUpper(s)
	switch {
	case strings.Contains(upper, "UEFA CUP"):
		return CompetitionEuropa
	case strings.Contains(upper, "EUROPA"):
		return CompetitionEuropa
	case strings.Contains(upper, "CHAMPION"):
		return CompetitionChampions
	case strings.Contains(upper, "CONFERENCE"):
		return CompetitionConference
	}
	return s
}

// cupCodes maps the abbreviated cup column of the club details pages.
var cupCodes = map[string]string{
	"cl":   CompetitionChampions,
	"ucl":  CompetitionChampions,
	"el":   CompetitionEuropa,
	"uel":  CompetitionEuropa,
	"uc":   CompetitionEuropa,
	"conf": CompetitionConference,
	"uecl": CompetitionConference,
	"ecl":  CompetitionConference,
}

func competitionFromCup(raw string) string {
	s := textutil.CleanCell(raw)
	if canonical, ok := cupCodes[strings.ToLower(s)]; ok {
		return canonical
	}
	return CanonicalCompetition(s)
}

// Aliases maps alternate spellings onto canonical names. Keys are
// matched after textutil.NormalizeName so casing, diacritics and
// punctuation differences never require their own alias entry.
type Aliases struct {
	Clubs     map[string]string `json:"clubs"`
	Countries map[string]string `json:"countries"`
}

type Resolver struct {
	clubs     map[string]string
	countries map[string]string
}

func NewResolver(aliases Aliases) *Resolver {
	r := &Resolver{
		clubs:     map[string]string{},
		countries: map[string]string{},
	}
	for alias, canonical := range aliases.Clubs {
		r.clubs[textutil.NormalizeName(alias)] = textutil.CleanCell(canonical)
	}
	for alias, canonical := range aliases.Countries {
		r.countries[textutil.NormalizeName(alias)] = textutil.CleanCell(canonical)
	}
	return r
}

// Club resolves a raw club name to its canonical spelling. Names
// without an alias entry pass through cleaned.
func (r *Resolver) Club(raw string) string {
	name := textutil.CleanCell(raw)
	if canonical, ok := r.clubs[textutil.NormalizeName(name)]; ok {
		return canonical
	}
	return name
}

func (r *Resolver) Country(raw string) string {
	name := textutil.CleanCell(raw)
	if canonical, ok := r.countries[textutil.NormalizeName(name)]; ok {
		return canonical
	}
	return name
}

// Match is one canonical match leg.
type Match struct {
	Season      int
	Competition string
	Stage       string
	Leg         int
	Home        string
	HomeCountry string
	Away        string
	AwayCountry string
	Score       string
	HomeGoals   *int
	AwayGoals   *int
	// Winner is the canonical name of the leg winner, "draw" when the
	// leg ended level, empty when goals are unknown.
	Winner string
	// TwoLegWinner is set on leg 1 of a two-legged tie only.
	TwoLegWinner string
}

const WinnerDraw = "draw"

func matchIdentity(m Match) string {
	return fmt.Sprintf("%d|%s|%s|%d|%s|%s|%s",
		m.Season, m.Competition, m.Stage, m.Leg,
		textutil.NormalizeName(m.Home), textutil.NormalizeName(m.Away), m.Score)
}

// Matches normalizes raw match rows: alias resolution, competition
// folding, per-leg winner computation, duplicate collapse. Rows with a
// missing team or competition are dropped with a warning.
func Matches(ctx context.Context, rows []kassiesa.MatchRow, resolver *Resolver) []Match {
	ctx, span := tracer.Start(ctx, "Matches")
	defer span.End()

	var out []Match
	seen := map[string]bool{}
	dropped := 0
	for _, row := range rows {
		m, err := normalizeMatch(row, resolver)
		if err != nil {
			dropped++
			slog.WarnContext(ctx, "dropping malformed match row",
				"source", kassiesa.SourceMatches,
				"year", row.Year,
				"err", err,
			)
			continue
		}
		id := matchIdentity(m)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, m)
	}

	span.SetAttributes(
		attribute.Int("rows", len(rows)),
		attribute.Int("records", len(out)),
		attribute.Int("dropped", dropped),
	)
	return out
}

func normalizeMatch(row kassiesa.MatchRow, resolver *Resolver) (Match, error) {
	home := resolver.Club(row.Home)
	away := resolver.Club(row.Away)
	if home == "" || away == "" {
		return Match{}, &ParseError{
			Source: kassiesa.SourceMatches,
			Year:   row.Year,
			Reason: fmt.Sprintf("missing team name in %q vs %q", row.Home, row.Away),
		}
	}
	competition := CanonicalCompetition(row.Cup)
	if competition == CompetitionNone {
		return Match{}, &ParseError{
			Source: kassiesa.SourceMatches,
			Year:   row.Year,
			Reason: fmt.Sprintf("row %q vs %q has no competition header", home, away),
		}
	}
	if row.Leg != 1 && row.Leg != 2 {
		return Match{}, &ParseError{
			Source: kassiesa.SourceMatches,
			Year:   row.Year,
			Reason: fmt.Sprintf("leg %d out of range", row.Leg),
		}
	}

	m := Match{
		Season:      row.Year,
		Competition: competition,
		Stage:       textutil.CleanCell(row.Stage),
		Leg:         row.Leg,
		Home:        home,
		HomeCountry: strings.ToUpper(textutil.CleanCell(row.HomeCountry)),
		Away:        away,
		AwayCountry: strings.ToUpper(textutil.CleanCell(row.AwayCountry)),
		Score:       textutil.CleanCell(row.Score),
		HomeGoals:   row.HomeGoals,
		AwayGoals:   row.AwayGoals,
	}
	if row.HomeGoals != nil && row.AwayGoals != nil {
		switch {
		case *row.HomeGoals > *row.AwayGoals:
			m.Winner = home
		case *row.HomeGoals < *row.AwayGoals:
			m.Winner = away
		default:
			m.Winner = WinnerDraw
		}
	}
	if row.Leg == 1 && row.TwoLegWinner != "" {
		m.TwoLegWinner = resolver.Club(row.TwoLegWinner)
	}
	return m, nil
}

// CountryRank is one canonical country ranking row for a season.
type CountryRank struct {
	Season        int
	Country       string
	Position      int
	SeasonPoints  float64
	OverallPoints float64
	Teams         int
}

// CountryRankings normalizes raw country ranking rows.
func CountryRankings(ctx context.Context, rows []kassiesa.CountryRow, resolver *Resolver) []CountryRank {
	ctx, span := tracer.Start(ctx, "CountryRankings")
	defer span.End()

	var out []CountryRank
	seen := map[string]bool{}
	dropped := 0
	for _, row := range rows {
		country := resolver.Country(row.Country)
		if country == "" || row.Position <= 0 {
			dropped++
			slog.WarnContext(ctx, "dropping malformed country ranking row",
				"source", kassiesa.SourceCountries,
				"year", row.Year,
				"country", row.Country,
				"position", row.Position,
			)
			continue
		}
		id := fmt.Sprintf("%d|%s", row.Year, textutil.NormalizeName(country))
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, CountryRank{
			Season:        row.Year,
			Country:       country,
			Position:      row.Position,
			SeasonPoints:  row.SeasonPoints,
			OverallPoints: row.TotalPoints,
			Teams:         row.Teams,
		})
	}

	span.SetAttributes(
		attribute.Int("rows", len(rows)),
		attribute.Int("records", len(out)),
		attribute.Int("dropped", dropped),
	)
	return out
}

// ClubSeason is one club's canonical per-season campaign record from
// the club details pages: its qualifying and final tournament results
// and the coefficient points they earned.
type ClubSeason struct {
	Season       int
	Club         string
	Country      string
	CountryTeams int
	Competition  string
	Position     int
	QualWins     int
	QualDraws    int
	QualLosses   int
	FinalWins    int
	FinalDraws   int
	FinalLosses  int
	Bonus        float64
	Points       float64
}

// ClubSeasons normalizes raw club season rows. Rows without a club
// name are dropped; a club appearing twice in one year keeps its first
// row.
func ClubSeasons(ctx context.Context, rows []kassiesa.ClubSeasonRow, resolver *Resolver) []ClubSeason {
	ctx, span := tracer.Start(ctx, "ClubSeasons")
	defer span.End()

	var out []ClubSeason
	seen := map[string]bool{}
	dropped := 0
	for _, row := range rows {
		club := resolver.Club(row.Club)
		if club == "" {
			dropped++
			slog.WarnContext(ctx, "dropping club season row without club name",
				"source", kassiesa.SourceClubSeasons,
				"year", row.Year,
				"country", row.Country,
			)
			continue
		}
		id := fmt.Sprintf("%d|%s", row.Year, textutil.NormalizeName(club))
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, ClubSeason{
			Season:       row.Year,
			Club:         club,
			Country:      resolver.Country(row.Country),
			CountryTeams: row.CountryTeams,
			Competition:  competitionFromCup(row.Cup),
			Position:     row.Position,
			QualWins:     row.QualWins,
			QualDraws:    row.QualDraws,
			QualLosses:   row.QualLosses,
			FinalWins:    row.FinalWins,
			FinalDraws:   row.FinalDraws,
			FinalLosses:  row.FinalLosses,
			Bonus:        row.Bonus,
			Points:       row.Points,
		})
	}

	span.SetAttributes(
		attribute.Int("rows", len(rows)),
		attribute.Int("records", len(out)),
		attribute.Int("dropped", dropped),
	)
	return out
}

// ClubCoefficient is one club's coefficient entry for a season.
type ClubCoefficient struct {
	Season        int
	ClubID        int64
	Club          string
	TeamCode      string
	AssociationID int64
	CountryCode   string
	Competition   string
	SeasonPoints  float64
	SeasonMatches int
	OverallPoints float64
	Position      int
	LogoURL       string
}

// ClubCoefficients normalizes club coefficient members for one season
// year. Members without a season ranking for the year contribute zero
// season points (they still pin the club's overall standing), matching
// the upstream feed.
func ClubCoefficients(ctx context.Context, members []uefaapi.Member, year int, resolver *Resolver) []ClubCoefficient {
	ctx, span := tracer.Start(ctx, "ClubCoefficients")
	defer span.End()

	var out []ClubCoefficient
	seen := map[int64]bool{}
	dropped := 0
	for _, member := range members {
		if member.Member.ID == 0 || member.Name() == "" {
			dropped++
			slog.WarnContext(ctx, "dropping club member without identity",
				"source", uefaapi.SourceClubCoefficients,
				"year", year,
			)
			continue
		}
		if seen[member.Member.ID] {
			continue
		}
		seen[member.Member.ID] = true

		record := ClubCoefficient{
			Season:        year,
			ClubID:        member.Member.ID,
			Club:          resolver.Club(member.Name()),
			TeamCode:      member.Member.DisplayTeamCode,
			AssociationID: member.Member.AssociationID,
			CountryCode:   strings.ToUpper(member.Member.CountryCode),
			Competition:   CanonicalCompetition(member.Competition.DisplayName),
			OverallPoints: member.OverallRanking.TotalValue,
			Position:      member.OverallRanking.Position,
			LogoURL:       member.Member.LogoURL,
		}
		if season, ok := member.Season(year); ok && record.Competition != CompetitionNone {
			record.SeasonPoints = season.TotalValue
			record.SeasonMatches = int(season.NumberOfMatches)
		}
		out = append(out, record)
	}

	span.SetAttributes(
		attribute.Int("members", len(members)),
		attribute.Int("records", len(out)),
		attribute.Int("dropped", dropped),
	)
	return out
}

// CountryCoefficient is one association's coefficient entry for a
// season.
type CountryCoefficient struct {
	Season        int
	AssociationID int64
	CountryCode   string
	Country       string
	Position      int
	SeasonPoints  float64
	OverallPoints float64
	Teams         int
}

// CountryCoefficients normalizes association coefficient members for
// one season year.
func CountryCoefficients(ctx context.Context, members []uefaapi.Member, year int, resolver *Resolver) []CountryCoefficient {
	ctx, span := tracer.Start(ctx, "CountryCoefficients")
	defer span.End()

	var out []CountryCoefficient
	seen := map[int64]bool{}
	dropped := 0
	for _, member := range members {
		id := member.Member.AssociationID
		if id == 0 {
			id = member.Member.ID
		}
		if id == 0 || member.Name() == "" {
			dropped++
			slog.WarnContext(ctx, "dropping association member without identity",
				"source", uefaapi.SourceCountryCoefficients,
				"year", year,
			)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		record := CountryCoefficient{
			Season:        year,
			AssociationID: id,
			CountryCode:   strings.ToUpper(member.Member.CountryCode),
			Country:       resolver.Country(member.Name()),
			Position:      member.OverallRanking.Position,
			OverallPoints: member.OverallRanking.TotalPoints,
			Teams:         member.OverallRanking.NumberOfTeams,
		}
		if record.OverallPoints == 0 {
			record.OverallPoints = member.OverallRanking.TotalValue
		}
		if season, ok := member.Season(year); ok {
			record.SeasonPoints = season.TotalValue
			if record.SeasonPoints == 0 {
				record.SeasonPoints = season.TotalPoints
			}
		}
		out = append(out, record)
	}

	span.SetAttributes(
		attribute.Int("members", len(members)),
		attribute.Int("records", len(out)),
		attribute.Int("dropped", dropped),
	)
	return out
}
