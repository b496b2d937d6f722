package starschema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"uefadata-backend/lib/textutil"
	"uefadata-backend/services/normalize"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/starschema")

// IntegrityError reports a fact row pointing at a dimension member that
// does not exist. The build stops at the first one so bad keys never
// reach the output files.
type IntegrityError struct {
	Table      string
	Reference  string
	Name       string
	Season     int
	Suggestion string
}

func (e *IntegrityError) Error() string {
	msg := fmt.Sprintf(
		"%s season %d references unknown %s %q",
		e.Table, e.Season, e.Reference, e.Name,
	)
	if e.Suggestion != "" {
		msg += fmt.Sprintf("; closest known name is %q", e.Suggestion)
	}
	return msg
}

// nearestName finds the closest known name, for the error message only.
// Key assignment never fuzzy-matches.
func nearestName(name string, known []string) string {
	var mostSimilarity float64
	var mostSimilar string
	for _, candidate := range known {
		similarity := matchr.JaroWinkler(name, candidate, false)
		if similarity > mostSimilarity {
			mostSimilarity = similarity
			mostSimilar = candidate
		}
	}
	return mostSimilar
}

// Builder accumulates canonical records and assembles them into a
// Schema. Keys are assigned at Build time from the sorted set of
// identities, so the same records always yield the same keys no matter
// the order they were added in.
type Builder struct {
	matches       []normalize.Match
	ranks         []normalize.CountryRank
	clubSeasons   []normalize.ClubSeason
	clubCoeffs    []normalize.ClubCoefficient
	countryCoeffs []normalize.CountryCoefficient
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) AddMatches(records []normalize.Match) {
	b.matches = append(b.matches, records...)
}

func (b *Builder) AddCountryRankings(records []normalize.CountryRank) {
	b.ranks = append(b.ranks, records...)
}

func (b *Builder) AddClubSeasons(records []normalize.ClubSeason) {
	b.clubSeasons = append(b.clubSeasons, records...)
}

func (b *Builder) AddClubCoefficients(records []normalize.ClubCoefficient) {
	b.clubCoeffs = append(b.clubCoeffs, records...)
}

func (b *Builder) AddCountryCoefficients(records []normalize.CountryCoefficient) {
	b.countryCoeffs = append(b.countryCoeffs, records...)
}

type countryIdentity struct {
	name          string
	code          string
	rankSeason    int
	rank          int32
	overallPoints float64
}

type clubIdentity struct {
	name     string
	code     string
	country  string
	teamCode string
	logoURL  string
}

// Build assigns surrogate keys, validates every foreign key and returns
// the finished schema. The first dangling reference aborts with an
// IntegrityError.
func (b *Builder) Build(ctx context.Context) (*Schema, error) {
	_, span := tracer.Start(ctx, "Build")
	defer span.End()

	schema := &Schema{}

	countryKeys, codeKeys := b.buildCountries(schema)
	clubKeys := b.buildClubs(schema, codeKeys, countryKeys)
	competitionKeys := b.buildCompetitions(schema)
	stageKeys := b.buildStages(schema)
	b.buildSeasons(schema)

	clubNames := make([]string, 0, len(schema.Clubs))
	for _, club := range schema.Clubs {
		clubNames = append(clubNames, club.Name)
	}

	clubKey := func(table, reference, name string, season int) (int32, error) {
		key, ok := clubKeys[textutil.NormalizeName(name)]
		if !ok {
			err := &IntegrityError{
				Table:      table,
				Reference:  reference,
				Name:       name,
				Season:     season,
				Suggestion: nearestName(name, clubNames),
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
		return key, nil
	}

	for _, m := range b.matches {
		homeKey, err := clubKey("fact_match", "home club", m.Home, m.Season)
		if err != nil {
			return nil, err
		}
		awayKey, err := clubKey("fact_match", "away club", m.Away, m.Season)
		if err != nil {
			return nil, err
		}

		stageKey := StageKeyUnknown
		if key, ok := stageKeys[textutil.NormalizeName(m.Stage)]; ok && m.Stage != "" {
			stageKey = key
		}
		row := MatchRow{
			SeasonKey:      int32(m.Season),
			CompetitionKey: competitionKeys[textutil.NormalizeName(m.Competition)],
			StageKey:       stageKey,
			Leg:            int32(m.Leg),
			HomeClubKey:    homeKey,
			AwayClubKey:    awayKey,
			Score:          m.Score,
			HomeGoals:      toInt32(m.HomeGoals),
			AwayGoals:      toInt32(m.AwayGoals),
		}
		switch m.Winner {
		case "":
		case normalize.WinnerDraw:
			row.Draw = true
		default:
			key, err := clubKey("fact_match", "winner club", m.Winner, m.Season)
			if err != nil {
				return nil, err
			}
			row.WinnerClubKey = &key
		}
		if m.TwoLegWinner != "" {
			key, err := clubKey("fact_match", "two-leg winner club", m.TwoLegWinner, m.Season)
			if err != nil {
				return nil, err
			}
			row.TwoLegWinnerClubKey = &key
		}
		schema.Matches = append(schema.Matches, row)
	}

	for _, c := range b.clubSeasons {
		key, err := clubKey("fact_club_season", "club", c.Club, c.Season)
		if err != nil {
			return nil, err
		}
		schema.ClubSeasons = append(schema.ClubSeasons, ClubSeasonRow{
			SeasonKey:      int32(c.Season),
			ClubKey:        key,
			CountryKey:     countryKeys[textutil.NormalizeName(c.Country)],
			CompetitionKey: competitionKeys[textutil.NormalizeName(c.Competition)],
			Position:       int32(c.Position),
			CountryTeams:   int32(c.CountryTeams),
			QualWins:       int32(c.QualWins),
			QualDraws:      int32(c.QualDraws),
			QualLosses:     int32(c.QualLosses),
			FinalWins:      int32(c.FinalWins),
			FinalDraws:     int32(c.FinalDraws),
			FinalLosses:    int32(c.FinalLosses),
			Bonus:          c.Bonus,
			Points:         c.Points,
		})
	}

	for _, c := range b.clubCoeffs {
		key, err := clubKey("fact_coefficient", "club", c.Club, c.Season)
		if err != nil {
			return nil, err
		}
		row := CoefficientRow{
			SeasonKey:     int32(c.Season),
			EntityType:    EntityClub,
			ClubKey:       &key,
			CountryKey:    codeKeys[strings.ToUpper(c.CountryCode)],
			SeasonPoints:  c.SeasonPoints,
			SeasonMatches: int32(c.SeasonMatches),
			OverallPoints: c.OverallPoints,
			Position:      int32(c.Position),
		}
		if c.Competition != normalize.CompetitionNone {
			competitionKey := competitionKeys[textutil.NormalizeName(c.Competition)]
			row.CompetitionKey = &competitionKey
		}
		schema.Coefficients = append(schema.Coefficients, row)
	}

	countryNames := make([]string, 0, len(schema.Countries))
	for _, country := range schema.Countries {
		countryNames = append(countryNames, country.Name)
	}
	for _, c := range b.countryCoeffs {
		key, ok := countryKeys[textutil.NormalizeName(c.Country)]
		if !ok {
			err := &IntegrityError{
				Table:      "fact_coefficient",
				Reference:  "country",
				Name:       c.Country,
				Season:     c.Season,
				Suggestion: nearestName(c.Country, countryNames),
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		schema.Coefficients = append(schema.Coefficients, CoefficientRow{
			SeasonKey:     int32(c.Season),
			EntityType:    EntityCountry,
			CountryKey:    key,
			SeasonPoints:  c.SeasonPoints,
			OverallPoints: c.OverallPoints,
			Position:      int32(c.Position),
		})
	}

	span.SetAttributes(
		attribute.Int("clubs", len(schema.Clubs)),
		attribute.Int("countries", len(schema.Countries)),
		attribute.Int("matches", len(schema.Matches)),
		attribute.Int("club_seasons", len(schema.ClubSeasons)),
		attribute.Int("coefficients", len(schema.Coefficients)),
	)
	return schema, nil
}

func toInt32(v *int) *int32 {
	if v == nil {
		return nil
	}
	out := int32(*v)
	return &out
}

// buildCountries merges country identities from ranking rows and
// association coefficients, keyed by normalized name. Rank and points
// attributes come from the newest season that carries them.
func (b *Builder) buildCountries(schema *Schema) (map[string]int32, map[string]int32) {
	identities := map[string]*countryIdentity{}
	upsert := func(name string) *countryIdentity {
		norm := textutil.NormalizeName(name)
		if identities[norm] == nil {
			identities[norm] = &countryIdentity{name: name}
		}
		return identities[norm]
	}

	for _, c := range b.countryCoeffs {
		id := upsert(c.Country)
		if id.code == "" {
			id.code = strings.ToUpper(c.CountryCode)
		}
		if c.Season >= id.rankSeason {
			id.rankSeason = c.Season
			id.rank = int32(c.Position)
			id.overallPoints = c.OverallPoints
		}
	}
	for _, c := range b.clubSeasons {
		if c.Country != "" {
			upsert(c.Country)
		}
	}
	for _, r := range b.ranks {
		id := upsert(r.Country)
		if r.Season >= id.rankSeason {
			id.rankSeason = r.Season
			id.rank = int32(r.Position)
			id.overallPoints = r.OverallPoints
		}
	}

	norms := make([]string, 0, len(identities))
	for norm := range identities {
		norms = append(norms, norm)
	}
	sort.Strings(norms)

	keys := map[string]int32{}
	codeKeys := map[string]int32{}
	schema.Countries = append(schema.Countries, CountryRow{
		CountryKey: CountryKeyUnknown,
		Name:       "Unknown",
	})
	for i, norm := range norms {
		id := identities[norm]
		key := int32(i + 1)
		keys[norm] = key
		if id.code != "" {
			codeKeys[id.code] = key
		}
		schema.Countries = append(schema.Countries, CountryRow{
			CountryKey:    key,
			Code:          id.code,
			Name:          id.name,
			Rank:          id.rank,
			OverallPoints: id.overallPoints,
		})
	}
	return keys, codeKeys
}

// buildClubs merges club identities from match participants and club
// coefficients, keyed by normalized name.
func (b *Builder) buildClubs(schema *Schema, codeKeys, countryKeys map[string]int32) map[string]int32 {
	identities := map[string]*clubIdentity{}
	upsert := func(name, countryCode string) *clubIdentity {
		norm := textutil.NormalizeName(name)
		if identities[norm] == nil {
			identities[norm] = &clubIdentity{name: name}
		}
		id := identities[norm]
		if id.code == "" && countryCode != "" {
			id.code = strings.ToUpper(countryCode)
		}
		return id
	}

	for _, m := range b.matches {
		upsert(m.Home, m.HomeCountry)
		upsert(m.Away, m.AwayCountry)
	}
	for _, c := range b.clubSeasons {
		id := upsert(c.Club, "")
		if id.country == "" {
			id.country = c.Country
		}
	}
	for _, c := range b.clubCoeffs {
		id := upsert(c.Club, c.CountryCode)
		if id.teamCode == "" {
			id.teamCode = c.TeamCode
		}
		if id.logoURL == "" {
			id.logoURL = c.LogoURL
		}
	}

	norms := make([]string, 0, len(identities))
	for norm := range identities {
		norms = append(norms, norm)
	}
	sort.Strings(norms)

	keys := map[string]int32{}
	for i, norm := range norms {
		id := identities[norm]
		key := int32(i + 1)
		keys[norm] = key
		countryKey := codeKeys[id.code]
		if countryKey == CountryKeyUnknown && id.country != "" {
			countryKey = countryKeys[textutil.NormalizeName(id.country)]
		}
		schema.Clubs = append(schema.Clubs, ClubRow{
			ClubKey:    key,
			Name:       id.name,
			TeamCode:   id.teamCode,
			CountryKey: countryKey,
			LogoURL:    id.logoURL,
		})
	}
	return keys
}

func (b *Builder) buildCompetitions(schema *Schema) map[string]int32 {
	keys := map[string]int32{}
	schema.Competitions = append(schema.Competitions, fixedCompetitions...)
	for _, row := range fixedCompetitions {
		keys[textutil.NormalizeName(row.Name)] = row.CompetitionKey
	}

	var extra []string
	seen := map[string]bool{}
	collect := func(label string) {
		norm := textutil.NormalizeName(label)
		if label == "" || seen[norm] {
			return
		}
		if _, ok := keys[norm]; ok {
			return
		}
		seen[norm] = true
		extra = append(extra, label)
	}
	for _, m := range b.matches {
		collect(m.Competition)
	}
	for _, c := range b.clubSeasons {
		collect(c.Competition)
	}
	for _, c := range b.clubCoeffs {
		collect(c.Competition)
	}
	sort.Strings(extra)

	next := int32(len(fixedCompetitions))
	for _, label := range extra {
		keys[textutil.NormalizeName(label)] = next
		schema.Competitions = append(schema.Competitions, CompetitionRow{
			CompetitionKey: next,
			Name:           label,
		})
		next++
	}
	return keys
}

func (b *Builder) buildStages(schema *Schema) map[string]int32 {
	keys := map[string]int32{}
	schema.Stages = append(schema.Stages, fixedStages...)
	for _, row := range fixedStages {
		keys[textutil.NormalizeName(row.Name)] = row.StageKey
	}

	var extra []string
	seen := map[string]bool{}
	for _, m := range b.matches {
		norm := textutil.NormalizeName(m.Stage)
		if m.Stage == "" || seen[norm] {
			continue
		}
		if _, ok := keys[norm]; ok {
			continue
		}
		seen[norm] = true
		extra = append(extra, m.Stage)
	}
	sort.Strings(extra)

	next := int32(len(fixedStages))
	for _, label := range extra {
		keys[textutil.NormalizeName(label)] = next
		schema.Stages = append(schema.Stages, StageRow{
			StageKey: next,
			Name:     label,
		})
		next++
	}
	return keys
}

func (b *Builder) buildSeasons(schema *Schema) {
	years := map[int]bool{}
	for _, m := range b.matches {
		years[m.Season] = true
	}
	for _, r := range b.ranks {
		years[r.Season] = true
	}
	for _, c := range b.clubSeasons {
		years[c.Season] = true
	}
	for _, c := range b.clubCoeffs {
		years[c.Season] = true
	}
	for _, c := range b.countryCoeffs {
		years[c.Season] = true
	}

	sorted := make([]int, 0, len(years))
	for year := range years {
		sorted = append(sorted, year)
	}
	sort.Ints(sorted)

	for _, year := range sorted {
		schema.Seasons = append(schema.Seasons, SeasonRow{
			SeasonKey: int32(year),
			Label:     SeasonLabel(year),
		})
	}
}

// SeasonLabel renders an end year as the usual season form, 2024 →
// "2023/24".
func SeasonLabel(endYear int) string {
	return fmt.Sprintf("%d/%02d", endYear-1, endYear%100)
}
