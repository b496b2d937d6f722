package starschema

import (
	"context"
	"testing"

	"uefadata-backend/lib/telemetry"
	"uefadata-backend/services/normalize"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cleanup := telemetry.SetupForTesting("test:services/starschema")
	defer cleanup()
	m.Run()
}

func intp(v int) *int { return &v }

func sampleMatches() []normalize.Match {
	return []normalize.Match{
		{
			Season: 2024, Competition: normalize.CompetitionChampions,
			Stage: "Semi Finals", Leg: 1,
			Home: "Real Madrid", HomeCountry: "ESP",
			Away: "Bayern München", AwayCountry: "GER",
			Score: "2-2", HomeGoals: intp(2), AwayGoals: intp(2),
			Winner: normalize.WinnerDraw, TwoLegWinner: "Real Madrid",
		},
		{
			Season: 2024, Competition: normalize.CompetitionChampions,
			Stage: "Final", Leg: 1,
			Home: "Borussia Dortmund", HomeCountry: "GER",
			Away: "Real Madrid", AwayCountry: "ESP",
			Score: "0-2", HomeGoals: intp(0), AwayGoals: intp(2),
			Winner: "Real Madrid",
		},
	}
}

func sampleClubCoefficients() []normalize.ClubCoefficient {
	return []normalize.ClubCoefficient{
		{
			Season: 2024, ClubID: 50051, Club: "Real Madrid",
			CountryCode: "ESP", Competition: normalize.CompetitionChampions,
			SeasonPoints: 32, SeasonMatches: 13, OverallPoints: 136, Position: 2,
		},
	}
}

func sampleCountryCoefficients() []normalize.CountryCoefficient {
	return []normalize.CountryCoefficient{
		{Season: 2024, AssociationID: 13, CountryCode: "ESP", Country: "Spain", Position: 2, SeasonPoints: 16.062, OverallPoints: 94.9, Teams: 8},
		{Season: 2024, AssociationID: 12, CountryCode: "GER", Country: "Germany", Position: 4, SeasonPoints: 17.9, OverallPoints: 85.2, Teams: 8},
	}
}

func sampleClubSeasons() []normalize.ClubSeason {
	return []normalize.ClubSeason{
		{
			Season: 2024, Club: "Real Madrid", Country: "Spain",
			CountryTeams: 2, Position: 1,
			Competition: normalize.CompetitionChampions,
			FinalWins:   12, FinalDraws: 1, FinalLosses: 1,
			Bonus: 8, Points: 33,
		},
		{
			Season: 2024, Club: "Sevilla", Country: "Spain",
			CountryTeams: 2, Position: 2,
			Competition: normalize.CompetitionEuropa,
			QualWins:    2, QualDraws: 1,
			Points: 19,
		},
	}
}

func TestBuildAssignsStableKeys(t *testing.T) {
	build := func(reversedAdds bool) *Schema {
		b := NewBuilder()
		if reversedAdds {
			b.AddCountryCoefficients(sampleCountryCoefficients())
			b.AddClubCoefficients(sampleClubCoefficients())
			b.AddMatches(sampleMatches())
		} else {
			b.AddMatches(sampleMatches())
			b.AddClubCoefficients(sampleClubCoefficients())
			b.AddCountryCoefficients(sampleCountryCoefficients())
		}
		schema, err := b.Build(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return schema
	}

	first := build(false)
	second := build(true)

	diff := cmp.Diff(first.Clubs, second.Clubs)
	require.Empty(t, diff)
	diff = cmp.Diff(first.Countries, second.Countries)
	require.Empty(t, diff)

	// clubs sorted by normalized name: Bayern München, Borussia
	// Dortmund, Real Madrid
	require.Equal(t, "Bayern München", first.Clubs[0].Name)
	require.Equal(t, int32(1), first.Clubs[0].ClubKey)
	require.Equal(t, "Real Madrid", first.Clubs[2].Name)

	// country keys resolved through the association coefficients' codes
	var spain CountryRow
	for _, c := range first.Countries {
		if c.Name == "Spain" {
			spain = c
		}
	}
	require.Equal(t, "ESP", spain.Code)
	require.Equal(t, spain.CountryKey, first.Clubs[2].CountryKey)
}

func TestBuildFacts(t *testing.T) {
	b := NewBuilder()
	b.AddMatches(sampleMatches())
	b.AddClubCoefficients(sampleClubCoefficients())
	b.AddCountryCoefficients(sampleCountryCoefficients())

	schema, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	require.Len(t, schema.Matches, 2)
	semi := schema.Matches[0]
	require.True(t, semi.Draw)
	require.Nil(t, semi.WinnerClubKey)
	require.NotNil(t, semi.TwoLegWinnerClubKey)
	require.Equal(t, int32(3), *semi.TwoLegWinnerClubKey)

	final := schema.Matches[1]
	require.False(t, final.Draw)
	require.NotNil(t, final.WinnerClubKey)
	require.Equal(t, int32(3), *final.WinnerClubKey)
	require.Equal(t, int32(1), final.StageKey)

	require.Len(t, schema.Coefficients, 3)
	club := schema.Coefficients[0]
	require.Equal(t, EntityClub, club.EntityType)
	require.NotNil(t, club.ClubKey)
	require.Equal(t, int32(3), *club.ClubKey)
	require.NotNil(t, club.CompetitionKey)
	require.Equal(t, int32(1), *club.CompetitionKey)

	country := schema.Coefficients[1]
	require.Equal(t, EntityCountry, country.EntityType)
	require.NotZero(t, country.CountryKey)
}

func TestBuildSentinelRows(t *testing.T) {
	b := NewBuilder()
	b.AddMatches(sampleMatches())

	schema, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, CountryKeyUnknown, schema.Countries[0].CountryKey)
	require.Equal(t, "Unknown", schema.Countries[0].Name)
	require.Equal(t, CompetitionKeyNone, schema.Competitions[0].CompetitionKey)
	require.Equal(t, StageKeyWinner, schema.Stages[0].StageKey)

	// no coefficient data: every club points at the unknown country
	for _, club := range schema.Clubs {
		require.Equal(t, CountryKeyUnknown, club.CountryKey)
	}

	require.Len(t, schema.Seasons, 1)
	require.Equal(t, "2023/24", schema.Seasons[0].Label)
}

func TestBuildUnknownStageAppended(t *testing.T) {
	matches := sampleMatches()
	matches[0].Stage = "Intermediate Round"

	b := NewBuilder()
	b.AddMatches(matches)
	schema, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	last := schema.Stages[len(schema.Stages)-1]
	require.Equal(t, "Intermediate Round", last.Name)
	require.Equal(t, int32(22), last.StageKey)
	require.Equal(t, int32(0), last.Importance)
	require.Equal(t, last.StageKey, schema.Matches[0].StageKey)
}

func TestBuildMissingStageHeader(t *testing.T) {
	matches := sampleMatches()
	// rows printed above the first round header carry no stage
	matches[0].Stage = ""

	b := NewBuilder()
	b.AddMatches(matches)
	schema, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	got := schema.Matches[0].StageKey
	require.Equal(t, StageKeyUnknown, got)
	require.NotEqual(t, StageKeyWinner, got,
		"a missing stage header must not read as the trophy pseudo-stage")

	var unknown StageRow
	for _, stage := range schema.Stages {
		if stage.StageKey == StageKeyUnknown {
			unknown = stage
		}
	}
	require.Equal(t, "Unknown", unknown.Name)
}

func TestBuildClubSeasonFacts(t *testing.T) {
	b := NewBuilder()
	b.AddClubSeasons(sampleClubSeasons())
	b.AddCountryCoefficients(sampleCountryCoefficients())

	schema, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	require.Len(t, schema.ClubSeasons, 2)

	var spain CountryRow
	for _, c := range schema.Countries {
		if c.Name == "Spain" {
			spain = c
		}
	}
	require.NotEqual(t, CountryKeyUnknown, spain.CountryKey)

	madrid := schema.ClubSeasons[0]
	require.Equal(t, int32(2024), madrid.SeasonKey)
	require.Equal(t, spain.CountryKey, madrid.CountryKey)
	require.Equal(t, int32(1), madrid.CompetitionKey)
	require.Equal(t, int32(12), madrid.FinalWins)
	require.Equal(t, 33.0, madrid.Points)

	// the club dimension resolved its country by name, no code needed
	for _, club := range schema.Clubs {
		require.Equal(t, spain.CountryKey, club.CountryKey, club.Name)
	}

	sevilla := schema.ClubSeasons[1]
	require.Equal(t, int32(2), sevilla.CompetitionKey)
	require.Equal(t, int32(2), sevilla.QualWins)

	require.Len(t, schema.Seasons, 1)
}

func TestBuildIntegrityErrorNamesMissingClub(t *testing.T) {
	matches := sampleMatches()
	// a bolded winner name spelled unlike either participant
	matches[0].TwoLegWinner = "Real Madrid CF"

	b := NewBuilder()
	b.AddMatches(matches)

	_, err := b.Build(context.Background())
	require.Error(t, err)

	var integrity *IntegrityError
	require.ErrorAs(t, err, &integrity)
	require.Equal(t, "fact_match", integrity.Table)
	require.Equal(t, "Real Madrid CF", integrity.Name)
	require.Equal(t, 2024, integrity.Season)
	require.Equal(t, "Real Madrid", integrity.Suggestion)
	require.Contains(t, err.Error(), `"Real Madrid CF"`)
}
