package columnar

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"uefadata-backend/lib/telemetry"
	"uefadata-backend/services/starschema"

	"github.com/google/go-cmp/cmp"
	parquet "github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cleanup := telemetry.SetupForTesting("test:services/columnar")
	defer cleanup()
	m.Run()
}

func int32p(v int32) *int32 { return &v }

func sampleSchema() *starschema.Schema {
	return &starschema.Schema{
		Countries: []starschema.CountryRow{
			{CountryKey: 0, Name: "Unknown"},
			{CountryKey: 1, Code: "ESP", Name: "Spain", Rank: 2, OverallPoints: 94.9},
		},
		Clubs: []starschema.ClubRow{
			{ClubKey: 1, Name: "Real Madrid", CountryKey: 1},
			{ClubKey: 2, Name: "Sevilla", CountryKey: 1},
		},
		Competitions: []starschema.CompetitionRow{
			{CompetitionKey: 0, Name: "None"},
			{CompetitionKey: 1, Name: "Champions League"},
		},
		Stages: []starschema.StageRow{
			{StageKey: 0, Name: "Winner"},
			{StageKey: 1, Name: "Final", Importance: 1},
		},
		Seasons: []starschema.SeasonRow{
			{SeasonKey: 2023, Label: "2022/23"},
			{SeasonKey: 2024, Label: "2023/24"},
		},
		Matches: []starschema.MatchRow{
			{
				SeasonKey: 2023, CompetitionKey: 1, StageKey: 1, Leg: 1,
				HomeClubKey: 1, AwayClubKey: 2, Score: "2-0",
				HomeGoals: int32p(2), AwayGoals: int32p(0), WinnerClubKey: int32p(1),
			},
			{
				SeasonKey: 2024, CompetitionKey: 1, StageKey: 1, Leg: 1,
				HomeClubKey: 2, AwayClubKey: 1, Score: "1-1",
				HomeGoals: int32p(1), AwayGoals: int32p(1), Draw: true,
			},
		},
		ClubSeasons: []starschema.ClubSeasonRow{
			{
				SeasonKey: 2024, ClubKey: 1, CountryKey: 1, CompetitionKey: 1,
				Position: 1, CountryTeams: 2,
				FinalWins: 12, FinalDraws: 1, FinalLosses: 1,
				Bonus: 8, Points: 33,
			},
		},
		Coefficients: []starschema.CoefficientRow{
			{
				SeasonKey: 2024, EntityType: starschema.EntityClub,
				ClubKey: int32p(1), CountryKey: 1, CompetitionKey: int32p(1),
				SeasonPoints: 32, SeasonMatches: 13, OverallPoints: 136, Position: 2,
			},
			{
				SeasonKey: 2024, EntityType: starschema.EntityCountry,
				CountryKey: 1, SeasonPoints: 16.062, OverallPoints: 94.9, Position: 2,
			},
		},
	}
}

func TestWriteSchemaLayout(t *testing.T) {
	root := t.TempDir()
	written, err := NewWriter(root).WriteSchema(context.Background(), sampleSchema())
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, []string{
		"dim_country.parquet",
		"dim_club.parquet",
		"dim_competition.parquet",
		"dim_stage.parquet",
		"dim_season.parquet",
		filepath.Join("fact_match", "season=2023", "part-0000.parquet"),
		filepath.Join("fact_match", "season=2024", "part-0000.parquet"),
		filepath.Join("fact_club_season", "season=2024", "part-0000.parquet"),
		filepath.Join("fact_coefficient", "season=2024", "part-0000.parquet"),
	}, written)

	for _, relPath := range written {
		info, err := os.Stat(filepath.Join(root, relPath))
		require.NoError(t, err)
		require.Greater(t, info.Size(), int64(0))
	}

	// no stray temp files
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".part-")
	}
}

func TestWriteSchemaRoundTrip(t *testing.T) {
	root := t.TempDir()
	schema := sampleSchema()
	_, err := NewWriter(root).WriteSchema(context.Background(), schema)
	if err != nil {
		t.Fatal(err)
	}

	clubs, err := parquet.ReadFile[starschema.ClubRow](filepath.Join(root, "dim_club.parquet"))
	require.NoError(t, err)
	diff := cmp.Diff(schema.Clubs, clubs)
	require.Empty(t, diff)

	matches, err := parquet.ReadFile[starschema.MatchRow](
		filepath.Join(root, "fact_match", "season=2024", "part-0000.parquet"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	diff = cmp.Diff(schema.Matches[1], matches[0])
	require.Empty(t, diff)

	clubSeasons, err := parquet.ReadFile[starschema.ClubSeasonRow](
		filepath.Join(root, "fact_club_season", "season=2024", "part-0000.parquet"))
	require.NoError(t, err)
	diff = cmp.Diff(schema.ClubSeasons, clubSeasons)
	require.Empty(t, diff)
}

func TestWriteSchemaDeterministic(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	writtenFirst, err := NewWriter(first).WriteSchema(context.Background(), sampleSchema())
	require.NoError(t, err)
	writtenSecond, err := NewWriter(second).WriteSchema(context.Background(), sampleSchema())
	require.NoError(t, err)
	require.Equal(t, writtenFirst, writtenSecond)

	for _, relPath := range writtenFirst {
		a, err := os.ReadFile(filepath.Join(first, relPath))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, relPath))
		require.NoError(t, err)
		require.Equal(t, a, b, relPath)
	}
}
