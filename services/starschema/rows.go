// Package starschema assembles canonical records into the dimension and
// fact tables the dashboard reads. Surrogate keys are assigned
// deterministically so identical inputs always produce identical
// tables.
package starschema

// Sentinel keys. Every foreign key in a fact row resolves to a real
// dimension row; unknowns point at these instead of dangling.
const (
	CountryKeyUnknown  int32 = 0
	CompetitionKeyNone int32 = 0
	StageKeyWinner     int32 = 0
	// StageKeyUnknown takes match rows whose stage header was absent;
	// a missing header never maps to the Winner pseudo-stage.
	StageKeyUnknown int32 = 21
)

// Coefficient fact entity types.
const (
	EntityClub    = "club"
	EntityCountry = "country"
)

type CountryRow struct {
	CountryKey    int32   `parquet:"country_key"`
	Code          string  `parquet:"country_code,optional"`
	Name          string  `parquet:"country_name"`
	Rank          int32   `parquet:"uefa_rank,optional"`
	OverallPoints float64 `parquet:"overall_points,optional"`
}

type ClubRow struct {
	ClubKey    int32  `parquet:"club_key"`
	Name       string `parquet:"club_name"`
	TeamCode   string `parquet:"team_code,optional"`
	CountryKey int32  `parquet:"country_key"`
	LogoURL    string `parquet:"logo_url,optional"`
}

type CompetitionRow struct {
	CompetitionKey int32  `parquet:"competition_key"`
	Name           string `parquet:"competition_name"`
}

type StageRow struct {
	StageKey   int32  `parquet:"stage_key"`
	Name       string `parquet:"stage_name"`
	Importance int32  `parquet:"importance"`
}

type SeasonRow struct {
	// SeasonKey is the season's end year, so 2024 means 2023/24.
	SeasonKey int32  `parquet:"season_key"`
	Label     string `parquet:"season_label"`
}

// MatchRow is one leg of a tie.
type MatchRow struct {
	SeasonKey           int32  `parquet:"season_key"`
	CompetitionKey      int32  `parquet:"competition_key"`
	StageKey            int32  `parquet:"stage_key"`
	Leg                 int32  `parquet:"leg"`
	HomeClubKey         int32  `parquet:"home_club_key"`
	AwayClubKey         int32  `parquet:"away_club_key"`
	Score               string `parquet:"score,optional"`
	HomeGoals           *int32 `parquet:"home_goals,optional"`
	AwayGoals           *int32 `parquet:"away_goals,optional"`
	WinnerClubKey       *int32 `parquet:"winner_club_key,optional"`
	Draw                bool   `parquet:"draw"`
	TwoLegWinnerClubKey *int32 `parquet:"two_leg_winner_club_key,optional"`
}

// ClubSeasonRow is one club's campaign record for a season: how far it
// got and the coefficient points the run earned.
type ClubSeasonRow struct {
	SeasonKey      int32   `parquet:"season_key"`
	ClubKey        int32   `parquet:"club_key"`
	CountryKey     int32   `parquet:"country_key"`
	CompetitionKey int32   `parquet:"competition_key"`
	Position       int32   `parquet:"position,optional"`
	CountryTeams   int32   `parquet:"country_teams,optional"`
	QualWins       int32   `parquet:"qualifying_wins"`
	QualDraws      int32   `parquet:"qualifying_draws"`
	QualLosses     int32   `parquet:"qualifying_losses"`
	FinalWins      int32   `parquet:"final_wins"`
	FinalDraws     int32   `parquet:"final_draws"`
	FinalLosses    int32   `parquet:"final_losses"`
	Bonus          float64 `parquet:"bonus_points"`
	Points         float64 `parquet:"season_points"`
}

type CoefficientRow struct {
	SeasonKey      int32   `parquet:"season_key"`
	EntityType     string  `parquet:"entity_type"`
	ClubKey        *int32  `parquet:"club_key,optional"`
	CountryKey     int32   `parquet:"country_key"`
	CompetitionKey *int32  `parquet:"competition_key,optional"`
	SeasonPoints   float64 `parquet:"season_points"`
	SeasonMatches  int32   `parquet:"season_matches,optional"`
	OverallPoints  float64 `parquet:"overall_points"`
	Position       int32   `parquet:"position,optional"`
}

// Schema holds one fully keyed star schema build.
type Schema struct {
	Countries    []CountryRow
	Clubs        []ClubRow
	Competitions []CompetitionRow
	Stages       []StageRow
	Seasons      []SeasonRow
	Matches      []MatchRow
	ClubSeasons  []ClubSeasonRow
	Coefficients []CoefficientRow
}

// fixedCompetitions pins the key of the three competitions the pipeline
// tracks; other labels get keys appended after them.
var fixedCompetitions = []CompetitionRow{
	{CompetitionKey: CompetitionKeyNone, Name: "None"},
	{CompetitionKey: 1, Name: "Champions League"},
	{CompetitionKey: 2, Name: "Europa League"},
	{CompetitionKey: 3, Name: "Conference League"},
}

// fixedStages is the stage table with importance ranks (1 = most
// important). Stage labels outside it are appended with importance 0.
var fixedStages = []StageRow{
	{StageKey: StageKeyWinner, Name: "Winner", Importance: 0},
	{StageKey: 1, Name: "Final", Importance: 1},
	{StageKey: 2, Name: "Semi Finals", Importance: 2},
	{StageKey: 3, Name: "Quarter Finals", Importance: 3},
	{StageKey: 4, Name: "2nd Group Stage", Importance: 4},
	{StageKey: 5, Name: "Round 4", Importance: 4},
	{StageKey: 6, Name: "Round of 16", Importance: 4},
	{StageKey: 7, Name: "Knockout round play-offs", Importance: 5},
	{StageKey: 8, Name: "Round 3", Importance: 6},
	{StageKey: 9, Name: "1st Group Stage", Importance: 7},
	{StageKey: 10, Name: "Group Stage", Importance: 7},
	{StageKey: 11, Name: "League Stage", Importance: 7},
	{StageKey: 12, Name: "Round 2", Importance: 8},
	{StageKey: 13, Name: "Round 1", Importance: 9},
	{StageKey: 14, Name: "4th Qualifying or Play-off Round", Importance: 10},
	{StageKey: 15, Name: "Qualifying Play-off Round", Importance: 10},
	{StageKey: 16, Name: "3rd Qualifying Round", Importance: 11},
	{StageKey: 17, Name: "2nd Qualifying Round", Importance: 12},
	{StageKey: 18, Name: "Qualifying Round", Importance: 12},
	{StageKey: 19, Name: "1st Qualifying Round", Importance: 13},
	{StageKey: 20, Name: "Preliminary Round", Importance: 14},
	{StageKey: StageKeyUnknown, Name: "Unknown", Importance: 0},
}
