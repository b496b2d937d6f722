package uefaapi

import "encoding/json"

// Member is one entry of the coefficients endpoint. The same shape
// serves both coefficient types; club entries carry a competition and a
// team code, association entries a country code.
type Member struct {
	Member struct {
		ID                  int64  `json:"id"`
		AssociationID       int64  `json:"associationId"`
		CountryCode         string `json:"countryCode"`
		DisplayName         string `json:"displayName"`
		DisplayOfficialName string `json:"displayOfficialName"`
		DisplayTeamCode     string `json:"displayTeamCode"`
		LogoURL             string `json:"logoUrl"`
		MediumLogoURL       string `json:"mediumLogoUrl"`
	} `json:"member"`
	Competition struct {
		DisplayName string `json:"displayName"`
	} `json:"competition"`
	OverallRanking struct {
		Position      int     `json:"position"`
		TotalValue    float64 `json:"totalValue"`
		TotalPoints   float64 `json:"totalPoints"`
		NumberOfTeams int     `json:"numberOfTeams"`
	} `json:"overallRanking"`
	SeasonRankings []SeasonRanking `json:"seasonRankings"`
}

type SeasonRanking struct {
	SeasonYear      int     `json:"seasonYear"`
	TotalValue      float64 `json:"totalValue"`
	TotalPoints     float64 `json:"totalPoints"`
	NumberOfMatches float64 `json:"numberOfMatches"`
	Position        int     `json:"position"`
}

// Name returns the best display name the entry carries.
func (m Member) Name() string {
	if m.Member.DisplayOfficialName != "" {
		return m.Member.DisplayOfficialName
	}
	return m.Member.DisplayName
}

// Season finds the ranking row for one season year.
func (m Member) Season(year int) (SeasonRanking, bool) {
	for _, s := range m.SeasonRankings {
		if s.SeasonYear == year {
			return s, true
		}
	}
	return SeasonRanking{}, false
}

// ParseMembers decodes a cached members payload.
func ParseMembers(payload []byte) ([]Member, error) {
	var members []Member
	if err := json.Unmarshal(payload, &members); err != nil {
		return nil, err
	}
	return members, nil
}
