package domain

// PlayerEntry is one entrant in an individual-mode match report.
type PlayerEntry struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Placement   int    `json:"placement"`
	IsTied      bool   `json:"isTied,omitempty"`
}

type TeamMemberEntry struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// TeamEntry is one entrant in a team-mode match report.
type TeamEntry struct {
	ID        string            `json:"id"`
	Name      string            `json:"name,omitempty"`
	Placement int               `json:"placement"`
	IsTied    bool              `json:"isTied,omitempty"`
	Members   []TeamMemberEntry `json:"members"`
}

// ReportMatchInput is a tagged union: exactly one of Players or Teams must be
// non-empty. Mode selection happens once at validation, not per call site.
type ReportMatchInput struct {
	GroupID  string        `json:"groupId"`
	SeasonID string        `json:"seasonId"`
	Players  []PlayerEntry `json:"participants,omitempty"`
	Teams    []TeamEntry   `json:"teams,omitempty"`
}

func (in ReportMatchInput) Mode() GameType {
	if len(in.Teams) > 0 {
		return GameTypeTeams
	}
	return GameTypeMultiplayer
}
