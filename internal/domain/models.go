package domain

import (
	"time"
)

type GameStatus string

const (
	GameStatusActive  GameStatus = "active"
	GameStatusDeleted GameStatus = "deleted"
)

type GameType string

const (
	GameTypeMultiplayer GameType = "multiplayer"
	GameTypeTeams       GameType = "teams"
)

type Group struct {
	ID              string
	Name            string
	OwnerID         string
	MemberCount     int
	GameCount       int
	CurrentSeasonID string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Season struct {
	ID        string
	GroupID   string
	Name      string
	IsActive  bool
	StartDate time.Time
	EndDate   *time.Time
	GameCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member is one (uid, group) pair; its composite id is uid_groupID.
type Member struct {
	UID         string
	GroupID     string
	DisplayName string
	PhotoURL    string
	IsActive    bool
	JoinedAt    time.Time
	UpdatedAt   time.Time
}

// Rating is the current aggregate for one (season, uid) pair, keyed
// seasonID_uid. Only match reporting, match reversal and season management
// write it; callers never do.
type Rating struct {
	ID            string // seasonID_uid
	SeasonID      string
	GroupID       string
	UID           string
	CurrentRating int
	GamesPlayed   int
	Wins          int
	Losses        int
	Draws         int
	LastUpdated   time.Time
}

type Game struct {
	ID        string
	GroupID   string
	SeasonID  string
	CreatedBy string
	GameType  GameType
	Status    GameStatus
	DeletedAt *time.Time
	CreatedAt time.Time
}

// Participant is the permanent record of one player's result in one game,
// keyed gameID_uid. Immutable once written.
type Participant struct {
	GameID       string
	UID          string
	DisplayName  string
	PhotoURL     string
	Placement    int
	IsTied       bool
	RatingBefore int
	RatingAfter  int
	RatingChange int
	TeamID       string
	TeamName     string
	CreatedAt    time.Time
}

// RatingChange is one append-only ledger entry per (game, uid), keyed
// gameID_uid. Reversal reads the ledger but never rewrites it.
type RatingChange struct {
	ID           string // gameID_uid
	GameID       string
	UID          string
	SeasonID     string
	GroupID      string
	RatingBefore int
	RatingAfter  int
	RatingChange int
	Placement    int
	IsTied       bool
	CreatedAt    time.Time
}

func RatingID(seasonID, uid string) string     { return seasonID + "_" + uid }
func MemberID(uid, groupID string) string      { return uid + "_" + groupID }
func RatingChangeID(gameID, uid string) string { return gameID + "_" + uid }
