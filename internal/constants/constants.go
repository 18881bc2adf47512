package constants

import "time"

// Rating algorithm constants.
const (
	RatingInit  = 1200
	KBase       = 32.0
	KDecayGames = 30.0
)

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute

	// Upper bound on documents written in one atomic batch; season roster
	// snapshots larger than this are chunked into sequential batches.
	DBBatchSize = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	LeaderboardLimit = 200
	HistoryLimit     = 100
	MaxMatchEntrants = 64
	MaxTeamMembers   = 16
)
