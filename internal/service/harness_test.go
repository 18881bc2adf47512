package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"grouprank/internal/database"
	"grouprank/internal/domain"
	"grouprank/internal/ledger"
	"grouprank/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testEnv wires the whole engine against a throwaway sqlite store.
type testEnv struct {
	db           *sql.DB
	store        *repository.Store
	groups       *repository.GroupRepository
	seasons      *repository.SeasonRepository
	members      *repository.MemberRepository
	ratings      *repository.RatingRepository
	games        *repository.GameRepository
	participants *repository.ParticipantRepository
	changes      *repository.RatingChangeRepository
	ledger       *ledger.Ledger

	groupSvc    *GroupService
	reporter    *MatchReporter
	revoker     *MatchRevoker
	seasonMgr   *SeasonManager
	leaderboard *LeaderboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	db, err := database.Open(filepath.Join(t.TempDir(), "engine_test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:           db,
		store:        repository.NewStore(db, logger),
		groups:       repository.NewGroupRepository(db, logger),
		seasons:      repository.NewSeasonRepository(db, logger),
		members:      repository.NewMemberRepository(db, logger),
		ratings:      repository.NewRatingRepository(db, logger),
		games:        repository.NewGameRepository(db, logger),
		participants: repository.NewParticipantRepository(db, logger),
		changes:      repository.NewRatingChangeRepository(db, logger),
		ledger:       ledger.New(logger),
	}

	env.groupSvc = NewGroupService(env.store, env.groups, env.seasons, env.members, env.ratings, logger)
	env.reporter = NewMatchReporter(env.store, env.groups, env.seasons, env.members, env.ratings,
		env.games, env.participants, env.changes, env.ledger, logger)
	env.revoker = NewMatchRevoker(env.store, env.groups, env.seasons, env.ratings,
		env.games, env.participants, env.ledger, logger)
	env.seasonMgr = NewSeasonManager(env.store, env.groups, env.seasons, env.members, env.ratings, logger)
	env.leaderboard = NewLeaderboardService(env.groups, env.seasons, env.members, env.ratings, env.changes, logger)

	return env
}

// seedGroup creates a group owned by "owner" with the given extra members
// joined, and returns it with its first season id.
func (env *testEnv) seedGroup(t *testing.T, memberUIDs ...string) *domain.Group {
	t.Helper()
	ctx := context.Background()

	group, err := env.groupSvc.CreateGroup(ctx, "owner", "Owner", "Test League")
	require.NoError(t, err)

	for _, uid := range memberUIDs {
		_, err := env.groupSvc.JoinGroup(ctx, uid, "Player "+uid, group.ID)
		require.NoError(t, err)
	}
	return group
}

func (env *testEnv) mustGetRating(t *testing.T, seasonID, uid string) domain.Rating {
	t.Helper()
	rt, err := env.ratings.Get(context.Background(), seasonID, uid)
	require.NoError(t, err)
	return *rt
}

func (env *testEnv) countRows(t *testing.T, table, where string, args ...any) int {
	t.Helper()
	var n int
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	require.NoError(t, env.db.QueryRow(query, args...).Scan(&n))
	return n
}

func buildTwoPlayerWriteSet(env *testEnv, group *domain.Group, gameID string, stale map[string]domain.Rating) ledger.WriteSet {
	players := []domain.PlayerEntry{
		{UID: "alice", DisplayName: "Alice", Placement: 1},
		{UID: "bob", DisplayName: "Bob", Placement: 2},
	}
	results := computeIndividualResults(players, stale)
	return env.ledger.BuildForward(gameID, group.CurrentSeasonID, group.ID, time.Now().UTC(), results, stale)
}

func applyWriteSet(ctx context.Context, env *testEnv, group *domain.Group, gameID string, ws ledger.WriteSet) error {
	game := &domain.Game{
		ID:        gameID,
		GroupID:   group.ID,
		SeasonID:  group.CurrentSeasonID,
		CreatedBy: "owner",
		GameType:  domain.GameTypeMultiplayer,
		Status:    domain.GameStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	return env.store.RunBatch(ctx, func(tx repository.DBTX) error {
		if err := env.games.Insert(ctx, tx, game); err != nil {
			return err
		}
		if err := env.participants.InsertBatch(ctx, tx, ws.Participants); err != nil {
			return err
		}
		for i := range ws.Ratings {
			if err := env.ratings.Upsert(ctx, tx, &ws.Ratings[i]); err != nil {
				return err
			}
		}
		return env.changes.InsertBatch(ctx, tx, ws.RatingChanges)
	})
}

func twoPlayerInput(group *domain.Group, winner, loser string) domain.ReportMatchInput {
	return domain.ReportMatchInput{
		GroupID:  group.ID,
		SeasonID: group.CurrentSeasonID,
		Players: []domain.PlayerEntry{
			{UID: winner, DisplayName: winner, Placement: 1},
			{UID: loser, DisplayName: loser, Placement: 2},
		},
	}
}
