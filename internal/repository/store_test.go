package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"grouprank/internal/database"
	"grouprank/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, *GroupRepository, *SeasonRepository, *GameRepository, *ParticipantRepository, *RatingRepository, *RatingChangeRepository) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.Open(filepath.Join(t.TempDir(), "store_test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(db, logger),
		NewGroupRepository(db, logger),
		NewSeasonRepository(db, logger),
		NewGameRepository(db, logger),
		NewParticipantRepository(db, logger),
		NewRatingRepository(db, logger),
		NewRatingChangeRepository(db, logger)
}

func seedGroupAndSeason(t *testing.T, store *Store, groups *GroupRepository, seasons *SeasonRepository) (string, string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	err := store.RunBatch(ctx, func(tx DBTX) error {
		if err := groups.Insert(ctx, tx, &domain.Group{
			ID: "grp", Name: "Grp", OwnerID: "owner", CurrentSeasonID: "ssn",
			IsActive: true, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		return seasons.Insert(ctx, tx, &domain.Season{
			ID: "ssn", GroupID: "grp", Name: "Season 1", IsActive: true,
			StartDate: now, CreatedAt: now, UpdatedAt: now,
		})
	})
	require.NoError(t, err)
	return "grp", "ssn"
}

// An induced failure at the end of a batch must leave none of the documents
// written earlier in that batch visible afterwards.
func TestRunBatchRollsBackOnInducedFailure(t *testing.T) {
	store, groups, seasons, games, participants, ratings, changes := openTestStore(t)
	ctx := context.Background()
	groupID, seasonID := seedGroupAndSeason(t, store, groups, seasons)
	now := time.Now().UTC()

	errInduced := errors.New("induced mid-batch failure")

	err := store.RunBatch(ctx, func(tx DBTX) error {
		if err := games.Insert(ctx, tx, &domain.Game{
			ID: "doomed", GroupID: groupID, SeasonID: seasonID, CreatedBy: "owner",
			GameType: domain.GameTypeMultiplayer, Status: domain.GameStatusActive, CreatedAt: now,
		}); err != nil {
			return err
		}
		if err := participants.InsertBatch(ctx, tx, []domain.Participant{
			{GameID: "doomed", UID: "alice", Placement: 1, RatingBefore: 1200, RatingAfter: 1216, RatingChange: 16, CreatedAt: now},
			{GameID: "doomed", UID: "bob", Placement: 2, RatingBefore: 1200, RatingAfter: 1184, RatingChange: -16, CreatedAt: now},
		}); err != nil {
			return err
		}
		if err := ratings.Upsert(ctx, tx, &domain.Rating{
			ID: domain.RatingID(seasonID, "alice"), SeasonID: seasonID, GroupID: groupID,
			UID: "alice", CurrentRating: 1216, GamesPlayed: 1, Wins: 1, LastUpdated: now,
		}); err != nil {
			return err
		}
		if err := changes.InsertBatch(ctx, tx, []domain.RatingChange{{
			ID: domain.RatingChangeID("doomed", "alice"), GameID: "doomed", UID: "alice",
			SeasonID: seasonID, GroupID: groupID, RatingBefore: 1200, RatingAfter: 1216,
			RatingChange: 16, Placement: 1, CreatedAt: now,
		}}); err != nil {
			return err
		}
		if err := groups.IncrementGameCount(ctx, tx, groupID, 1); err != nil {
			return err
		}
		return errInduced
	})
	require.ErrorIs(t, err, errInduced)

	// Nothing from the aborted batch is observable.
	_, err = games.Get(ctx, "doomed")
	assert.ErrorIs(t, err, ErrGameNotFound)

	ps, err := participants.ListByGame(ctx, "doomed")
	require.NoError(t, err)
	assert.Empty(t, ps)

	_, err = ratings.Get(ctx, seasonID, "alice")
	assert.ErrorIs(t, err, ErrRatingNotFound)

	cs, err := changes.ListByGame(ctx, "doomed")
	require.NoError(t, err)
	assert.Empty(t, cs)

	g, err := groups.Get(ctx, groupID)
	require.NoError(t, err)
	assert.Zero(t, g.GameCount)
}

func TestMarkDeletedGuardsAgainstDoubleDelete(t *testing.T) {
	store, groups, seasons, games, _, _, _ := openTestStore(t)
	ctx := context.Background()
	groupID, seasonID := seedGroupAndSeason(t, store, groups, seasons)
	now := time.Now().UTC()

	err := store.RunBatch(ctx, func(tx DBTX) error {
		return games.Insert(ctx, tx, &domain.Game{
			ID: "g1", GroupID: groupID, SeasonID: seasonID, CreatedBy: "owner",
			GameType: domain.GameTypeMultiplayer, Status: domain.GameStatusActive, CreatedAt: now,
		})
	})
	require.NoError(t, err)

	require.NoError(t, store.RunBatch(ctx, func(tx DBTX) error {
		return games.MarkDeleted(ctx, tx, "g1", now)
	}))

	err = store.RunBatch(ctx, func(tx DBTX) error {
		return games.MarkDeleted(ctx, tx, "g1", now)
	})
	assert.ErrorIs(t, err, ErrGameAlreadyDeleted)
}

func TestRatingInsertIfAbsentDoesNotClobber(t *testing.T) {
	store, groups, seasons, _, _, ratings, _ := openTestStore(t)
	ctx := context.Background()
	groupID, seasonID := seedGroupAndSeason(t, store, groups, seasons)
	now := time.Now().UTC()

	existing := &domain.Rating{
		ID: domain.RatingID(seasonID, "alice"), SeasonID: seasonID, GroupID: groupID,
		UID: "alice", CurrentRating: 1337, GamesPlayed: 9, Wins: 5, Losses: 3, Draws: 1, LastUpdated: now,
	}
	require.NoError(t, store.RunBatch(ctx, func(tx DBTX) error {
		return ratings.Upsert(ctx, tx, existing)
	}))

	require.NoError(t, store.RunBatch(ctx, func(tx DBTX) error {
		return ratings.InsertIfAbsent(ctx, tx, &domain.Rating{
			ID: existing.ID, SeasonID: seasonID, GroupID: groupID, UID: "alice",
			CurrentRating: 1200, LastUpdated: now,
		})
	}))

	got, err := ratings.Get(ctx, seasonID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1337, got.CurrentRating)
	assert.Equal(t, 9, got.GamesPlayed)
}
