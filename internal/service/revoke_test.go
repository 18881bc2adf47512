package service

import (
	"context"
	"testing"

	"grouprank/internal/apperrors"
	"grouprank/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteMatchRestoresRatingsExactly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := env.seedGroup(t, "alice", "bob", "carol")
	seasonID := group.CurrentSeasonID

	// Build up some history first so the reversal target is not baseline.
	_, err := env.reporter.ReportMatch(ctx, "owner", twoPlayerInput(group, "alice", "bob"))
	require.NoError(t, err)
	_, err = env.reporter.ReportMatch(ctx, "owner", twoPlayerInput(group, "carol", "alice"))
	require.NoError(t, err)

	before := map[string]domain.Rating{
		"alice": env.mustGetRating(t, seasonID, "alice"),
		"bob":   env.mustGetRating(t, seasonID, "bob"),
		"carol": env.mustGetRating(t, seasonID, "carol"),
	}

	report, err := env.reporter.ReportMatch(ctx, "owner", domain.ReportMatchInput{
		GroupID:  group.ID,
		SeasonID: seasonID,
		Players: []domain.PlayerEntry{
			{UID: "alice", DisplayName: "Alice", Placement: 1},
			{UID: "bob", DisplayName: "Bob", Placement: 2},
			{UID: "carol", DisplayName: "Carol", Placement: 3},
		},
	})
	require.NoError(t, err)

	require.NoError(t, env.revoker.DeleteMatch(ctx, "owner", report.Game.ID))

	ignoreTime := cmpopts.IgnoreFields(domain.Rating{}, "LastUpdated")
	for uid, want := range before {
		got := env.mustGetRating(t, seasonID, uid)
		if diff := cmp.Diff(want, got, ignoreTime); diff != "" {
			t.Errorf("rating for %s not restored (-want +got):\n%s", uid, diff)
		}
	}

	// Game survives as a soft-deleted row; ledger entries stay put.
	game, err := env.games.Get(ctx, report.Game.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GameStatusDeleted, game.Status)
	require.NotNil(t, game.DeletedAt)
	assert.Equal(t, 3, env.countRows(t, "rating_changes", "game_id = ?", report.Game.ID))

	// Counters are decremented in the same batch.
	g, err := env.groups.Get(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, g.GameCount)
}

func TestDeleteMatchTwiceIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := env.seedGroup(t, "alice", "bob")

	report, err := env.reporter.ReportMatch(ctx, "owner", twoPlayerInput(group, "alice", "bob"))
	require.NoError(t, err)

	require.NoError(t, env.revoker.DeleteMatch(ctx, "owner", report.Game.ID))
	after := env.mustGetRating(t, group.CurrentSeasonID, "alice")

	err = env.revoker.DeleteMatch(ctx, "owner", report.Game.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindFailedPrecondition, apperrors.KindOf(err))

	// No further mutation on the rejected second call.
	assert.Equal(t, after, env.mustGetRating(t, group.CurrentSeasonID, "alice"))
	g, err := env.groups.Get(ctx, group.ID)
	require.NoError(t, err)
	assert.Zero(t, g.GameCount)
}

func TestDeleteMatchAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := env.seedGroup(t, "alice", "bob", "carol")

	// Reported by alice: carol is neither owner nor reporter.
	report, err := env.reporter.ReportMatch(ctx, "alice", twoPlayerInput(group, "alice", "bob"))
	require.NoError(t, err)

	err = env.revoker.DeleteMatch(ctx, "carol", report.Game.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPermissionDenied, apperrors.KindOf(err))

	// The original reporter can delete their own match.
	require.NoError(t, env.revoker.DeleteMatch(ctx, "alice", report.Game.ID))

	// The group owner can delete anyone's match.
	report, err = env.reporter.ReportMatch(ctx, "alice", twoPlayerInput(group, "alice", "carol"))
	require.NoError(t, err)
	require.NoError(t, env.revoker.DeleteMatch(ctx, "owner", report.Game.ID))
}

func TestDeleteMatchUnknownGame(t *testing.T) {
	env := newTestEnv(t)
	env.seedGroup(t)

	err := env.revoker.DeleteMatch(context.Background(), "owner", "missing-game")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestDeleteTeamMatchReversesFanOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := env.seedGroup(t, "a1", "a2", "b1", "b2")
	seasonID := group.CurrentSeasonID

	report, err := env.reporter.ReportMatch(ctx, "owner", domain.ReportMatchInput{
		GroupID:  group.ID,
		SeasonID: seasonID,
		Teams: []domain.TeamEntry{
			{ID: "red", Placement: 1, Members: []domain.TeamMemberEntry{
				{UID: "a1", DisplayName: "A1"}, {UID: "a2", DisplayName: "A2"},
			}},
			{ID: "blue", Placement: 2, Members: []domain.TeamMemberEntry{
				{UID: "b1", DisplayName: "B1"}, {UID: "b2", DisplayName: "B2"},
			}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, env.revoker.DeleteMatch(ctx, "owner", report.Game.ID))

	for _, uid := range []string{"a1", "a2", "b1", "b2"} {
		rt := env.mustGetRating(t, seasonID, uid)
		assert.Equal(t, 1200, rt.CurrentRating, "uid %s", uid)
		assert.Zero(t, rt.GamesPlayed, "uid %s", uid)
		assert.Zero(t, rt.Wins, "uid %s", uid)
		assert.Zero(t, rt.Losses, "uid %s", uid)
	}
}
