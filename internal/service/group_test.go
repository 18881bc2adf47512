package service

import (
	"context"
	"testing"

	"grouprank/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroupSeedsOwnerAndSeason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.groupSvc.CreateGroup(ctx, "owner", "Owner", "Test League")
	require.NoError(t, err)
	assert.Equal(t, 1, group.MemberCount)
	assert.NotEmpty(t, group.CurrentSeasonID)

	season, err := env.seasons.Get(ctx, group.CurrentSeasonID)
	require.NoError(t, err)
	assert.True(t, season.IsActive)
	assert.Equal(t, group.ID, season.GroupID)

	member, err := env.members.Get(ctx, "owner", group.ID)
	require.NoError(t, err)
	assert.True(t, member.IsActive)

	rt := env.mustGetRating(t, group.CurrentSeasonID, "owner")
	assert.Equal(t, 1200, rt.CurrentRating)
	assert.Zero(t, rt.GamesPlayed)
}

func TestJoinGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := env.seedGroup(t)

	_, err := env.groupSvc.JoinGroup(ctx, "alice", "Alice", group.ID)
	require.NoError(t, err)

	g, err := env.groups.Get(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, g.MemberCount)
	assert.Equal(t, 1200, env.mustGetRating(t, group.CurrentSeasonID, "alice").CurrentRating)

	// Duplicate active membership.
	_, err = env.groupSvc.JoinGroup(ctx, "alice", "Alice", group.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))

	_, err = env.groupSvc.JoinGroup(ctx, "alice", "Alice", "missing")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestRejoinKeepsSeasonRating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := env.seedGroup(t, "alice", "bob")

	_, err := env.reporter.ReportMatch(ctx, "owner", twoPlayerInput(group, "alice", "bob"))
	require.NoError(t, err)

	require.NoError(t, env.groupSvc.LeaveGroup(ctx, "alice", group.ID))
	_, err = env.groupSvc.JoinGroup(ctx, "alice", "Alice", group.ID)
	require.NoError(t, err)

	// Rejoining does not clobber the rating earned earlier in the season.
	rt := env.mustGetRating(t, group.CurrentSeasonID, "alice")
	assert.Equal(t, 1216, rt.CurrentRating)
	assert.Equal(t, 1, rt.GamesPlayed)
}

func TestLeaveGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := env.seedGroup(t, "alice")

	require.NoError(t, env.groupSvc.LeaveGroup(ctx, "alice", group.ID))

	g, err := env.groups.Get(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, g.MemberCount)

	member, err := env.members.Get(ctx, "alice", group.ID)
	require.NoError(t, err)
	assert.False(t, member.IsActive)

	// Leaving twice is a precondition failure, and the owner cannot leave.
	err = env.groupSvc.LeaveGroup(ctx, "alice", group.ID)
	assert.Equal(t, apperrors.KindFailedPrecondition, apperrors.KindOf(err))
	err = env.groupSvc.LeaveGroup(ctx, "owner", group.ID)
	assert.Equal(t, apperrors.KindFailedPrecondition, apperrors.KindOf(err))
}

func TestLeaderboardOrderingAndGating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := env.seedGroup(t, "alice", "bob", "carol")
	seasonID := group.CurrentSeasonID

	for _, m := range [][2]string{{"alice", "bob"}, {"alice", "carol"}, {"bob", "carol"}} {
		_, err := env.reporter.ReportMatch(ctx, "owner", twoPlayerInput(group, m[0], m[1]))
		require.NoError(t, err)
	}

	ratings, err := env.leaderboard.GetLeaderboard(ctx, "alice", group.ID, seasonID)
	require.NoError(t, err)
	require.Len(t, ratings, 4)
	for i := 1; i < len(ratings); i++ {
		assert.GreaterOrEqual(t, ratings[i-1].CurrentRating, ratings[i].CurrentRating)
	}
	assert.Equal(t, "alice", ratings[0].UID)

	_, err = env.leaderboard.GetLeaderboard(ctx, "stranger", group.ID, seasonID)
	assert.Equal(t, apperrors.KindPermissionDenied, apperrors.KindOf(err))

	history, err := env.leaderboard.GetPlayerHistory(ctx, "bob", group.ID, seasonID, "alice")
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, c := range history {
		assert.Equal(t, "alice", c.UID)
		assert.Equal(t, c.RatingChange, c.RatingAfter-c.RatingBefore)
	}
}
