package service

import (
	"context"
	"errors"

	"grouprank/internal/apperrors"
	"grouprank/internal/constants"
	"grouprank/internal/domain"
	"grouprank/internal/repository"

	"github.com/rs/zerolog"
)

// LeaderboardService is the read side: season standings and per-player
// rating history, gated to group members.
type LeaderboardService struct {
	groups  *repository.GroupRepository
	seasons *repository.SeasonRepository
	members *repository.MemberRepository
	ratings *repository.RatingRepository
	changes *repository.RatingChangeRepository
	logger  zerolog.Logger
}

func NewLeaderboardService(
	groups *repository.GroupRepository,
	seasons *repository.SeasonRepository,
	members *repository.MemberRepository,
	ratings *repository.RatingRepository,
	changes *repository.RatingChangeRepository,
	logger zerolog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		groups:  groups,
		seasons: seasons,
		members: members,
		ratings: ratings,
		changes: changes,
		logger:  logger,
	}
}

func (s *LeaderboardService) GetLeaderboard(ctx context.Context, callerUID, groupID, seasonID string) ([]domain.Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if err := s.requireMember(ctx, callerUID, groupID, seasonID); err != nil {
		return nil, err
	}

	ratings, err := s.ratings.ListBySeason(ctx, seasonID, constants.LeaderboardLimit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load leaderboard")
	}
	return ratings, nil
}

func (s *LeaderboardService) GetPlayerHistory(ctx context.Context, callerUID, groupID, seasonID, uid string) ([]domain.RatingChange, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if uid == "" {
		return nil, apperrors.E(apperrors.KindInvalidArgument, "uid is required")
	}
	if err := s.requireMember(ctx, callerUID, groupID, seasonID); err != nil {
		return nil, err
	}

	history, err := s.changes.ListBySeasonAndUID(ctx, seasonID, uid, constants.HistoryLimit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load rating history")
	}
	return history, nil
}

func (s *LeaderboardService) requireMember(ctx context.Context, callerUID, groupID, seasonID string) error {
	if callerUID == "" {
		return apperrors.E(apperrors.KindInvalidArgument, "caller uid is required")
	}
	if groupID == "" || seasonID == "" {
		return apperrors.E(apperrors.KindInvalidArgument, "groupId and seasonId are required")
	}

	season, err := s.seasons.Get(ctx, seasonID)
	if err != nil {
		if errors.Is(err, repository.ErrSeasonNotFound) {
			return apperrors.Ef(apperrors.KindNotFound, "season %s not found", seasonID)
		}
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to load season")
	}
	if season.GroupID != groupID {
		return apperrors.Ef(apperrors.KindInvalidArgument, "season %s does not belong to group %s", seasonID, groupID)
	}

	member, err := s.members.Get(ctx, callerUID, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return apperrors.E(apperrors.KindPermissionDenied, "caller is not a member of this group")
		}
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to load member")
	}
	if !member.IsActive {
		return apperrors.E(apperrors.KindPermissionDenied, "caller is not an active member of this group")
	}
	return nil
}
