package service

import (
	"context"
	"errors"
	"time"

	"grouprank/internal/apperrors"
	"grouprank/internal/constants"
	"grouprank/internal/domain"
	"grouprank/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// GroupService handles group lifecycle and membership. Joining and leaving
// keep the denormalized member count and the member's season rating in the
// same atomic batch as the membership change itself.
type GroupService struct {
	store   *repository.Store
	groups  *repository.GroupRepository
	seasons *repository.SeasonRepository
	members *repository.MemberRepository
	ratings *repository.RatingRepository
	logger  zerolog.Logger
}

func NewGroupService(
	store *repository.Store,
	groups *repository.GroupRepository,
	seasons *repository.SeasonRepository,
	members *repository.MemberRepository,
	ratings *repository.RatingRepository,
	logger zerolog.Logger,
) *GroupService {
	return &GroupService{
		store:   store,
		groups:  groups,
		seasons: seasons,
		members: members,
		ratings: ratings,
		logger:  logger,
	}
}

// CreateGroup creates the group, its first season, the owner's membership and
// the owner's baseline rating in one batch.
func (s *GroupService) CreateGroup(ctx context.Context, ownerUID, ownerName, groupName string) (*domain.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if ownerUID == "" {
		return nil, apperrors.E(apperrors.KindInvalidArgument, "owner uid is required")
	}
	if groupName == "" {
		return nil, apperrors.E(apperrors.KindInvalidArgument, "group name is required")
	}

	groupID, err := gonanoid.New()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to generate group id")
	}
	seasonID, err := gonanoid.New()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to generate season id")
	}

	now := time.Now().UTC()
	group := &domain.Group{
		ID:              groupID,
		Name:            groupName,
		OwnerID:         ownerUID,
		MemberCount:     1,
		CurrentSeasonID: seasonID,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	season := &domain.Season{
		ID:        seasonID,
		GroupID:   groupID,
		Name:      "Season 1",
		IsActive:  true,
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := &domain.Member{
		UID:         ownerUID,
		GroupID:     groupID,
		DisplayName: ownerName,
		IsActive:    true,
		JoinedAt:    now,
		UpdatedAt:   now,
	}

	err = s.store.RunBatch(ctx, func(tx repository.DBTX) error {
		if err := s.groups.Insert(ctx, tx, group); err != nil {
			return err
		}
		if err := s.seasons.Insert(ctx, tx, season); err != nil {
			return err
		}
		if err := s.members.Insert(ctx, tx, owner); err != nil {
			return err
		}
		return s.ratings.Upsert(ctx, tx, baselineRating(seasonID, groupID, ownerUID, now))
	})
	if err != nil {
		s.logger.Error().Err(err).Str("owner_uid", ownerUID).Msg("group creation batch failed")
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to create group")
	}

	s.logger.Info().Str("group_id", groupID).Str("owner_uid", ownerUID).Str("name", groupName).Msg("group created")
	return group, nil
}

// JoinGroup adds (or reactivates) a member and seeds their rating for the
// current season if they have none yet.
func (s *GroupService) JoinGroup(ctx context.Context, uid, displayName, groupID string) (*domain.Member, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if uid == "" {
		return nil, apperrors.E(apperrors.KindInvalidArgument, "uid is required")
	}
	if groupID == "" {
		return nil, apperrors.E(apperrors.KindInvalidArgument, "groupId is required")
	}

	if _, err := s.groups.Get(ctx, groupID); err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return nil, apperrors.Ef(apperrors.KindNotFound, "group %s not found", groupID)
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load group")
	}

	// The baseline targets whichever season is actually active, not the
	// denormalized pointer on the group row.
	season, err := s.seasons.GetActiveByGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrSeasonNotFound) {
			return nil, apperrors.E(apperrors.KindFailedPrecondition, "group has no active season")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load active season")
	}

	existing, err := s.members.Get(ctx, uid, groupID)
	if err != nil && !errors.Is(err, repository.ErrMemberNotFound) {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load member")
	}
	if existing != nil && existing.IsActive {
		return nil, apperrors.E(apperrors.KindAlreadyExists, "already a member of this group")
	}

	now := time.Now().UTC()
	member := &domain.Member{
		UID:         uid,
		GroupID:     groupID,
		DisplayName: displayName,
		IsActive:    true,
		JoinedAt:    now,
		UpdatedAt:   now,
	}

	err = s.store.RunBatch(ctx, func(tx repository.DBTX) error {
		if existing != nil {
			if err := s.members.SetActive(ctx, tx, uid, groupID, true, now); err != nil {
				return err
			}
		} else {
			if err := s.members.Insert(ctx, tx, member); err != nil {
				return err
			}
		}
		if err := s.groups.IncrementMemberCount(ctx, tx, groupID, 1); err != nil {
			return err
		}
		// Seeds the baseline only when absent; a returning member keeps any
		// rating accumulated earlier in the season.
		return s.ratings.InsertIfAbsent(ctx, tx, baselineRating(season.ID, groupID, uid, now))
	})
	if err != nil {
		s.logger.Error().Err(err).Str("uid", uid).Str("group_id", groupID).Msg("join batch failed")
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to join group")
	}

	s.logger.Info().Str("uid", uid).Str("group_id", groupID).Msg("member joined group")
	if existing != nil {
		existing.IsActive = true
		existing.UpdatedAt = now
		return existing, nil
	}
	return member, nil
}

// LeaveGroup deactivates the membership. Ratings and ledger history stay;
// only the member flag and the member count change.
func (s *GroupService) LeaveGroup(ctx context.Context, uid, groupID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if uid == "" {
		return apperrors.E(apperrors.KindInvalidArgument, "uid is required")
	}
	if groupID == "" {
		return apperrors.E(apperrors.KindInvalidArgument, "groupId is required")
	}

	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return apperrors.Ef(apperrors.KindNotFound, "group %s not found", groupID)
		}
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to load group")
	}
	if group.OwnerID == uid {
		return apperrors.E(apperrors.KindFailedPrecondition, "the group owner cannot leave the group")
	}

	member, err := s.members.Get(ctx, uid, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return apperrors.E(apperrors.KindNotFound, "membership not found")
		}
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to load member")
	}
	if !member.IsActive {
		return apperrors.E(apperrors.KindFailedPrecondition, "membership is already inactive")
	}

	now := time.Now().UTC()
	err = s.store.RunBatch(ctx, func(tx repository.DBTX) error {
		if err := s.members.SetActive(ctx, tx, uid, groupID, false, now); err != nil {
			return err
		}
		return s.groups.IncrementMemberCount(ctx, tx, groupID, -1)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("uid", uid).Str("group_id", groupID).Msg("leave batch failed")
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to leave group")
	}

	s.logger.Info().Str("uid", uid).Str("group_id", groupID).Msg("member left group")
	return nil
}
