package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grouprank/internal/apperrors"
	"grouprank/internal/constants"
	"grouprank/internal/domain"
	"grouprank/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// SeasonManager creates and ends seasons and re-baselines member ratings at
// season boundaries. All operations are owner-gated; any premium entitlement
// check happens upstream and an already-authorized request is trusted here.
type SeasonManager struct {
	store   *repository.Store
	groups  *repository.GroupRepository
	seasons *repository.SeasonRepository
	members *repository.MemberRepository
	ratings *repository.RatingRepository
	logger  zerolog.Logger
}

func NewSeasonManager(
	store *repository.Store,
	groups *repository.GroupRepository,
	seasons *repository.SeasonRepository,
	members *repository.MemberRepository,
	ratings *repository.RatingRepository,
	logger zerolog.Logger,
) *SeasonManager {
	return &SeasonManager{
		store:   store,
		groups:  groups,
		seasons: seasons,
		members: members,
		ratings: ratings,
		logger:  logger,
	}
}

// CreateSeason closes the group's active season (if any) and opens a new one,
// then snapshots the active roster into fresh baseline ratings.
func (s *SeasonManager) CreateSeason(ctx context.Context, callerUID, groupID, name string) (*domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if name == "" {
		return nil, apperrors.E(apperrors.KindInvalidArgument, "season name is required")
	}
	group, err := s.ownedGroup(ctx, callerUID, groupID)
	if err != nil {
		return nil, err
	}
	return s.rollSeason(ctx, group, name)
}

// EndSeason deactivates the given season and returns the replacement season
// created in its place.
func (s *SeasonManager) EndSeason(ctx context.Context, callerUID, groupID, seasonID string) (*domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	group, err := s.ownedGroup(ctx, callerUID, groupID)
	if err != nil {
		return nil, err
	}

	season, err := s.seasons.Get(ctx, seasonID)
	if err != nil {
		if errors.Is(err, repository.ErrSeasonNotFound) {
			return nil, apperrors.Ef(apperrors.KindNotFound, "season %s not found", seasonID)
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load season")
	}
	if season.GroupID != groupID {
		return nil, apperrors.Ef(apperrors.KindInvalidArgument, "season %s does not belong to group %s", seasonID, groupID)
	}
	if !season.IsActive {
		return nil, apperrors.E(apperrors.KindFailedPrecondition, "season is already ended")
	}

	name := fmt.Sprintf("Season %s", time.Now().UTC().Format("2006-01-02"))
	return s.rollSeason(ctx, group, name)
}

// rollSeason performs the boundary switch and the roster snapshot in one
// atomic batch; a roster beyond the per-batch limit spills into sequential
// follow-up batches.
func (s *SeasonManager) rollSeason(ctx context.Context, group *domain.Group, name string) (*domain.Season, error) {
	seasonID, err := gonanoid.New()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to generate season id")
	}

	now := time.Now().UTC()
	season := &domain.Season{
		ID:        seasonID,
		GroupID:   group.ID,
		Name:      name,
		IsActive:  true,
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	roster, err := s.members.ListActiveByGroup(ctx, group.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load group roster")
	}

	// The first roster chunk rides in the switch batch, so a group that fits
	// the batch limit gets its boundary switch and all baselines atomically.
	// Only the overflow runs in follow-up batches.
	first := roster
	var rest []domain.Member
	if len(roster) > constants.DBBatchSize {
		first = roster[:constants.DBBatchSize]
		rest = roster[constants.DBBatchSize:]
	}

	err = s.store.RunBatch(ctx, func(tx repository.DBTX) error {
		fresh, err := s.groups.GetTx(ctx, tx, group.ID)
		if err != nil {
			return err
		}
		if fresh.CurrentSeasonID != "" {
			if err := s.seasons.Deactivate(ctx, tx, fresh.CurrentSeasonID, now); err != nil && !errors.Is(err, repository.ErrSeasonNotFound) {
				return err
			}
		}
		if err := s.seasons.Insert(ctx, tx, season); err != nil {
			return err
		}
		if err := s.groups.SetCurrentSeason(ctx, tx, group.ID, seasonID); err != nil {
			return err
		}
		for _, m := range first {
			if err := s.ratings.Upsert(ctx, tx, baselineRating(season.ID, season.GroupID, m.UID, now)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("group_id", group.ID).Msg("season switch batch failed")
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to create season")
	}

	if err := s.snapshotRoster(ctx, season, rest, now); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("group_id", group.ID).
		Str("season_id", seasonID).
		Str("season_name", name).
		Int("member_count", len(roster)).
		Msg("season created")
	return season, nil
}

func (s *SeasonManager) snapshotRoster(ctx context.Context, season *domain.Season, roster []domain.Member, now time.Time) error {
	for start := 0; start < len(roster); start += constants.DBBatchSize {
		end := start + constants.DBBatchSize
		if end > len(roster) {
			end = len(roster)
		}

		chunk := roster[start:end]
		err := s.store.RunBatch(ctx, func(tx repository.DBTX) error {
			for _, m := range chunk {
				rt := baselineRating(season.ID, season.GroupID, m.UID, now)
				if err := s.ratings.Upsert(ctx, tx, rt); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Error().Err(err).Str("season_id", season.ID).Int("chunk_start", start).Msg("roster snapshot batch failed")
			return apperrors.Wrap(apperrors.KindInternal, err, "failed to snapshot roster ratings")
		}
	}
	return nil
}

// ResetSeasonRatings overwrites every rating in the season to the baseline.
// The rating-change history is deliberately left untouched: a reset is a new
// baseline for the season, not a rewrite of what happened before it.
func (s *SeasonManager) ResetSeasonRatings(ctx context.Context, callerUID, groupID, seasonID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if _, err := s.ownedGroup(ctx, callerUID, groupID); err != nil {
		return err
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

	now := time.Now().UTC()
	var reset int
	err = s.store.RunBatch(ctx, func(tx repository.DBTX) error {
		var err error
		reset, err = s.ratings.ResetSeason(ctx, tx, seasonID, now)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("season_id", seasonID).Msg("season reset batch failed")
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to reset season ratings")
	}

	s.logger.Info().
		Str("group_id", groupID).
		Str("season_id", seasonID).
		Int("ratings_reset", reset).
		Msg("season ratings reset")
	return nil
}

func (s *SeasonManager) ownedGroup(ctx context.Context, callerUID, groupID string) (*domain.Group, error) {
	if callerUID == "" {
		return nil, apperrors.E(apperrors.KindInvalidArgument, "caller uid is required")
	}
	if groupID == "" {
		return nil, apperrors.E(apperrors.KindInvalidArgument, "groupId is required")
	}

	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return nil, apperrors.Ef(apperrors.KindNotFound, "group %s not found", groupID)
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load group")
	}
	if group.OwnerID != callerUID {
		return nil, apperrors.E(apperrors.KindPermissionDenied, "only the group owner can manage seasons")
	}
	return group, nil
}

func baselineRating(seasonID, groupID, uid string, now time.Time) *domain.Rating {
	return &domain.Rating{
		ID:            domain.RatingID(seasonID, uid),
		SeasonID:      seasonID,
		GroupID:       groupID,
		UID:           uid,
		CurrentRating: constants.RatingInit,
		LastUpdated:   now,
	}
}
