package service

import (
	"context"
	"errors"
	"time"

	"grouprank/internal/apperrors"
	"grouprank/internal/constants"
	"grouprank/internal/domain"
	"grouprank/internal/ledger"
	"grouprank/internal/repository"

	"github.com/rs/zerolog"
)

// MatchRevoker soft-deletes a game and reverses its rating effect exactly
// once. The ledger entries stay in place; only the aggregates move back.
type MatchRevoker struct {
	store        *repository.Store
	groups       *repository.GroupRepository
	seasons      *repository.SeasonRepository
	ratings      *repository.RatingRepository
	games        *repository.GameRepository
	participants *repository.ParticipantRepository
	ledger       *ledger.Ledger
	logger       zerolog.Logger
}

func NewMatchRevoker(
	store *repository.Store,
	groups *repository.GroupRepository,
	seasons *repository.SeasonRepository,
	ratings *repository.RatingRepository,
	games *repository.GameRepository,
	participants *repository.ParticipantRepository,
	l *ledger.Ledger,
	logger zerolog.Logger,
) *MatchRevoker {
	return &MatchRevoker{
		store:        store,
		groups:       groups,
		seasons:      seasons,
		ratings:      ratings,
		games:        games,
		participants: participants,
		ledger:       l,
		logger:       logger,
	}
}

// DeleteMatch marks the game deleted and writes the reversed aggregates in
// one atomic batch. Only the group owner or the original reporter may delete;
// deleting twice fails on the second call with no further mutation.
func (s *MatchRevoker) DeleteMatch(ctx context.Context, callerUID, gameID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if callerUID == "" {
		return apperrors.E(apperrors.KindInvalidArgument, "caller uid is required")
	}
	if gameID == "" {
		return apperrors.E(apperrors.KindInvalidArgument, "gameId is required")
	}

	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		if errors.Is(err, repository.ErrGameNotFound) {
			return apperrors.Ef(apperrors.KindNotFound, "game %s not found", gameID)
		}
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to load game")
	}
	if game.Status == domain.GameStatusDeleted {
		return apperrors.E(apperrors.KindFailedPrecondition, "game is already deleted")
	}

	group, err := s.groups.Get(ctx, game.GroupID)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to load group")
	}
	if callerUID != group.OwnerID && callerUID != game.CreatedBy {
		return apperrors.E(apperrors.KindPermissionDenied, "only the group owner or the match reporter can delete a match")
	}

	participants, err := s.participants.ListByGame(ctx, gameID)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to load participants")
	}
	if len(participants) == 0 {
		// A game without participants cannot have moved any rating; treat it
		// as corrupt state rather than silently marking it deleted.
		return apperrors.Ef(apperrors.KindInternal, "game %s has no participants", gameID)
	}

	uids := make([]string, len(participants))
	for i, p := range participants {
		uids[i] = p.UID
	}
	current, err := s.ratings.GetMap(ctx, game.SeasonID, uids)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to load ratings")
	}

	now := time.Now().UTC()
	reversed := s.ledger.BuildReversal(game, participants, current, now)

	err = s.store.RunBatch(ctx, func(tx repository.DBTX) error {
		if err := s.games.MarkDeleted(ctx, tx, gameID, now); err != nil {
			return err
		}
		for i := range reversed {
			if err := s.ratings.Upsert(ctx, tx, &reversed[i]); err != nil {
				return err
			}
		}
		if err := s.groups.IncrementGameCount(ctx, tx, game.GroupID, -1); err != nil {
			return err
		}
		return s.seasons.IncrementGameCount(ctx, tx, game.SeasonID, -1)
	})
	if err != nil {
		if errors.Is(err, repository.ErrGameAlreadyDeleted) {
			return apperrors.E(apperrors.KindFailedPrecondition, "game is already deleted")
		}
		s.logger.Error().Err(err).Str("game_id", gameID).Msg("match reversal batch failed")
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to reverse match")
	}

	s.logger.Info().
		Str("game_id", gameID).
		Str("group_id", game.GroupID).
		Str("season_id", game.SeasonID).
		Int("reversed_ratings", len(reversed)).
		Msg("match deleted and ratings reversed")
	return nil
}
