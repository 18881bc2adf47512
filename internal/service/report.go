package service

import (
	"context"
	"errors"
	"time"

	"grouprank/internal/apperrors"
	"grouprank/internal/constants"
	"grouprank/internal/domain"
	"grouprank/internal/elo"
	"grouprank/internal/ledger"
	"grouprank/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MatchReport is the result of one accepted match submission.
type MatchReport struct {
	Game         *domain.Game
	Participants []domain.Participant
}

// MatchReporter orchestrates a single match submission: validation, snapshot
// loads, delta computation and one atomic batch of writes.
type MatchReporter struct {
	store        *repository.Store
	groups       *repository.GroupRepository
	seasons      *repository.SeasonRepository
	members      *repository.MemberRepository
	ratings      *repository.RatingRepository
	games        *repository.GameRepository
	participants *repository.ParticipantRepository
	changes      *repository.RatingChangeRepository
	ledger       *ledger.Ledger
	logger       zerolog.Logger
}

func NewMatchReporter(
	store *repository.Store,
	groups *repository.GroupRepository,
	seasons *repository.SeasonRepository,
	members *repository.MemberRepository,
	ratings *repository.RatingRepository,
	games *repository.GameRepository,
	participants *repository.ParticipantRepository,
	changes *repository.RatingChangeRepository,
	l *ledger.Ledger,
	logger zerolog.Logger,
) *MatchReporter {
	return &MatchReporter{
		store:        store,
		groups:       groups,
		seasons:      seasons,
		members:      members,
		ratings:      ratings,
		games:        games,
		participants: participants,
		changes:      changes,
		ledger:       l,
		logger:       logger,
	}
}

// ReportMatch validates and persists one match. The whole write-set (game,
// participants, ratings, ledger entries, counters) lands in one atomic batch;
// a failure anywhere leaves no partial state behind.
//
// Two overlapping reports that read the same rating snapshot race: the second
// batch overwrites the first's aggregate and one delta is lost. There is no
// per-(season, uid) version check here; callers needing stronger guarantees
// must serialize their own submissions.
func (s *MatchReporter) ReportMatch(ctx context.Context, callerUID string, in domain.ReportMatchInput) (*MatchReport, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if err := validateReportInput(callerUID, in); err != nil {
		return nil, err
	}

	group, season, err := s.loadContext(ctx, callerUID, in.GroupID, in.SeasonID)
	if err != nil {
		return nil, err
	}

	uids := collectUIDs(in)
	priorRatings, err := s.ratings.GetMap(ctx, season.ID, uids)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load ratings")
	}

	var results []ledger.ParticipantResult
	if in.Mode() == domain.GameTypeTeams {
		results = computeTeamResults(in.Teams, priorRatings)
	} else {
		results = computeIndividualResults(in.Players, priorRatings)
	}

	gameID, err := gonanoid.New()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to generate game id")
	}

	now := time.Now().UTC()
	game := &domain.Game{
		ID:        gameID,
		GroupID:   group.ID,
		SeasonID:  season.ID,
		CreatedBy: callerUID,
		GameType:  in.Mode(),
		Status:    domain.GameStatusActive,
		CreatedAt: now,
	}
	ws := s.ledger.BuildForward(gameID, season.ID, group.ID, now, results, priorRatings)

	err = s.store.RunBatch(ctx, func(tx repository.DBTX) error {
		if err := s.games.Insert(ctx, tx, game); err != nil {
			return err
		}
		if err := s.participants.InsertBatch(ctx, tx, ws.Participants); err != nil {
			return err
		}
		for i := range ws.Ratings {
			if err := s.ratings.Upsert(ctx, tx, &ws.Ratings[i]); err != nil {
				return err
			}
		}
		if err := s.changes.InsertBatch(ctx, tx, ws.RatingChanges); err != nil {
			return err
		}
		if err := s.groups.IncrementGameCount(ctx, tx, group.ID, 1); err != nil {
			return err
		}
		return s.seasons.IncrementGameCount(ctx, tx, season.ID, 1)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("group_id", group.ID).Str("season_id", season.ID).Msg("match report batch failed")
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to persist match")
	}

	s.logger.Info().
		Str("game_id", gameID).
		Str("group_id", group.ID).
		Str("season_id", season.ID).
		Str("game_type", string(game.GameType)).
		Int("participant_count", len(ws.Participants)).
		Msg("match reported")

	return &MatchReport{Game: game, Participants: ws.Participants}, nil
}

// loadContext fetches the group, the season and the caller's membership
// concurrently and enforces the submission preconditions. Each lookup keeps
// its own error so classification is deterministic: a missing group always
// surfaces as not-found even though the membership row is absent too.
func (s *MatchReporter) loadContext(ctx context.Context, callerUID, groupID, seasonID string) (*domain.Group, *domain.Season, error) {
	var (
		group  *domain.Group
		season *domain.Season
		member *domain.Member

		groupErr, seasonErr, memberErr error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		group, groupErr = s.groups.Get(gCtx, groupID)
		return nil
	})
	g.Go(func() error {
		season, seasonErr = s.seasons.Get(gCtx, seasonID)
		return nil
	})
	g.Go(func() error {
		member, memberErr = s.members.Get(gCtx, callerUID, groupID)
		return nil
	})
	_ = g.Wait()

	switch {
	case errors.Is(groupErr, repository.ErrGroupNotFound):
		return nil, nil, apperrors.Ef(apperrors.KindNotFound, "group %s not found", groupID)
	case groupErr != nil:
		return nil, nil, apperrors.Wrap(apperrors.KindInternal, groupErr, "failed to load group")
	case errors.Is(seasonErr, repository.ErrSeasonNotFound):
		return nil, nil, apperrors.Ef(apperrors.KindNotFound, "season %s not found", seasonID)
	case seasonErr != nil:
		return nil, nil, apperrors.Wrap(apperrors.KindInternal, seasonErr, "failed to load season")
	case errors.Is(memberErr, repository.ErrMemberNotFound):
		return nil, nil, apperrors.E(apperrors.KindPermissionDenied, "caller is not a member of this group")
	case memberErr != nil:
		return nil, nil, apperrors.Wrap(apperrors.KindInternal, memberErr, "failed to load member")
	}

	if season.GroupID != group.ID {
		return nil, nil, apperrors.Ef(apperrors.KindInvalidArgument, "season %s does not belong to group %s", seasonID, groupID)
	}
	if !member.IsActive {
		return nil, nil, apperrors.E(apperrors.KindPermissionDenied, "caller is not an active member of this group")
	}
	return group, season, nil
}

func collectUIDs(in domain.ReportMatchInput) []string {
	var uids []string
	if in.Mode() == domain.GameTypeTeams {
		for _, t := range in.Teams {
			for _, m := range t.Members {
				uids = append(uids, m.UID)
			}
		}
		return uids
	}
	for _, p := range in.Players {
		uids = append(uids, p.UID)
	}
	return uids
}

func computeIndividualResults(players []domain.PlayerEntry, prior map[string]domain.Rating) []ledger.ParticipantResult {
	entrants := make([]elo.Entrant, len(players))
	for i, p := range players {
		rating, games := snapshotOf(prior, p.UID)
		entrants[i] = elo.Entrant{
			Key:         p.UID,
			Rating:      rating,
			GamesPlayed: float64(games),
			Placement:   p.Placement,
			IsTied:      p.IsTied,
		}
	}

	deltas := elo.ComputeDeltas(entrants)
	results := make([]ledger.ParticipantResult, len(players))
	for i, p := range players {
		results[i] = ledger.ParticipantResult{
			UID:          p.UID,
			DisplayName:  p.DisplayName,
			PhotoURL:     p.PhotoURL,
			Placement:    p.Placement,
			IsTied:       p.IsTied,
			RatingBefore: deltas[i].RatingBefore,
			RatingAfter:  deltas[i].RatingAfter,
			Delta:        deltas[i].Delta,
		}
	}
	return results
}

// computeTeamResults runs the pairwise pass at team level (mean rating, mean
// games played) and fans each team's delta out to all of its members.
func computeTeamResults(teams []domain.TeamEntry, prior map[string]domain.Rating) []ledger.ParticipantResult {
	entrants := make([]elo.Entrant, len(teams))
	for i, t := range teams {
		ratings := make([]int, len(t.Members))
		games := make([]int, len(t.Members))
		for j, m := range t.Members {
			ratings[j], games[j] = snapshotOf(prior, m.UID)
		}
		entrants[i] = elo.Entrant{
			Key:         t.ID,
			Rating:      elo.TeamRating(ratings),
			GamesPlayed: elo.TeamGamesPlayed(games),
			Placement:   t.Placement,
			IsTied:      t.IsTied,
		}
	}

	deltas := elo.ComputeDeltas(entrants)
	var results []ledger.ParticipantResult
	for i, t := range teams {
		for _, m := range t.Members {
			rating, _ := snapshotOf(prior, m.UID)
			results = append(results, ledger.ParticipantResult{
				UID:          m.UID,
				DisplayName:  m.DisplayName,
				PhotoURL:     m.PhotoURL,
				Placement:    t.Placement,
				IsTied:       t.IsTied,
				RatingBefore: rating,
				RatingAfter:  rating + deltas[i].Delta,
				Delta:        deltas[i].Delta,
				TeamID:       t.ID,
				TeamName:     t.Name,
			})
		}
	}
	return results
}

func snapshotOf(prior map[string]domain.Rating, uid string) (rating, gamesPlayed int) {
	if rt, ok := prior[uid]; ok {
		return rt.CurrentRating, rt.GamesPlayed
	}
	return constants.RatingInit, 0
}

// validateReportInput front-loads every shape check so no read or write
// happens for a malformed submission.
func validateReportInput(callerUID string, in domain.ReportMatchInput) error {
	if callerUID == "" {
		return apperrors.E(apperrors.KindInvalidArgument, "caller uid is required")
	}
	if in.GroupID == "" {
		return apperrors.E(apperrors.KindInvalidArgument, "groupId is required")
	}
	if in.SeasonID == "" {
		return apperrors.E(apperrors.KindInvalidArgument, "seasonId is required")
	}
	if len(in.Players) > 0 && len(in.Teams) > 0 {
		return apperrors.E(apperrors.KindInvalidArgument, "participants and teams are mutually exclusive")
	}
	if len(in.Players) == 0 && len(in.Teams) == 0 {
		return apperrors.E(apperrors.KindInvalidArgument, "either participants or teams must be provided")
	}

	if in.Mode() == domain.GameTypeTeams {
		return validateTeams(in.Teams)
	}
	return validatePlayers(in.Players)
}

func validatePlayers(players []domain.PlayerEntry) error {
	if len(players) < 2 {
		return apperrors.E(apperrors.KindInvalidArgument, "at least 2 participants are required")
	}
	if len(players) > constants.MaxMatchEntrants {
		return apperrors.Ef(apperrors.KindInvalidArgument, "at most %d participants are allowed", constants.MaxMatchEntrants)
	}
	seen := make(map[string]bool, len(players))
	placements := make(map[int]int, len(players))
	for i, p := range players {
		if p.UID == "" {
			return apperrors.Ef(apperrors.KindInvalidArgument, "participant %d is missing uid", i)
		}
		if p.Placement < 1 {
			return apperrors.Ef(apperrors.KindInvalidArgument, "participant %s has invalid placement %d", p.UID, p.Placement)
		}
		if seen[p.UID] {
			return apperrors.Ef(apperrors.KindInvalidArgument, "participant %s appears more than once", p.UID)
		}
		seen[p.UID] = true
		placements[p.Placement]++
	}
	for _, p := range players {
		shared := placements[p.Placement] > 1
		if shared && !p.IsTied {
			return apperrors.Ef(apperrors.KindInvalidArgument, "participant %s shares placement %d but is not marked tied", p.UID, p.Placement)
		}
		if !shared && p.IsTied {
			return apperrors.Ef(apperrors.KindInvalidArgument, "participant %s is marked tied but holds placement %d alone", p.UID, p.Placement)
		}
	}
	return nil
}

func validateTeams(teams []domain.TeamEntry) error {
	if len(teams) < 2 {
		return apperrors.E(apperrors.KindInvalidArgument, "at least 2 teams are required")
	}
	if len(teams) > constants.MaxMatchEntrants {
		return apperrors.Ef(apperrors.KindInvalidArgument, "at most %d teams are allowed", constants.MaxMatchEntrants)
	}
	seenTeams := make(map[string]bool, len(teams))
	seenUIDs := make(map[string]bool)
	placements := make(map[int]int, len(teams))
	for i, t := range teams {
		if t.ID == "" {
			return apperrors.Ef(apperrors.KindInvalidArgument, "team %d is missing id", i)
		}
		if seenTeams[t.ID] {
			return apperrors.Ef(apperrors.KindInvalidArgument, "team %s appears more than once", t.ID)
		}
		seenTeams[t.ID] = true
		if t.Placement < 1 {
			return apperrors.Ef(apperrors.KindInvalidArgument, "team %s has invalid placement %d", t.ID, t.Placement)
		}
		placements[t.Placement]++
		if len(t.Members) == 0 {
			return apperrors.Ef(apperrors.KindInvalidArgument, "team %s has no members", t.ID)
		}
		if len(t.Members) > constants.MaxTeamMembers {
			return apperrors.Ef(apperrors.KindInvalidArgument, "team %s exceeds %d members", t.ID, constants.MaxTeamMembers)
		}
		for _, m := range t.Members {
			if m.UID == "" {
				return apperrors.Ef(apperrors.KindInvalidArgument, "team %s has a member without uid", t.ID)
			}
			if seenUIDs[m.UID] {
				return apperrors.Ef(apperrors.KindInvalidArgument, "player %s appears on more than one team", m.UID)
			}
			seenUIDs[m.UID] = true
		}
	}
	for _, t := range teams {
		shared := placements[t.Placement] > 1
		if shared && !t.IsTied {
			return apperrors.Ef(apperrors.KindInvalidArgument, "team %s shares placement %d but is not marked tied", t.ID, t.Placement)
		}
		if !shared && t.IsTied {
			return apperrors.Ef(apperrors.KindInvalidArgument, "team %s is marked tied but holds placement %d alone", t.ID, t.Placement)
		}
	}
	return nil
}
