// Package ledger translates computed match results into the durable write-set
// for one game, and builds the inverse write-set when a game is revoked.
package ledger

import (
	"time"

	"grouprank/internal/constants"
	"grouprank/internal/domain"

	"github.com/rs/zerolog"
)

// ParticipantResult is one player's computed outcome, team annotations
// included when the match was reported in team mode.
type ParticipantResult struct {
	UID          string
	DisplayName  string
	PhotoURL     string
	Placement    int
	IsTied       bool
	RatingBefore int
	RatingAfter  int
	Delta        int
	TeamID       string
	TeamName     string
}

// WriteSet is everything one reported match adds to the store. It is written
// in a single atomic batch together with the game row and counter bumps.
type WriteSet struct {
	Participants  []domain.Participant
	Ratings       []domain.Rating
	RatingChanges []domain.RatingChange
}

type Ledger struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Ledger {
	return &Ledger{logger: logger}
}

// outcome classifies one placement within a match. Ties are draws; win and
// loss apply only to untied first and last placements.
type outcome struct {
	win, loss, draw bool
}

func classify(placement int, isTied bool, maxPlacement int) outcome {
	if isTied {
		return outcome{draw: true}
	}
	return outcome{win: placement == 1, loss: placement == maxPlacement}
}

func maxPlacementOfResults(results []ParticipantResult) int {
	max := 0
	for _, r := range results {
		if r.Placement > max {
			max = r.Placement
		}
	}
	return max
}

// BuildForward produces the participant records, updated rating aggregates
// and append-only ledger entries for one match. prior holds the pre-match
// aggregates keyed by uid; a uid absent from prior starts from the baseline.
func (l *Ledger) BuildForward(gameID, seasonID, groupID string, now time.Time, results []ParticipantResult, prior map[string]domain.Rating) WriteSet {
	ws := WriteSet{
		Participants:  make([]domain.Participant, 0, len(results)),
		Ratings:       make([]domain.Rating, 0, len(results)),
		RatingChanges: make([]domain.RatingChange, 0, len(results)),
	}
	maxPlacement := maxPlacementOfResults(results)

	for _, res := range results {
		ws.Participants = append(ws.Participants, domain.Participant{
			GameID:       gameID,
			UID:          res.UID,
			DisplayName:  res.DisplayName,
			PhotoURL:     res.PhotoURL,
			Placement:    res.Placement,
			IsTied:       res.IsTied,
			RatingBefore: res.RatingBefore,
			RatingAfter:  res.RatingAfter,
			RatingChange: res.Delta,
			TeamID:       res.TeamID,
			TeamName:     res.TeamName,
			CreatedAt:    now,
		})

		cur, ok := prior[res.UID]
		if !ok {
			cur = domain.Rating{
				ID:            domain.RatingID(seasonID, res.UID),
				SeasonID:      seasonID,
				GroupID:       groupID,
				UID:           res.UID,
				CurrentRating: constants.RatingInit,
			}
		}

		o := classify(res.Placement, res.IsTied, maxPlacement)
		cur.CurrentRating = res.RatingAfter
		cur.GamesPlayed++
		cur.Wins += boolToInt(o.win)
		cur.Losses += boolToInt(o.loss)
		cur.Draws += boolToInt(o.draw)
		cur.LastUpdated = now
		ws.Ratings = append(ws.Ratings, cur)

		ws.RatingChanges = append(ws.RatingChanges, domain.RatingChange{
			ID:           domain.RatingChangeID(gameID, res.UID),
			GameID:       gameID,
			UID:          res.UID,
			SeasonID:     seasonID,
			GroupID:      groupID,
			RatingBefore: res.RatingBefore,
			RatingAfter:  res.RatingAfter,
			RatingChange: res.Delta,
			Placement:    res.Placement,
			IsTied:       res.IsTied,
			CreatedAt:    now,
		})
	}
	return ws
}

// BuildReversal computes the rating aggregates that undo one game. It is a
// direct mutation of the aggregates, not a compensating ledger entry; the
// caller must have checked the game is not already deleted. A participant
// whose rating row no longer exists is skipped and logged, never fatal.
func (l *Ledger) BuildReversal(game *domain.Game, participants []domain.Participant, current map[string]domain.Rating, now time.Time) []domain.Rating {
	maxPlacement := 0
	for _, p := range participants {
		if p.Placement > maxPlacement {
			maxPlacement = p.Placement
		}
	}

	reversed := make([]domain.Rating, 0, len(participants))
	for _, p := range participants {
		cur, ok := current[p.UID]
		if !ok {
			l.logger.Warn().
				Str("game_id", game.ID).
				Str("uid", p.UID).
				Str("season_id", game.SeasonID).
				Msg("rating row missing during reversal, skipping participant")
			continue
		}

		o := classify(p.Placement, p.IsTied, maxPlacement)
		cur.CurrentRating -= p.RatingChange
		cur.GamesPlayed = floorZero(cur.GamesPlayed - 1)
		cur.Wins = floorZero(cur.Wins - boolToInt(o.win))
		cur.Losses = floorZero(cur.Losses - boolToInt(o.loss))
		cur.Draws = floorZero(cur.Draws - boolToInt(o.draw))
		cur.LastUpdated = now
		reversed = append(reversed, cur)
	}
	return reversed
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
