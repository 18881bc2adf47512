package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"grouprank/internal/constants"
	"grouprank/internal/domain"

	"github.com/rs/zerolog"
)

var ErrRatingNotFound = errors.New("rating not found")

type RatingRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRatingRepository(sqlDB *sql.DB, logger zerolog.Logger) *RatingRepository {
	return &RatingRepository{db: sqlDB, logger: logger}
}

const ratingColumns = `id, season_id, group_id, uid, current_rating, games_played, wins, losses, draws, last_updated`

func (r *RatingRepository) Get(ctx context.Context, seasonID, uid string) (*domain.Rating, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings WHERE id = ?`, domain.RatingID(seasonID, uid))

	var rt domain.Rating
	err := scanRating(row.Scan, &rt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRatingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rating for %s in season %s: %w", uid, seasonID, err)
	}
	return &rt, nil
}

// GetMap returns the current ratings for the given uids keyed by uid. Absent
// uids are simply missing from the map; callers decide the default.
func (r *RatingRepository) GetMap(ctx context.Context, seasonID string, uids []string) (map[string]domain.Rating, error) {
	if len(uids) == 0 {
		return map[string]domain.Rating{}, nil
	}

	ids := make([]any, len(uids))
	for i, uid := range uids {
		ids[i] = domain.RatingID(seasonID, uid)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings WHERE id IN (`+placeholders+`)`, ids...)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings for season %s: %w", seasonID, err)
	}
	defer rows.Close()

	out := make(map[string]domain.Rating, len(uids))
	for rows.Next() {
		var rt domain.Rating
		if err := scanRating(rows.Scan, &rt); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		out[rt.UID] = rt
	}
	return out, rows.Err()
}

func (r *RatingRepository) ListBySeason(ctx context.Context, seasonID string, limit int) ([]domain.Rating, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings WHERE season_id = ? ORDER BY current_rating DESC, uid LIMIT ?`,
		seasonID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings for season %s: %w", seasonID, err)
	}
	defer rows.Close()

	var ratings []domain.Rating
	for rows.Next() {
		var rt domain.Rating
		if err := scanRating(rows.Scan, &rt); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rt)
	}
	return ratings, rows.Err()
}

// Upsert writes the full aggregate; last write wins on the document, which is
// exactly the store semantics the engine is built around.
func (r *RatingRepository) Upsert(ctx context.Context, tx DBTX, rt *domain.Rating) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ratings (`+ratingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			current_rating = excluded.current_rating,
			games_played   = excluded.games_played,
			wins           = excluded.wins,
			losses         = excluded.losses,
			draws          = excluded.draws,
			last_updated   = excluded.last_updated`,
		rt.ID, rt.SeasonID, rt.GroupID, rt.UID, rt.CurrentRating,
		rt.GamesPlayed, rt.Wins, rt.Losses, rt.Draws, rt.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to upsert rating %s: %w", rt.ID, err)
	}
	return nil
}

// InsertIfAbsent creates a baseline-style rating row only when none exists,
// so re-joining a group never clobbers accumulated season state.
func (r *RatingRepository) InsertIfAbsent(ctx context.Context, tx DBTX, rt *domain.Rating) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ratings (`+ratingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		rt.ID, rt.SeasonID, rt.GroupID, rt.UID, rt.CurrentRating,
		rt.GamesPlayed, rt.Wins, rt.Losses, rt.Draws, rt.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to insert rating %s: %w", rt.ID, err)
	}
	return nil
}

// ResetSeason overwrites every rating in the season to the fresh baseline.
// Ledger rows are untouched; a reset is a deliberate new baseline.
func (r *RatingRepository) ResetSeason(ctx context.Context, tx DBTX, seasonID string, now time.Time) (int, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE ratings
		SET current_rating = ?, games_played = 0, wins = 0, losses = 0, draws = 0, last_updated = ?
		WHERE season_id = ?`,
		constants.RatingInit, now, seasonID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset ratings for season %s: %w", seasonID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

func scanRating(scan func(dest ...any) error, rt *domain.Rating) error {
	return scan(&rt.ID, &rt.SeasonID, &rt.GroupID, &rt.UID, &rt.CurrentRating,
		&rt.GamesPlayed, &rt.Wins, &rt.Losses, &rt.Draws, &rt.LastUpdated)
}
