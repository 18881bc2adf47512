package repository

import (
	"context"
	"database/sql"
	"fmt"

	"grouprank/internal/domain"

	"github.com/rs/zerolog"
)

// RatingChangeRepository is append-only: entries are inserted at report time
// and only ever read afterwards, including during reversal.
type RatingChangeRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRatingChangeRepository(sqlDB *sql.DB, logger zerolog.Logger) *RatingChangeRepository {
	return &RatingChangeRepository{db: sqlDB, logger: logger}
}

const ratingChangeColumns = `id, game_id, uid, season_id, group_id, rating_before, rating_after, rating_change, placement, is_tied, created_at`

func (r *RatingChangeRepository) InsertBatch(ctx context.Context, tx DBTX, changes []domain.RatingChange) error {
	for _, c := range changes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rating_changes (`+ratingChangeColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.GameID, c.UID, c.SeasonID, c.GroupID,
			c.RatingBefore, c.RatingAfter, c.RatingChange, c.Placement, c.IsTied, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert rating change %s: %w", c.ID, err)
		}
	}
	return nil
}

func (r *RatingChangeRepository) ListBySeasonAndUID(ctx context.Context, seasonID, uid string, limit int) ([]domain.RatingChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ratingChangeColumns+` FROM rating_changes
		WHERE season_id = ? AND uid = ? ORDER BY created_at DESC, id LIMIT ?`,
		seasonID, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rating changes for %s in season %s: %w", uid, seasonID, err)
	}
	return collectRatingChanges(rows)
}

func (r *RatingChangeRepository) ListByGame(ctx context.Context, gameID string) ([]domain.RatingChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ratingChangeColumns+` FROM rating_changes WHERE game_id = ? ORDER BY id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rating changes for game %s: %w", gameID, err)
	}
	return collectRatingChanges(rows)
}

func collectRatingChanges(rows *sql.Rows) ([]domain.RatingChange, error) {
	defer rows.Close()
	var changes []domain.RatingChange
	for rows.Next() {
		var c domain.RatingChange
		if err := rows.Scan(&c.ID, &c.GameID, &c.UID, &c.SeasonID, &c.GroupID,
			&c.RatingBefore, &c.RatingAfter, &c.RatingChange, &c.Placement, &c.IsTied, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating change: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
