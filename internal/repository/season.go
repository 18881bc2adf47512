package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"grouprank/internal/domain"

	"github.com/rs/zerolog"
)

var ErrSeasonNotFound = errors.New("season not found")

type SeasonRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSeasonRepository(sqlDB *sql.DB, logger zerolog.Logger) *SeasonRepository {
	return &SeasonRepository{db: sqlDB, logger: logger}
}

func (r *SeasonRepository) Get(ctx context.Context, seasonID string) (*domain.Season, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, group_id, name, is_active, start_date, end_date, game_count, created_at, updated_at
		FROM seasons WHERE id = ?`, seasonID)
	return scanSeason(row, seasonID)
}

func (r *SeasonRepository) GetActiveByGroup(ctx context.Context, groupID string) (*domain.Season, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, group_id, name, is_active, start_date, end_date, game_count, created_at, updated_at
		FROM seasons WHERE group_id = ? AND is_active = TRUE`, groupID)
	return scanSeason(row, groupID)
}

func scanSeason(row *sql.Row, key string) (*domain.Season, error) {
	var s domain.Season
	var endDate sql.NullTime
	err := row.Scan(&s.ID, &s.GroupID, &s.Name, &s.IsActive, &s.StartDate,
		&endDate, &s.GameCount, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeasonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get season %s: %w", key, err)
	}
	if endDate.Valid {
		s.EndDate = &endDate.Time
	}
	return &s, nil
}

func (r *SeasonRepository) Insert(ctx context.Context, tx DBTX, s *domain.Season) error {
	var endDate any
	if s.EndDate != nil {
		endDate = *s.EndDate
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO seasons (id, group_id, name, is_active, start_date, end_date, game_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.GroupID, s.Name, s.IsActive, s.StartDate, endDate, s.GameCount, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert season %s: %w", s.ID, err)
	}
	return nil
}

// Deactivate closes a season: clears the active flag and stamps its end date.
func (r *SeasonRepository) Deactivate(ctx context.Context, tx DBTX, seasonID string, endDate time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE seasons SET is_active = FALSE, end_date = ?, updated_at = ? WHERE id = ?`,
		endDate, endDate, seasonID)
	if err != nil {
		return fmt.Errorf("failed to deactivate season %s: %w", seasonID, err)
	}
	return requireRow(res, ErrSeasonNotFound)
}

func (r *SeasonRepository) IncrementGameCount(ctx context.Context, tx DBTX, seasonID string, delta int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE seasons SET game_count = MAX(0, game_count + ?), updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta, seasonID)
	if err != nil {
		return fmt.Errorf("failed to adjust game count for season %s: %w", seasonID, err)
	}
	return requireRow(res, ErrSeasonNotFound)
}
