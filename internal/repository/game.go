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

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrGameAlreadyDeleted = errors.New("game already deleted")
)

type GameRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewGameRepository(sqlDB *sql.DB, logger zerolog.Logger) *GameRepository {
	return &GameRepository{db: sqlDB, logger: logger}
}

func (r *GameRepository) Get(ctx context.Context, gameID string) (*domain.Game, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, group_id, season_id, created_by, game_type, status, deleted_at, created_at
		FROM games WHERE id = ?`, gameID)

	var g domain.Game
	var deletedAt sql.NullTime
	err := row.Scan(&g.ID, &g.GroupID, &g.SeasonID, &g.CreatedBy, &g.GameType, &g.Status, &deletedAt, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game %s: %w", gameID, err)
	}
	if deletedAt.Valid {
		g.DeletedAt = &deletedAt.Time
	}
	return &g, nil
}

func (r *GameRepository) Insert(ctx context.Context, tx DBTX, g *domain.Game) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO games (id, group_id, season_id, created_by, game_type, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.GroupID, g.SeasonID, g.CreatedBy, g.GameType, g.Status, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert game %s: %w", g.ID, err)
	}
	return nil
}

// MarkDeleted flips the game to its deleted state. The status guard in the
// WHERE clause means a concurrent double-delete loses here even if both
// callers read the game as active.
func (r *GameRepository) MarkDeleted(ctx context.Context, tx DBTX, gameID string, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE games SET status = ?, deleted_at = ? WHERE id = ? AND status = ?`,
		domain.GameStatusDeleted, now, gameID, domain.GameStatusActive)
	if err != nil {
		return fmt.Errorf("failed to mark game %s deleted: %w", gameID, err)
	}
	return requireRow(res, ErrGameAlreadyDeleted)
}
