package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"grouprank/internal/domain"

	"github.com/rs/zerolog"
)

var ErrGroupNotFound = errors.New("group not found")

type GroupRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewGroupRepository(sqlDB *sql.DB, logger zerolog.Logger) *GroupRepository {
	return &GroupRepository{db: sqlDB, logger: logger}
}

func (r *GroupRepository) Get(ctx context.Context, groupID string) (*domain.Group, error) {
	return r.get(ctx, r.db, groupID)
}

func (r *GroupRepository) GetTx(ctx context.Context, tx DBTX, groupID string) (*domain.Group, error) {
	return r.get(ctx, tx, groupID)
}

func (r *GroupRepository) get(ctx context.Context, q DBTX, groupID string) (*domain.Group, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, owner_id, member_count, game_count, current_season_id, is_active, created_at, updated_at
		FROM groups WHERE id = ?`, groupID)

	var g domain.Group
	err := row.Scan(&g.ID, &g.Name, &g.OwnerID, &g.MemberCount, &g.GameCount,
		&g.CurrentSeasonID, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %s: %w", groupID, err)
	}
	return &g, nil
}

func (r *GroupRepository) Insert(ctx context.Context, tx DBTX, g *domain.Group) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO groups (id, name, owner_id, member_count, game_count, current_season_id, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.OwnerID, g.MemberCount, g.GameCount, g.CurrentSeasonID, g.IsActive, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert group %s: %w", g.ID, err)
	}
	return nil
}

func (r *GroupRepository) SetCurrentSeason(ctx context.Context, tx DBTX, groupID, seasonID string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE groups SET current_season_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		seasonID, groupID)
	if err != nil {
		return fmt.Errorf("failed to set current season for group %s: %w", groupID, err)
	}
	return requireRow(res, ErrGroupNotFound)
}

// IncrementGameCount adjusts the denormalized game counter inside the same
// atomic batch as the writes that change it. delta may be negative.
func (r *GroupRepository) IncrementGameCount(ctx context.Context, tx DBTX, groupID string, delta int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE groups SET game_count = MAX(0, game_count + ?), updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta, groupID)
	if err != nil {
		return fmt.Errorf("failed to adjust game count for group %s: %w", groupID, err)
	}
	return requireRow(res, ErrGroupNotFound)
}

func (r *GroupRepository) IncrementMemberCount(ctx context.Context, tx DBTX, groupID string, delta int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE groups SET member_count = MAX(0, member_count + ?), updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta, groupID)
	if err != nil {
		return fmt.Errorf("failed to adjust member count for group %s: %w", groupID, err)
	}
	return requireRow(res, ErrGroupNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
