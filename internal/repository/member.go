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

var ErrMemberNotFound = errors.New("member not found")

type MemberRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMemberRepository(sqlDB *sql.DB, logger zerolog.Logger) *MemberRepository {
	return &MemberRepository{db: sqlDB, logger: logger}
}

func (r *MemberRepository) Get(ctx context.Context, uid, groupID string) (*domain.Member, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT uid, group_id, display_name, photo_url, is_active, joined_at, updated_at
		FROM members WHERE id = ?`, domain.MemberID(uid, groupID))

	var m domain.Member
	err := row.Scan(&m.UID, &m.GroupID, &m.DisplayName, &m.PhotoURL, &m.IsActive, &m.JoinedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member %s in group %s: %w", uid, groupID, err)
	}
	return &m, nil
}

func (r *MemberRepository) ListActiveByGroup(ctx context.Context, groupID string) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uid, group_id, display_name, photo_url, is_active, joined_at, updated_at
		FROM members WHERE group_id = ? AND is_active = TRUE ORDER BY joined_at`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of group %s: %w", groupID, err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UID, &m.GroupID, &m.DisplayName, &m.PhotoURL, &m.IsActive, &m.JoinedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *MemberRepository) Insert(ctx context.Context, tx DBTX, m *domain.Member) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO members (id, uid, group_id, display_name, photo_url, is_active, joined_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		domain.MemberID(m.UID, m.GroupID), m.UID, m.GroupID, m.DisplayName, m.PhotoURL, m.IsActive, m.JoinedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert member %s into group %s: %w", m.UID, m.GroupID, err)
	}
	return nil
}

func (r *MemberRepository) SetActive(ctx context.Context, tx DBTX, uid, groupID string, active bool, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE members SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, now, domain.MemberID(uid, groupID))
	if err != nil {
		return fmt.Errorf("failed to update member %s in group %s: %w", uid, groupID, err)
	}
	return requireRow(res, ErrMemberNotFound)
}
