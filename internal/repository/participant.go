package repository

import (
	"context"
	"database/sql"
	"fmt"

	"grouprank/internal/domain"

	"github.com/rs/zerolog"
)

type ParticipantRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewParticipantRepository(sqlDB *sql.DB, logger zerolog.Logger) *ParticipantRepository {
	return &ParticipantRepository{db: sqlDB, logger: logger}
}

func (r *ParticipantRepository) InsertBatch(ctx context.Context, tx DBTX, participants []domain.Participant) error {
	for _, p := range participants {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO participants (game_id, uid, display_name, photo_url, placement, is_tied,
				rating_before, rating_after, rating_change, team_id, team_name, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.GameID, p.UID, p.DisplayName, p.PhotoURL, p.Placement, p.IsTied,
			p.RatingBefore, p.RatingAfter, p.RatingChange, p.TeamID, p.TeamName, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert participant %s in game %s: %w", p.UID, p.GameID, err)
		}
	}
	return nil
}

func (r *ParticipantRepository) ListByGame(ctx context.Context, gameID string) ([]domain.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT game_id, uid, display_name, photo_url, placement, is_tied,
			rating_before, rating_after, rating_change, team_id, team_name, created_at
		FROM participants WHERE game_id = ? ORDER BY placement, uid`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of game %s: %w", gameID, err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.GameID, &p.UID, &p.DisplayName, &p.PhotoURL, &p.Placement, &p.IsTied,
			&p.RatingBefore, &p.RatingAfter, &p.RatingChange, &p.TeamID, &p.TeamName, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
