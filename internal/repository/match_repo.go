package repository

import (
	"context"
	"time"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MatchRepository struct {
	db *pgxpool.Pool
}

func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// Archive stores one finished match. Implements match.Archiver.
func (r *MatchRepository) Archive(ctx context.Context, rec *domain.MatchRecord) error {
	var id int64
	var createdAt time.Time
	err := r.db.QueryRow(ctx,
		`INSERT INTO matches (code, game_type, host_id, guest_id, winner, status, final_state)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, created_at`,
		rec.Code,
		rec.GameType,
		rec.HostID,
		rec.GuestID,
		rec.Winner,
		rec.Status,
		rec.FinalState,
	).Scan(&id, &createdAt)
	if err != nil {
		return err
	}

	rec.ID = id
	rec.CreatedAt = createdAt
	return nil
}

// ByPlayer lists a player's archived matches, newest first.
func (r *MatchRepository) ByPlayer(ctx context.Context, uid string, limit int) ([]*domain.MatchRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, code, game_type, host_id, guest_id, winner, status, created_at
         FROM matches
         WHERE host_id = $1 OR guest_id = $1
         ORDER BY created_at DESC
         LIMIT $2`,
		uid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.MatchRecord
	for rows.Next() {
		rec := &domain.MatchRecord{}
		if err := rows.Scan(&rec.ID, &rec.Code, &rec.GameType, &rec.HostID, &rec.GuestID,
			&rec.Winner, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}

	return res, rows.Err()
}
