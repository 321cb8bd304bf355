package repository

import (
	"context"
	"time"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TopLimit is how many entries a leaderboard panel shows.
const TopLimit = 5

type LeaderboardRepository struct {
	db *pgxpool.Pool
}

func NewLeaderboardRepository(db *pgxpool.Pool) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// Submit appends one score entry. Entries are never updated or deleted.
func (r *LeaderboardRepository) Submit(ctx context.Context, e *domain.LeaderboardEntry) error {
	var id int64
	var createdAt time.Time
	err := r.db.QueryRow(ctx,
		`INSERT INTO leaderboard (uid, display_name, game_type, score, duration_ms)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, created_at`,
		e.UID,
		e.DisplayName,
		e.GameType,
		e.Score,
		e.DurationMS,
	).Scan(&id, &createdAt)
	if err != nil {
		return err
	}

	e.ID = id
	e.CreatedAt = createdAt
	return nil
}

// Top returns the best entries for a game: highest score first, or lowest
// duration first for time-ranked games.
func (r *LeaderboardRepository) Top(ctx context.Context, gameType domain.GameType, order domain.RankOrder, limit int) ([]*domain.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = TopLimit
	}

	query := `SELECT id, uid, display_name, game_type, score, duration_ms, created_at
         FROM leaderboard
         WHERE game_type = $1
         ORDER BY score DESC, created_at ASC
         LIMIT $2`
	if order == domain.RankByTime {
		query = `SELECT id, uid, display_name, game_type, score, duration_ms, created_at
         FROM leaderboard
         WHERE game_type = $1
         ORDER BY duration_ms ASC, created_at ASC
         LIMIT $2`
	}

	rows, err := r.db.Query(ctx, query, gameType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.LeaderboardEntry
	for rows.Next() {
		e := &domain.LeaderboardEntry{}
		if err := rows.Scan(&e.ID, &e.UID, &e.DisplayName, &e.GameType, &e.Score, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}

	return res, rows.Err()
}
