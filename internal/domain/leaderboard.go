package domain

import "time"

// RankOrder says how a game ranks its leaderboard.
type RankOrder string

const (
	RankByScore RankOrder = "score" // higher score first
	RankByTime  RankOrder = "time"  // lower duration first
)

// LeaderboardEntry is one append-only score submission.
type LeaderboardEntry struct {
	ID          int64     `json:"id"`
	UID         string    `json:"uid"`
	DisplayName string    `json:"display_name"`
	GameType    GameType  `json:"game_type"`
	Score       int64     `json:"score"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"date"`
}

// MatchRecord is the archived form of a finished match.
type MatchRecord struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	GameType   GameType  `json:"game_type"`
	HostID     string    `json:"host_id"`
	GuestID    string    `json:"guest_id"`
	Winner     *Seat     `json:"winner,omitempty"`
	Status     string    `json:"status"`
	FinalState []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
