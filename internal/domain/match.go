package domain

import (
	"encoding/json"
	"time"
)

// Seat identifies one of the two sides of a match.
type Seat string

const (
	SeatHost  Seat = "host"
	SeatGuest Seat = "guest"
)

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	if s == SeatHost {
		return SeatGuest
	}
	return SeatHost
}

// MatchStatus is the lifecycle of a match document.
type MatchStatus string

const (
	StatusWaiting   MatchStatus = "waiting"   // host only
	StatusReady     MatchStatus = "ready"     // both seats filled, not both ready
	StatusPlaying   MatchStatus = "playing"   // turn alternates
	StatusFinished  MatchStatus = "finished"  // winner or draw set
	StatusAbandoned MatchStatus = "abandoned" // a player left or timed out mid-game
)

// Terminal reports whether no further moves can be accepted.
func (s MatchStatus) Terminal() bool {
	return s == StatusFinished || s == StatusAbandoned
}

// GameType tags which reducer owns the State payload.
type GameType string

const (
	GameTicTacToe  GameType = "tictactoe"
	GameConnect4   GameType = "connect4"
	GameRPS        GameType = "rps"
	GameBattleship GameType = "battleship"
	GameMemory     GameType = "memory"
)

// Identity is what the identity provider supplies for a player.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
}

// MatchDoc is the single shared record for one session. It is stored as one
// JSON document keyed by the room code; Version is assigned by the store and
// every write is conditional on it.
type MatchDoc struct {
	Code     string   `json:"code"`
	GameType GameType `json:"game_type"`

	HostID     string `json:"host_id"`
	HostName   string `json:"host_name"`
	HostReady  bool   `json:"host_ready"`
	GuestID    string `json:"guest_id,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`
	GuestReady bool   `json:"guest_ready"`

	Status MatchStatus `json:"status"`
	Turn   Seat        `json:"turn,omitempty"`

	// State is the game-specific board/hand payload, owned by the reducer
	// registered for GameType.
	State json.RawMessage `json:"state,omitempty"`

	Winner *Seat `json:"winner,omitempty"`
	Draw   bool  `json:"draw,omitempty"`

	// Detail carries game-specific terminal info such as a winning line.
	Detail json.RawMessage `json:"detail,omitempty"`

	LastAction string    `json:"last_action,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Version mirrors the document store version of the snapshot this
	// struct was decoded from. It is not serialized into the document.
	Version int64 `json:"-"`
}

// Seat returns the seat occupied by uid, if any.
func (m *MatchDoc) Seat(uid string) (Seat, bool) {
	switch uid {
	case "":
		return "", false
	case m.HostID:
		return SeatHost, true
	case m.GuestID:
		return SeatGuest, true
	}
	return "", false
}

// PlayerName returns the display name for a seat.
func (m *MatchDoc) PlayerName(seat Seat) string {
	if seat == SeatHost {
		return m.HostName
	}
	return m.GuestName
}
