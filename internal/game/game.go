// Package game holds the per-game pure reducers. Each game owns a concrete
// state struct serialized as JSON into the match document; the sync engine
// never looks inside it.
package game

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
)

// ErrInvalidMove rejects a move that targets an already-resolved slot, is
// malformed, or otherwise breaks the game's rules. The engine surfaces it
// to the acting player only.
var ErrInvalidMove = errors.New("game: invalid move")

// ErrUnknownGame means no reducer is registered for the type.
var ErrUnknownGame = errors.New("game: unknown game type")

// Outcome is a terminal result reported by a reducer.
type Outcome struct {
	Winner *domain.Seat   `json:"winner,omitempty"`
	Draw   bool           `json:"draw,omitempty"`
	Detail map[string]any `json:"detail,omitempty"` // e.g. winning line
}

// Game is one rules engine. Apply is pure: same state + move in, same
// state out. A nil Outcome means the match continues.
type Game interface {
	Type() domain.GameType

	// Init produces the opening state and which seat moves first.
	Init() (state json.RawMessage, opening domain.Seat, err error)

	// Apply computes the next state from the current state plus one move
	// by the acting seat. The engine has already checked the turn gate
	// and the terminal latch before calling.
	Apply(state json.RawMessage, seat domain.Seat, move json.RawMessage) (json.RawMessage, *Outcome, error)

	// KeepTurn reports whether the acting seat moves again after this
	// accepted state (e.g. a matched pair in Memory). Most games always
	// return false.
	KeepTurn(state json.RawMessage) bool

	// View returns the state as the given seat may see it. Games whose
	// state holds information the adversary must not learn (an
	// uncountered RPS throw) redact it here; every snapshot leaving the
	// server passes through View for its viewer. An empty seat is a
	// spectator and sees nothing hidden.
	View(state json.RawMessage, viewer domain.Seat) (json.RawMessage, error)
}

// Registry maps game types to their reducers.
type Registry struct {
	games map[domain.GameType]Game
}

func NewRegistry() *Registry {
	r := &Registry{games: make(map[domain.GameType]Game)}
	r.Register(NewTicTacToe())
	r.Register(NewConnect4())
	r.Register(NewRPS())
	r.Register(NewBattleship())
	r.Register(NewMemory())
	return r
}

func (r *Registry) Register(g Game) {
	r.games[g.Type()] = g
}

func (r *Registry) Get(t domain.GameType) (Game, error) {
	g, ok := r.games[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, t)
	}
	return g, nil
}

func (r *Registry) Types() []domain.GameType {
	out := make([]domain.GameType, 0, len(r.games))
	for t := range r.games {
		out = append(out, t)
	}
	return out
}

func invalidMove(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMove, fmt.Sprintf(format, args...))
}
