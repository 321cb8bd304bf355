package game

import (
	"encoding/json"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
)

const rpsTargetWins = 2 // best of three

// RPSState plays best-of-three rock-paper-scissors through the turn
// protocol: each round the seat on turn commits its throw, then the other
// seat commits and the round resolves.
type RPSState struct {
	Round     int    `json:"round"`
	HostWins  int    `json:"host_wins"`
	GuestWins int    `json:"guest_wins"`
	HostMove  string `json:"host_move,omitempty"`
	GuestMove string `json:"guest_move,omitempty"`
	LastRound string `json:"last_round,omitempty"` // "host", "guest" or "draw"

	// Committed flags replace the opponent's throw in redacted views, so
	// the UI can still show "waiting for you" without the throw itself.
	HostCommitted  bool `json:"host_committed,omitempty"`
	GuestCommitted bool `json:"guest_committed,omitempty"`
}

type RPSMove struct {
	Throw string `json:"throw"` // rock | paper | scissors
}

type RPS struct{}

func NewRPS() *RPS { return &RPS{} }

func (g *RPS) Type() domain.GameType { return domain.GameRPS }

func (g *RPS) Init() (json.RawMessage, domain.Seat, error) {
	data, err := json.Marshal(RPSState{Round: 1})
	return data, domain.SeatHost, err
}

func (g *RPS) Apply(state json.RawMessage, seat domain.Seat, move json.RawMessage) (json.RawMessage, *Outcome, error) {
	var st RPSState
	if err := json.Unmarshal(state, &st); err != nil {
		return nil, nil, err
	}

	var mv RPSMove
	if err := json.Unmarshal(move, &mv); err != nil {
		return nil, nil, invalidMove("bad move payload")
	}

	if mv.Throw != "rock" && mv.Throw != "paper" && mv.Throw != "scissors" {
		return nil, nil, invalidMove("unknown throw %q", mv.Throw)
	}

	if seat == domain.SeatHost {
		if st.HostMove != "" {
			return nil, nil, invalidMove("already moved this round")
		}
		st.HostMove = mv.Throw
	} else {
		if st.GuestMove != "" {
			return nil, nil, invalidMove("already moved this round")
		}
		st.GuestMove = mv.Throw
	}

	if st.HostMove != "" && st.GuestMove != "" {
		switch rpsDecide(st.HostMove, st.GuestMove) {
		case "win":
			st.HostWins++
			st.LastRound = string(domain.SeatHost)
		case "lose":
			st.GuestWins++
			st.LastRound = string(domain.SeatGuest)
		default:
			st.LastRound = "draw"
		}
		st.Round++
		st.HostMove = ""
		st.GuestMove = ""
	}

	next, err := json.Marshal(st)
	if err != nil {
		return nil, nil, err
	}

	if st.HostWins == rpsTargetWins || st.GuestWins == rpsTargetWins {
		winner := domain.SeatHost
		if st.GuestWins == rpsTargetWins {
			winner = domain.SeatGuest
		}
		return next, &Outcome{
			Winner: &winner,
			Detail: map[string]any{
				"host_wins":  st.HostWins,
				"guest_wins": st.GuestWins,
			},
		}, nil
	}

	return next, nil, nil
}

func (g *RPS) KeepTurn(json.RawMessage) bool { return false }

// View strips the adversary's committed-but-unresolved throw. The stored
// document holds both throws between commits; only the owner of a throw may
// see it before the round resolves.
func (g *RPS) View(state json.RawMessage, viewer domain.Seat) (json.RawMessage, error) {
	var st RPSState
	if err := json.Unmarshal(state, &st); err != nil {
		return nil, err
	}

	if viewer != domain.SeatHost && st.HostMove != "" {
		st.HostMove = ""
		st.HostCommitted = true
	}
	if viewer != domain.SeatGuest && st.GuestMove != "" {
		st.GuestMove = ""
		st.GuestCommitted = true
	}

	return json.Marshal(st)
}

func rpsDecide(hostThrow, guestThrow string) string {
	if hostThrow == guestThrow {
		return "draw"
	}

	switch hostThrow {
	case "rock":
		if guestThrow == "scissors" {
			return "win"
		}
	case "paper":
		if guestThrow == "rock" {
			return "win"
		}
	case "scissors":
		if guestThrow == "paper" {
			return "win"
		}
	}

	return "lose"
}
