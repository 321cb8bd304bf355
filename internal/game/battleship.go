package game

import (
	"encoding/json"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
)

const (
	battleshipGrid       = 10
	battleshipFleetCells = 17 // carrier 5 + battleship 4 + cruiser 3 + sub 3 + destroyer 2

	bsPhasePlacement = "placement"
	bsPhaseBattle    = "battle"

	BSShotMiss = "miss"
	BSShotHit  = "hit"
	BSShotSunk = "sunk"
)

// BattleshipState deliberately never holds either fleet's placements. Each
// client keeps its own grid locally and only shot coordinates and their
// reported results cross the shared document, plus a remaining-cell counter
// per fleet. The defender's client adjudicates each shot and reports back,
// which is why a hit hands the turn straight back to the shooter.
type BattleshipState struct {
	Phase string `json:"phase"`

	HostCommitted  bool `json:"host_committed"`
	GuestCommitted bool `json:"guest_committed"`

	// Remaining un-hit fleet cells per defender.
	HostCellsLeft  int `json:"host_cells_left"`
	GuestCellsLeft int `json:"guest_cells_left"`

	// Shots fired by each seat, in order, with their reported results.
	HostShots  []BattleshipShot `json:"host_shots"`
	GuestShots []BattleshipShot `json:"guest_shots"`

	// Pending is a fired shot awaiting the defender's report.
	Pending   *BattleshipShot `json:"pending,omitempty"`
	PendingBy domain.Seat     `json:"pending_by,omitempty"`

	HoldTurn bool `json:"hold_turn"`
}

type BattleshipShot struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Result string `json:"result,omitempty"`
	Ship   string `json:"ship,omitempty"` // set when Result is sunk
}

// BattleshipMove is a tagged move: "commit" ends a seat's placement,
// "fire" launches a shot, "report" is the defender answering the pending
// shot against its private grid.
type BattleshipMove struct {
	Type   string `json:"type"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Result string `json:"result,omitempty"`
	Ship   string `json:"ship,omitempty"`
}

type Battleship struct{}

func NewBattleship() *Battleship { return &Battleship{} }

func (g *Battleship) Type() domain.GameType { return domain.GameBattleship }

func (g *Battleship) Init() (json.RawMessage, domain.Seat, error) {
	data, err := json.Marshal(BattleshipState{
		Phase:          bsPhasePlacement,
		HostCellsLeft:  battleshipFleetCells,
		GuestCellsLeft: battleshipFleetCells,
	})
	return data, domain.SeatHost, err
}

func (g *Battleship) Apply(state json.RawMessage, seat domain.Seat, move json.RawMessage) (json.RawMessage, *Outcome, error) {
	var st BattleshipState
	if err := json.Unmarshal(state, &st); err != nil {
		return nil, nil, err
	}

	var mv BattleshipMove
	if err := json.Unmarshal(move, &mv); err != nil {
		return nil, nil, invalidMove("bad move payload")
	}

	st.HoldTurn = false

	var outcome *Outcome
	var err error
	switch mv.Type {
	case "commit":
		err = g.applyCommit(&st, seat)
	case "fire":
		err = g.applyFire(&st, seat, mv)
	case "report":
		outcome, err = g.applyReport(&st, seat, mv)
	default:
		err = invalidMove("unknown move type %q", mv.Type)
	}
	if err != nil {
		return nil, nil, err
	}

	next, merr := json.Marshal(st)
	if merr != nil {
		return nil, nil, merr
	}
	return next, outcome, nil
}

func (g *Battleship) applyCommit(st *BattleshipState, seat domain.Seat) error {
	if st.Phase != bsPhasePlacement {
		return invalidMove("placement is over")
	}
	if seat == domain.SeatHost {
		if st.HostCommitted {
			return invalidMove("fleet already committed")
		}
		st.HostCommitted = true
	} else {
		if st.GuestCommitted {
			return invalidMove("fleet already committed")
		}
		st.GuestCommitted = true
	}

	if st.HostCommitted && st.GuestCommitted {
		st.Phase = bsPhaseBattle
	}
	return nil
}

func (g *Battleship) applyFire(st *BattleshipState, seat domain.Seat, mv BattleshipMove) error {
	if st.Phase != bsPhaseBattle {
		return invalidMove("both fleets must be committed before firing")
	}
	if st.Pending != nil {
		return invalidMove("previous shot not yet reported")
	}
	if mv.X < 0 || mv.X >= battleshipGrid || mv.Y < 0 || mv.Y >= battleshipGrid {
		return invalidMove("shot (%d,%d) off the grid", mv.X, mv.Y)
	}

	for _, shot := range shotsBy(st, seat) {
		if shot.X == mv.X && shot.Y == mv.Y {
			return invalidMove("cell (%d,%d) already targeted", mv.X, mv.Y)
		}
	}

	st.Pending = &BattleshipShot{X: mv.X, Y: mv.Y}
	st.PendingBy = seat
	return nil
}

func (g *Battleship) applyReport(st *BattleshipState, seat domain.Seat, mv BattleshipMove) (*Outcome, error) {
	if st.Pending == nil {
		return nil, invalidMove("no shot to report")
	}
	if st.PendingBy == seat {
		return nil, invalidMove("shooter cannot report its own shot")
	}
	if mv.X != st.Pending.X || mv.Y != st.Pending.Y {
		return nil, invalidMove("report does not match the pending shot")
	}
	if mv.Result != BSShotMiss && mv.Result != BSShotHit && mv.Result != BSShotSunk {
		return nil, invalidMove("unknown shot result %q", mv.Result)
	}

	shooter := st.PendingBy
	resolved := BattleshipShot{X: mv.X, Y: mv.Y, Result: mv.Result, Ship: mv.Ship}
	if shooter == domain.SeatHost {
		st.HostShots = append(st.HostShots, resolved)
	} else {
		st.GuestShots = append(st.GuestShots, resolved)
	}
	st.Pending = nil
	st.PendingBy = ""

	if mv.Result == BSShotHit || mv.Result == BSShotSunk {
		// Reporter is the defender; its own fleet took the hit.
		if seat == domain.SeatHost {
			st.HostCellsLeft--
		} else {
			st.GuestCellsLeft--
		}
	} else {
		// On a miss the defender takes over as shooter: the engine flips
		// the turn to the reporter's opponent by default, so holding the
		// turn here keeps it with the reporter.
		st.HoldTurn = true
	}

	if st.HostCellsLeft <= 0 || st.GuestCellsLeft <= 0 {
		winner := shooter
		return &Outcome{
			Winner: &winner,
			Detail: map[string]any{
				"host_cells_left":  st.HostCellsLeft,
				"guest_cells_left": st.GuestCellsLeft,
			},
		}, nil
	}
	return nil, nil
}

// KeepTurn holds the turn with the last mover when the state says so
// (defender keeps it after reporting a miss, so it can fire next).
func (g *Battleship) KeepTurn(state json.RawMessage) bool {
	var st BattleshipState
	if err := json.Unmarshal(state, &st); err != nil {
		return false
	}
	return st.HoldTurn
}

// View: fleets never enter the shared document, so everything stored
// (shots, reports, pending fire) is already known to both seats.
func (g *Battleship) View(state json.RawMessage, _ domain.Seat) (json.RawMessage, error) {
	return state, nil
}

func shotsBy(st *BattleshipState, seat domain.Seat) []BattleshipShot {
	if seat == domain.SeatHost {
		return st.HostShots
	}
	return st.GuestShots
}
