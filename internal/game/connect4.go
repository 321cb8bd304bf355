package game

import (
	"encoding/json"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
)

const (
	c4Cols = 7
	c4Rows = 6
)

// Connect4State is a column-major board; each cell holds "", "R" (host) or
// "Y" (guest). Row 0 is the bottom of a column.
type Connect4State struct {
	Board [c4Cols][c4Rows]string `json:"board"`
	Moves int                    `json:"moves"`
}

type Connect4Move struct {
	Column int `json:"column"`
}

type Connect4 struct{}

func NewConnect4() *Connect4 { return &Connect4{} }

func (g *Connect4) Type() domain.GameType { return domain.GameConnect4 }

func (g *Connect4) Init() (json.RawMessage, domain.Seat, error) {
	data, err := json.Marshal(Connect4State{})
	return data, domain.SeatHost, err
}

func c4Disc(seat domain.Seat) string {
	if seat == domain.SeatHost {
		return "R"
	}
	return "Y"
}

func (g *Connect4) Apply(state json.RawMessage, seat domain.Seat, move json.RawMessage) (json.RawMessage, *Outcome, error) {
	var st Connect4State
	if err := json.Unmarshal(state, &st); err != nil {
		return nil, nil, err
	}

	var mv Connect4Move
	if err := json.Unmarshal(move, &mv); err != nil {
		return nil, nil, invalidMove("bad move payload")
	}

	if mv.Column < 0 || mv.Column >= c4Cols {
		return nil, nil, invalidMove("column %d out of range", mv.Column)
	}

	row := -1
	for r := 0; r < c4Rows; r++ {
		if st.Board[mv.Column][r] == "" {
			row = r
			break
		}
	}
	if row == -1 {
		return nil, nil, invalidMove("column %d is full", mv.Column)
	}

	disc := c4Disc(seat)
	st.Board[mv.Column][row] = disc
	st.Moves++

	next, err := json.Marshal(st)
	if err != nil {
		return nil, nil, err
	}

	if line, ok := c4Win(&st.Board, mv.Column, row, disc); ok {
		winner := seat
		return next, &Outcome{
			Winner: &winner,
			Detail: map[string]any{"winning_line": line},
		}, nil
	}

	if st.Moves == c4Cols*c4Rows {
		return next, &Outcome{Draw: true}, nil
	}

	return next, nil, nil
}

func (g *Connect4) KeepTurn(json.RawMessage) bool { return false }

// View: the board is fully public.
func (g *Connect4) View(state json.RawMessage, _ domain.Seat) (json.RawMessage, error) {
	return state, nil
}

// c4Win scans the four directions through the dropped disc and returns the
// winning cells as [col,row] pairs.
func c4Win(board *[c4Cols][c4Rows]string, col, row int, disc string) ([][2]int, bool) {
	dirs := [4][2]int{
		{1, 0}, // horizontal
		{0, 1}, // vertical
		{1, 1}, // diagonal up-right
		{1, -1}, // diagonal down-right
	}

	for _, d := range dirs {
		line := [][2]int{{col, row}}

		for _, sign := range []int{1, -1} {
			c, r := col+sign*d[0], row+sign*d[1]
			for c >= 0 && c < c4Cols && r >= 0 && r < c4Rows && board[c][r] == disc {
				line = append(line, [2]int{c, r})
				c += sign * d[0]
				r += sign * d[1]
			}
		}

		if len(line) >= 4 {
			return line, true
		}
	}
	return nil, false
}
