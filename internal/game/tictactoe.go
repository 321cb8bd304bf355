package game

import (
	"encoding/json"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
)

// TicTacToeState is the shared board. Host plays X, guest plays O, host
// opens.
type TicTacToeState struct {
	Board [9]string `json:"board"` // "", "X" or "O" per cell
	Moves int       `json:"moves"`
}

type TicTacToeMove struct {
	Cell int `json:"cell"`
}

var tttWinLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

type TicTacToe struct{}

func NewTicTacToe() *TicTacToe { return &TicTacToe{} }

func (g *TicTacToe) Type() domain.GameType { return domain.GameTicTacToe }

func (g *TicTacToe) Init() (json.RawMessage, domain.Seat, error) {
	data, err := json.Marshal(TicTacToeState{})
	return data, domain.SeatHost, err
}

func tttMark(seat domain.Seat) string {
	if seat == domain.SeatHost {
		return "X"
	}
	return "O"
}

func (g *TicTacToe) Apply(state json.RawMessage, seat domain.Seat, move json.RawMessage) (json.RawMessage, *Outcome, error) {
	var st TicTacToeState
	if err := json.Unmarshal(state, &st); err != nil {
		return nil, nil, err
	}

	var mv TicTacToeMove
	if err := json.Unmarshal(move, &mv); err != nil {
		return nil, nil, invalidMove("bad move payload")
	}

	if mv.Cell < 0 || mv.Cell > 8 {
		return nil, nil, invalidMove("cell %d out of range", mv.Cell)
	}
	if st.Board[mv.Cell] != "" {
		return nil, nil, invalidMove("cell %d already taken", mv.Cell)
	}

	mark := tttMark(seat)
	st.Board[mv.Cell] = mark
	st.Moves++

	next, err := json.Marshal(st)
	if err != nil {
		return nil, nil, err
	}

	if line, ok := tttWin(st.Board, mark); ok {
		winner := seat
		return next, &Outcome{
			Winner: &winner,
			Detail: map[string]any{"winning_line": line},
		}, nil
	}

	if st.Moves == 9 {
		return next, &Outcome{Draw: true}, nil
	}

	return next, nil, nil
}

func (g *TicTacToe) KeepTurn(json.RawMessage) bool { return false }

// View: the board is fully public.
func (g *TicTacToe) View(state json.RawMessage, _ domain.Seat) (json.RawMessage, error) {
	return state, nil
}

func tttWin(board [9]string, mark string) ([3]int, bool) {
	for _, line := range tttWinLines {
		if board[line[0]] == mark && board[line[1]] == mark && board[line[2]] == mark {
			return line, true
		}
	}
	return [3]int{}, false
}
