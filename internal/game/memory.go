package game

import (
	"encoding/json"
	"math/rand"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
)

const memoryPairs = 8 // 4x4 grid

// MemoryState is a shared face-down grid. Cards holds the pair value per
// position; Matched marks resolved positions. A matched pair scores the
// acting seat and keeps its turn, like the table-top rules.
type MemoryState struct {
	Cards      []int  `json:"cards"`
	Matched    []bool `json:"matched"`
	HostPairs  int    `json:"host_pairs"`
	GuestPairs int    `json:"guest_pairs"`
	LastMatch  bool   `json:"last_match"`
}

type MemoryMove struct {
	First  int `json:"first"`
	Second int `json:"second"`
}

type Memory struct{}

func NewMemory() *Memory { return &Memory{} }

func (g *Memory) Type() domain.GameType { return domain.GameMemory }

func (g *Memory) Init() (json.RawMessage, domain.Seat, error) {
	cards := make([]int, 0, memoryPairs*2)
	for v := 0; v < memoryPairs; v++ {
		cards = append(cards, v, v)
	}
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	data, err := json.Marshal(MemoryState{
		Cards:   cards,
		Matched: make([]bool, memoryPairs*2),
	})
	return data, domain.SeatHost, err
}

func (g *Memory) Apply(state json.RawMessage, seat domain.Seat, move json.RawMessage) (json.RawMessage, *Outcome, error) {
	var st MemoryState
	if err := json.Unmarshal(state, &st); err != nil {
		return nil, nil, err
	}

	var mv MemoryMove
	if err := json.Unmarshal(move, &mv); err != nil {
		return nil, nil, invalidMove("bad move payload")
	}

	n := len(st.Cards)
	if mv.First < 0 || mv.First >= n || mv.Second < 0 || mv.Second >= n {
		return nil, nil, invalidMove("card index out of range")
	}
	if mv.First == mv.Second {
		return nil, nil, invalidMove("must flip two different cards")
	}
	if st.Matched[mv.First] || st.Matched[mv.Second] {
		return nil, nil, invalidMove("card already matched")
	}

	st.LastMatch = st.Cards[mv.First] == st.Cards[mv.Second]
	if st.LastMatch {
		st.Matched[mv.First] = true
		st.Matched[mv.Second] = true
		if seat == domain.SeatHost {
			st.HostPairs++
		} else {
			st.GuestPairs++
		}
	}

	next, err := json.Marshal(st)
	if err != nil {
		return nil, nil, err
	}

	if st.HostPairs+st.GuestPairs == len(st.Cards)/2 {
		detail := map[string]any{
			"host_pairs":  st.HostPairs,
			"guest_pairs": st.GuestPairs,
		}
		if st.HostPairs == st.GuestPairs {
			return next, &Outcome{Draw: true, Detail: detail}, nil
		}
		winner := domain.SeatHost
		if st.GuestPairs > st.HostPairs {
			winner = domain.SeatGuest
		}
		return next, &Outcome{Winner: &winner, Detail: detail}, nil
	}

	return next, nil, nil
}

// KeepTurn keeps the acting seat on a matched pair.
func (g *Memory) KeepTurn(state json.RawMessage) bool {
	var st MemoryState
	if err := json.Unmarshal(state, &st); err != nil {
		return false
	}
	return st.LastMatch
}

// View: both players see the same flipped cards.
func (g *Memory) View(state json.RawMessage, _ domain.Seat) (json.RawMessage, error) {
	return state, nil
}
