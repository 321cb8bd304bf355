package match

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/arcade-neon/arcade-neon-sub000/internal/docstore"
	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
	"github.com/arcade-neon/arcade-neon-sub000/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var (
	alice = domain.Identity{UID: "uid-alice", DisplayName: "Alice"}
	bob   = domain.Identity{UID: "uid-bob", DisplayName: "Bob"}
)

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	return NewManager(docstore.NewMemoryStore(), game.NewRegistry(), opts...)
}

// startedRoom creates a tictactoe room with both players readied up.
func startedRoom(t *testing.T, m *Manager) *domain.MatchDoc {
	t.Helper()
	ctx := context.Background()

	doc, err := m.CreateRoom(ctx, domain.GameTicTacToe, alice)
	require.NoError(t, err)

	_, err = m.JoinRoom(ctx, doc.Code, bob)
	require.NoError(t, err)
	_, err = m.Ready(ctx, doc.Code, alice.UID)
	require.NoError(t, err)
	doc, err = m.Ready(ctx, doc.Code, bob.UID)
	require.NoError(t, err)

	require.Equal(t, domain.StatusPlaying, doc.Status)
	return doc
}

func tttMove(cell int) json.RawMessage {
	raw, _ := json.Marshal(game.TicTacToeMove{Cell: cell})
	return raw
}

func TestCreateRoomRetriesOnCodeCollision(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, WithCodeLength(4))

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		doc, err := m.CreateRoom(ctx, domain.GameRPS, alice)
		require.NoError(t, err)
		require.Len(t, doc.Code, 4)
		require.False(t, seen[doc.Code], "codes must be unique")
		seen[doc.Code] = true
	}
}

func TestJoinRoomNotFound(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.JoinRoom(ctx, "0000", bob)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	// Joining must not create a phantom document.
	_, err = m.GetRoom(ctx, "0000")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinRoomFull(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	doc, err := m.CreateRoom(ctx, domain.GameTicTacToe, alice)
	require.NoError(t, err)
	_, err = m.JoinRoom(ctx, doc.Code, bob)
	require.NoError(t, err)

	carol := domain.Identity{UID: "uid-carol", DisplayName: "Carol"}
	_, err = m.JoinRoom(ctx, doc.Code, carol)
	assert.ErrorIs(t, err, ErrRoomFull)

	// Rejoin by the same guest is idempotent.
	got, err := m.JoinRoom(ctx, doc.Code, bob)
	require.NoError(t, err)
	assert.Equal(t, bob.UID, got.GuestID)
}

func TestLobbyStateMachine(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	doc, err := m.CreateRoom(ctx, domain.GameConnect4, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, doc.Status)

	doc, err = m.JoinRoom(ctx, doc.Code, bob)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, doc.Status)

	doc, err = m.Ready(ctx, doc.Code, alice.UID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, doc.Status, "one ready flag is not enough")

	doc, err = m.Ready(ctx, doc.Code, bob.UID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlaying, doc.Status)
	assert.Equal(t, domain.SeatHost, doc.Turn)
	assert.NotEmpty(t, doc.State)
}

func TestMoveBeforeStartRejected(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	doc, err := m.CreateRoom(ctx, domain.GameTicTacToe, alice)
	require.NoError(t, err)

	_, err = m.Move(ctx, doc.Code, alice.UID, 0, tttMove(4))
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestMoveByOutsiderRejected(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	doc := startedRoom(t, m)

	_, err := m.Move(ctx, doc.Code, "uid-mallory", 0, tttMove(4))
	assert.ErrorIs(t, err, ErrNotInRoom)
}

// Property: over any sequence of accepted moves, the turn owner strictly
// alternates (modulo games that explicitly hold the turn; tictactoe never
// does) until the winner is set.
func TestTurnAlternation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		m := NewManager(docstore.NewMemoryStore(), game.NewRegistry())

		doc, err := m.CreateRoom(ctx, domain.GameTicTacToe, alice)
		if err != nil {
			t.Fatal(err)
		}
		code := doc.Code
		if _, err := m.JoinRoom(ctx, code, bob); err != nil {
			t.Fatal(err)
		}
		if _, err := m.Ready(ctx, code, alice.UID); err != nil {
			t.Fatal(err)
		}
		doc, err = m.Ready(ctx, code, bob.UID)
		if err != nil {
			t.Fatal(err)
		}

		uidFor := map[domain.Seat]string{
			domain.SeatHost:  alice.UID,
			domain.SeatGuest: bob.UID,
		}

		for doc.Status == domain.StatusPlaying {
			var st game.TicTacToeState
			if err := json.Unmarshal(doc.State, &st); err != nil {
				t.Fatal(err)
			}
			var free []int
			for cell, mark := range st.Board {
				if mark == "" {
					free = append(free, cell)
				}
			}
			if len(free) == 0 {
				t.Fatal("playing with a full board")
			}

			cell := free[rapid.IntRange(0, len(free)-1).Draw(t, "cell")]
			prevTurn := doc.Turn

			// An out-of-turn move must be rejected and change nothing.
			if _, err := m.Move(ctx, code, uidFor[prevTurn.Other()], 0, tttMove(cell)); err != ErrNotYourTurn {
				t.Fatalf("out-of-turn move: got %v, want ErrNotYourTurn", err)
			}

			doc, err = m.Move(ctx, code, uidFor[prevTurn], 0, tttMove(cell))
			if err != nil {
				t.Fatalf("valid move rejected: %v", err)
			}

			if doc.Status == domain.StatusPlaying && doc.Turn != prevTurn.Other() {
				t.Fatalf("turn did not alternate: %s then %s", prevTurn, doc.Turn)
			}
		}

		if doc.Status != domain.StatusFinished {
			t.Fatalf("unexpected terminal status %s", doc.Status)
		}
		if doc.Winner == nil && !doc.Draw {
			t.Fatal("finished without winner or draw")
		}
	})
}

func TestTerminalLatch(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	doc := startedRoom(t, m)
	code := doc.Code

	// Host takes the top row.
	_, err := m.Move(ctx, code, alice.UID, 0, tttMove(0))
	require.NoError(t, err)
	_, err = m.Move(ctx, code, bob.UID, 0, tttMove(4))
	require.NoError(t, err)
	_, err = m.Move(ctx, code, alice.UID, 0, tttMove(1))
	require.NoError(t, err)
	_, err = m.Move(ctx, code, bob.UID, 0, tttMove(5))
	require.NoError(t, err)
	doc, err = m.Move(ctx, code, alice.UID, 0, tttMove(2))
	require.NoError(t, err)

	require.Equal(t, domain.StatusFinished, doc.Status)
	require.NotNil(t, doc.Winner)
	assert.Equal(t, domain.SeatHost, *doc.Winner)

	// No further move is accepted from either side.
	_, err = m.Move(ctx, code, bob.UID, 0, tttMove(8))
	assert.ErrorIs(t, err, ErrMatchFinished)
	_, err = m.Move(ctx, code, alice.UID, 0, tttMove(8))
	assert.ErrorIs(t, err, ErrMatchFinished)
}

func TestStaleWriteRejected(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	doc := startedRoom(t, m)
	code := doc.Code

	base := doc.Version

	// W1 commits against version V.
	updated, err := m.Move(ctx, code, alice.UID, base, tttMove(4))
	require.NoError(t, err)
	require.Greater(t, updated.Version, base)

	// W2 was also computed against V, issued after W1 committed. It must
	// be rejected, not silently applied to the post-W1 state.
	_, err = m.Move(ctx, code, bob.UID, base, tttMove(0))
	assert.ErrorIs(t, err, ErrStaleWrite)

	// The same move re-based on the latest snapshot is fine.
	_, err = m.Move(ctx, code, bob.UID, updated.Version, tttMove(0))
	require.NoError(t, err)
}

func TestLeaveMidGameAbandons(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	doc := startedRoom(t, m)

	doc, err := m.Leave(ctx, doc.Code, bob.UID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbandoned, doc.Status)
	require.NotNil(t, doc.Winner)
	assert.Equal(t, domain.SeatHost, *doc.Winner)

	_, err = m.Move(ctx, doc.Code, alice.UID, 0, tttMove(4))
	assert.ErrorIs(t, err, ErrMatchFinished)
}

func TestLeaveBeforeStart(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	doc, err := m.CreateRoom(ctx, domain.GameMemory, alice)
	require.NoError(t, err)
	_, err = m.JoinRoom(ctx, doc.Code, bob)
	require.NoError(t, err)

	// Guest backs out: seat vacated, room reusable.
	got, err := m.Leave(ctx, doc.Code, bob.UID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, got.Status)
	assert.Empty(t, got.GuestID)

	// Host backs out of an empty room: the document is deleted.
	_, err = m.Leave(ctx, doc.Code, alice.UID)
	require.NoError(t, err)
	_, err = m.GetRoom(ctx, doc.Code)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLeaveHostHandsRoomToGuest(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	doc, err := m.CreateRoom(ctx, domain.GameConnect4, alice)
	require.NoError(t, err)
	_, err = m.JoinRoom(ctx, doc.Code, bob)
	require.NoError(t, err)

	// Host backs out with a guest seated: the guest inherits the room
	// instead of having it deleted out from under them.
	got, err := m.Leave(ctx, doc.Code, alice.UID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, got.Status)
	assert.Equal(t, bob.UID, got.HostID)
	assert.Equal(t, "Bob", got.HostName)
	assert.Empty(t, got.GuestID)
	assert.False(t, got.HostReady)

	// The room stays joinable for a new guest.
	carol := domain.Identity{UID: "uid-carol", DisplayName: "Carol"}
	got, err = m.JoinRoom(ctx, doc.Code, carol)
	require.NoError(t, err)
	assert.Equal(t, carol.UID, got.GuestID)
}

// A committed throw must never reach the other seat before the round
// resolves; snapshots handed to a viewer go through the game's redaction.
func TestViewHidesUncounteredThrow(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	doc, err := m.CreateRoom(ctx, domain.GameRPS, alice)
	require.NoError(t, err)
	code := doc.Code
	_, err = m.JoinRoom(ctx, code, bob)
	require.NoError(t, err)
	_, err = m.Ready(ctx, code, alice.UID)
	require.NoError(t, err)
	_, err = m.Ready(ctx, code, bob.UID)
	require.NoError(t, err)

	doc, err = m.Move(ctx, code, alice.UID, 0, json.RawMessage(`{"throw":"rock"}`))
	require.NoError(t, err)

	var st game.RPSState

	// The guest's view carries only the fact of the commit.
	guestView := m.View(doc, bob.UID)
	require.NoError(t, json.Unmarshal(guestView.State, &st))
	assert.Empty(t, st.HostMove, "guest must not see the host's throw")
	assert.True(t, st.HostCommitted)

	// A viewer with no seat sees nothing hidden either.
	spectatorView := m.View(doc, "uid-mallory")
	require.NoError(t, json.Unmarshal(spectatorView.State, &st))
	assert.Empty(t, st.HostMove)

	// The owner still sees their own throw.
	hostView := m.View(doc, alice.UID)
	require.NoError(t, json.Unmarshal(hostView.State, &st))
	assert.Equal(t, "rock", st.HostMove)
}

// The tic-tac-toe end-to-end flow over the change feed: create, join,
// moves fanning out to the subscriber, winner latched.
func TestRoomFeedScenario(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	m := NewManager(store, game.NewRegistry())

	doc, err := m.CreateRoom(ctx, domain.GameTicTacToe, alice)
	require.NoError(t, err)
	code := doc.Code

	feed, release, err := m.Subscribe(ctx, code)
	require.NoError(t, err)
	defer release()

	next := func() domain.MatchDoc {
		select {
		case d, ok := <-feed:
			require.True(t, ok, "feed closed early")
			return d
		case <-time.After(time.Second):
			t.Fatal("no feed delivery")
			return domain.MatchDoc{}
		}
	}

	_, err = m.JoinRoom(ctx, code, bob)
	require.NoError(t, err)
	d := next()
	assert.Equal(t, "Bob", d.GuestName, "guest name appears in host's next update")

	_, err = m.Ready(ctx, code, alice.UID)
	require.NoError(t, err)
	next()
	_, err = m.Ready(ctx, code, bob.UID)
	require.NoError(t, err)
	d = next()
	require.Equal(t, domain.StatusPlaying, d.Status)

	_, err = m.Move(ctx, code, alice.UID, 0, tttMove(4))
	require.NoError(t, err)
	d = next()

	var st game.TicTacToeState
	require.NoError(t, json.Unmarshal(d.State, &st))
	assert.Equal(t, "X", st.Board[4])
	assert.Equal(t, domain.SeatGuest, d.Turn)

	_, err = m.Move(ctx, code, bob.UID, 0, tttMove(0))
	require.NoError(t, err)
	d = next()
	require.NoError(t, json.Unmarshal(d.State, &st))
	assert.Equal(t, "O", st.Board[0])
	assert.Equal(t, domain.SeatHost, d.Turn)
}

func TestSweeperAbandonsIdleMatches(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, WithIdleTimeout(time.Millisecond))
	doc := startedRoom(t, m)

	time.Sleep(5 * time.Millisecond)
	m.sweep(ctx)

	got, err := m.GetRoom(ctx, doc.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbandoned, got.Status)
}

// The sweeper enumerates the store, so rooms created by another manager
// instance (or before a restart) are swept as well.
func TestSweeperCoversRoomsFromOtherInstances(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()

	m1 := NewManager(store, game.NewRegistry())
	doc, err := m1.CreateRoom(ctx, domain.GameTicTacToe, alice)
	require.NoError(t, err)
	_, err = m1.JoinRoom(ctx, doc.Code, bob)
	require.NoError(t, err)
	_, err = m1.Ready(ctx, doc.Code, alice.UID)
	require.NoError(t, err)
	_, err = m1.Ready(ctx, doc.Code, bob.UID)
	require.NoError(t, err)

	// A fresh instance over the same store never touched this room.
	m2 := NewManager(store, game.NewRegistry(), WithIdleTimeout(time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	m2.sweep(ctx)

	got, err := m2.GetRoom(ctx, doc.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbandoned, got.Status)
}

func TestSweeperKeepsFreshTerminalRooms(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	doc := startedRoom(t, m)

	_, err := m.Leave(ctx, doc.Code, bob.UID)
	require.NoError(t, err)

	// Terminal but recent: retained for late readers.
	m.sweep(ctx)
	_, err = m.GetRoom(ctx, doc.Code)
	require.NoError(t, err)
}
