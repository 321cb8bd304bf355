// Package match implements the room-document turn-sync protocol: a room
// registry keyed by short codes, one shared match document per session,
// versioned compare-and-swap writes, and a change feed of full snapshots.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/arcade-neon/arcade-neon-sub000/internal/docstore"
	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
	"github.com/arcade-neon/arcade-neon-sub000/internal/game"
	"github.com/arcade-neon/arcade-neon-sub000/internal/logger"
)

const (
	roomsCollection = "rooms"

	createAttempts = 5
	mergeAttempts  = 3

	// Terminal rooms are garbage collected after this long.
	terminalRetention = time.Hour
	sweepInterval     = 10 * time.Minute
)

// Archiver persists finished matches. Failures are logged, never fatal.
type Archiver interface {
	Archive(ctx context.Context, rec *domain.MatchRecord) error
}

type Manager struct {
	store   docstore.Store
	games   *game.Registry
	archive Archiver

	codeLength int

	// idleTimeout abandons playing rooms with no writes for this long.
	// Zero disables the sweep.
	idleTimeout time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Manager)

func WithArchiver(a Archiver) Option {
	return func(m *Manager) { m.archive = a }
}

func WithCodeLength(n int) Option {
	return func(m *Manager) { m.codeLength = n }
}

func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idleTimeout = d }
}

func NewManager(store docstore.Store, games *game.Registry, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		games:      games,
		codeLength: 4,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateRoom allocates a fresh code and writes the initial match document
// with the creator as host. Code collisions are retried; two sessions can
// never silently share one document because the store rejects duplicate
// creates.
func (m *Manager) CreateRoom(ctx context.Context, gameType domain.GameType, host domain.Identity) (*domain.MatchDoc, error) {
	if _, err := m.games.Get(gameType); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		m.mu.Lock()
		code := newRoomCode(m.rng, m.codeLength)
		m.mu.Unlock()

		now := time.Now()
		doc := &domain.MatchDoc{
			Code:      code,
			GameType:  gameType,
			HostID:    host.UID,
			HostName:  host.DisplayName,
			Status:    domain.StatusWaiting,
			CreatedAt: now,
			UpdatedAt: now,
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}

		stored, err := m.store.Create(ctx, roomsCollection, code, data)
		if errors.Is(err, docstore.ErrExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}

		doc.Version = stored.Version
		roomsCreated.WithLabelValues(string(gameType)).Inc()
		logger.Info("room created", "code", code, "game", gameType, "host", host.UID)
		return doc, nil
	}

	return nil, ErrCodeSpaceExhausted
}

// GetRoom reads the current match document.
func (m *Manager) GetRoom(ctx context.Context, code string) (*domain.MatchDoc, error) {
	stored, err := m.store.Get(ctx, roomsCollection, code)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeDoc(stored)
}

// JoinRoom merges the guest identity into the document. Joining a missing
// code fails with ErrRoomNotFound and creates nothing. Rejoining with the
// same uid is idempotent.
func (m *Manager) JoinRoom(ctx context.Context, code string, guest domain.Identity) (*domain.MatchDoc, error) {
	doc, err := m.mutate(ctx, code, func(doc *domain.MatchDoc) error {
		if doc.HostID == guest.UID {
			return nil // host re-reading its own room
		}
		if doc.GuestID != "" && doc.GuestID != guest.UID {
			return ErrRoomFull
		}
		if doc.GuestID == guest.UID {
			return nil
		}
		if doc.Status != domain.StatusWaiting {
			return ErrRoomFull
		}

		doc.GuestID = guest.UID
		doc.GuestName = guest.DisplayName
		doc.Status = domain.StatusReady
		doc.LastAction = guest.DisplayName + " joined"
		return nil
	})
	if err != nil {
		return nil, err
	}

	roomsJoined.WithLabelValues(string(doc.GameType)).Inc()
	return doc, nil
}

// Ready flips the player's ready flag. When both flags are set the game
// state is initialized and the match moves to playing.
func (m *Manager) Ready(ctx context.Context, code, uid string) (*domain.MatchDoc, error) {
	return m.mutate(ctx, code, func(doc *domain.MatchDoc) error {
		seat, ok := doc.Seat(uid)
		if !ok {
			return ErrNotInRoom
		}
		if doc.Status.Terminal() || doc.Status == domain.StatusPlaying {
			return nil // ready after start is a no-op
		}

		if seat == domain.SeatHost {
			doc.HostReady = true
		} else {
			doc.GuestReady = true
		}

		if doc.HostReady && doc.GuestReady && doc.GuestID != "" {
			g, err := m.games.Get(doc.GameType)
			if err != nil {
				return err
			}
			state, opening, err := g.Init()
			if err != nil {
				return err
			}
			doc.State = state
			doc.Turn = opening
			doc.Status = domain.StatusPlaying
			doc.LastAction = "match started"
		}
		return nil
	})
}

// Move runs the game's reducer for one local move and writes the result
// back conditionally. baseVersion is the document version the caller's
// move was computed against; pass 0 to act on the latest snapshot. A move
// based on an outdated version fails with ErrStaleWrite instead of
// clobbering the newer state.
func (m *Manager) Move(ctx context.Context, code, uid string, baseVersion int64, move json.RawMessage) (*domain.MatchDoc, error) {
	doc, err := m.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}

	seat, ok := doc.Seat(uid)
	if !ok {
		return nil, ErrNotInRoom
	}

	g, err := m.games.Get(doc.GameType)
	if err != nil {
		return nil, err
	}
	gameLabel := string(doc.GameType)

	if doc.Status.Terminal() {
		movesRejected.WithLabelValues(gameLabel, "finished").Inc()
		return nil, ErrMatchFinished
	}
	if doc.Status != domain.StatusPlaying {
		movesRejected.WithLabelValues(gameLabel, "not_started").Inc()
		return nil, ErrNotStarted
	}
	if baseVersion > 0 && baseVersion != doc.Version {
		staleWrites.Inc()
		movesRejected.WithLabelValues(gameLabel, "stale").Inc()
		return nil, ErrStaleWrite
	}
	if doc.Turn != seat {
		movesRejected.WithLabelValues(gameLabel, "turn").Inc()
		return nil, ErrNotYourTurn
	}

	next, outcome, err := g.Apply(doc.State, seat, move)
	if err != nil {
		if errors.Is(err, game.ErrInvalidMove) {
			movesRejected.WithLabelValues(gameLabel, "invalid").Inc()
		}
		return nil, err
	}

	doc.State = next
	doc.LastAction = doc.PlayerName(seat) + " moved"

	if outcome != nil {
		doc.Status = domain.StatusFinished
		doc.Winner = outcome.Winner
		doc.Draw = outcome.Draw
		doc.Turn = ""
		if outcome.Detail != nil {
			if detail, err := json.Marshal(outcome.Detail); err == nil {
				doc.Detail = detail
			}
		}
	} else if g.KeepTurn(next) {
		doc.Turn = seat
	} else {
		doc.Turn = seat.Other()
	}

	updated, err := m.writeDoc(ctx, doc)
	if errors.Is(err, docstore.ErrVersionConflict) {
		staleWrites.Inc()
		movesRejected.WithLabelValues(gameLabel, "stale").Inc()
		return nil, ErrStaleWrite
	}
	if err != nil {
		return nil, err
	}

	movesAccepted.WithLabelValues(gameLabel).Inc()

	if updated.Status.Terminal() {
		m.archiveMatch(updated)
	}
	return updated, nil
}

// errRoomEmptied signals inside Leave that the departing host found no
// guest to hand the room to.
var errRoomEmptied = errors.New("match: room emptied")

// Leave removes a player. Leaving mid-game resolves the match as abandoned
// with the remaining player as winner. Before the start a guest's seat is
// simply vacated; a departing host hands the room to a seated guest, or the
// room is deleted when nobody is left.
func (m *Manager) Leave(ctx context.Context, code, uid string) (*domain.MatchDoc, error) {
	doc, err := m.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	seat, ok := doc.Seat(uid)
	if !ok {
		return nil, ErrNotInRoom
	}

	if doc.Status == domain.StatusWaiting || doc.Status == domain.StatusReady {
		if seat == domain.SeatGuest {
			return m.mutate(ctx, code, func(doc *domain.MatchDoc) error {
				doc.GuestID = ""
				doc.GuestName = ""
				doc.GuestReady = false
				doc.Status = domain.StatusWaiting
				doc.LastAction = "guest left"
				return nil
			})
		}

		updated, err := m.mutate(ctx, code, func(doc *domain.MatchDoc) error {
			if doc.GuestID == "" {
				return errRoomEmptied
			}
			doc.HostID = doc.GuestID
			doc.HostName = doc.GuestName
			doc.HostReady = false
			doc.GuestID = ""
			doc.GuestName = ""
			doc.GuestReady = false
			doc.Status = domain.StatusWaiting
			doc.LastAction = doc.HostName + " is now host"
			return nil
		})
		if errors.Is(err, errRoomEmptied) {
			if err := m.store.Delete(ctx, roomsCollection, code); err != nil {
				return nil, err
			}
			return doc, nil
		}
		return updated, err
	}

	return m.mutate(ctx, code, func(doc *domain.MatchDoc) error {
		if doc.Status.Terminal() {
			return nil
		}
		seat, ok := doc.Seat(uid)
		if !ok {
			return ErrNotInRoom
		}
		winner := seat.Other()
		doc.Status = domain.StatusAbandoned
		doc.Winner = &winner
		doc.Turn = ""
		doc.LastAction = doc.PlayerName(seat) + " left the match"
		m.archiveMatch(doc)
		return nil
	})
}

// Subscribe attaches to the room's change feed. Every committed write is
// delivered as a full decoded snapshot, echoes included. The release func
// must be called on every exit path.
func (m *Manager) Subscribe(ctx context.Context, code string) (<-chan domain.MatchDoc, func(), error) {
	feed, release, err := m.store.Watch(ctx, roomsCollection, code)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	out := make(chan domain.MatchDoc, 8)
	go func() {
		defer close(out)
		for stored := range feed {
			doc, err := decodeDoc(stored)
			if err != nil {
				logger.Warn("bad match document on feed", "code", code, "error", err)
				continue
			}
			out <- *doc
		}
	}()

	return out, release, nil
}

// GameTypes lists the registered games.
func (m *Manager) GameTypes() []domain.GameType {
	return m.games.Types()
}

// View returns a copy of the document as uid may see it, with hidden
// in-flight game state redacted through the game's View hook. A uid with no
// seat gets the spectator view. Every snapshot sent to a client passes
// through here.
func (m *Manager) View(doc *domain.MatchDoc, uid string) *domain.MatchDoc {
	out := *doc
	if len(doc.State) == 0 {
		return &out
	}

	g, err := m.games.Get(doc.GameType)
	if err != nil {
		return &out
	}

	seat, _ := doc.Seat(uid)
	state, err := g.View(doc.State, seat)
	if err != nil {
		// never fall back to the unredacted state
		logger.Warn("state view failed", "code", doc.Code, "game", doc.GameType, "error", err)
		out.State = nil
		return &out
	}
	out.State = state
	return &out
}

// StartSweeper begins the background pass that abandons idle matches and
// garbage collects terminal rooms. It stops when ctx is cancelled.
func (m *Manager) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// sweep enumerates the store, so rooms created by other instances (or by a
// previous life of this one) are swept too.
func (m *Manager) sweep(ctx context.Context) {
	codes, err := m.store.List(ctx, roomsCollection)
	if err != nil {
		logger.Warn("sweep: list failed", "error", err)
		return
	}

	now := time.Now()
	for _, code := range codes {
		doc, err := m.GetRoom(ctx, code)
		if errors.Is(err, ErrRoomNotFound) {
			continue
		}
		if err != nil {
			logger.Warn("sweep: read failed", "code", code, "error", err)
			continue
		}

		if doc.Status.Terminal() {
			if now.Sub(doc.UpdatedAt) > terminalRetention {
				if err := m.store.Delete(ctx, roomsCollection, code); err != nil {
					logger.Warn("sweep: delete failed", "code", code, "error", err)
					continue
				}
				logger.Info("room garbage collected", "code", code)
			}
			continue
		}

		if m.idleTimeout > 0 && doc.Status == domain.StatusPlaying && now.Sub(doc.UpdatedAt) > m.idleTimeout {
			_, err := m.mutate(ctx, code, func(doc *domain.MatchDoc) error {
				if doc.Status != domain.StatusPlaying {
					return nil
				}
				doc.Status = domain.StatusAbandoned
				doc.Turn = ""
				doc.LastAction = "match timed out"
				m.archiveMatch(doc)
				return nil
			})
			if err != nil {
				logger.Warn("sweep: abandon failed", "code", code, "error", err)
				continue
			}
			logger.Info("idle match abandoned", "code", code)
		}
	}
}

// mutate is a read-modify-write with a bounded retry on version conflicts.
// It is only used for lobby merges (join, ready, leave) whose effect does
// not depend on fields another writer races on; game moves go through Move
// and surface conflicts instead.
func (m *Manager) mutate(ctx context.Context, code string, fn func(*domain.MatchDoc) error) (*domain.MatchDoc, error) {
	var lastErr error
	for attempt := 0; attempt < mergeAttempts; attempt++ {
		doc, err := m.GetRoom(ctx, code)
		if err != nil {
			return nil, err
		}

		if err := fn(doc); err != nil {
			return nil, err
		}

		updated, err := m.writeDoc(ctx, doc)
		if errors.Is(err, docstore.ErrVersionConflict) {
			lastErr = ErrStaleWrite
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, lastErr
}

func (m *Manager) writeDoc(ctx context.Context, doc *domain.MatchDoc) (*domain.MatchDoc, error) {
	doc.UpdatedAt = time.Now()
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	stored, err := m.store.Update(ctx, roomsCollection, doc.Code, doc.Version, data)
	if err != nil {
		return nil, err
	}

	out := *doc
	out.Version = stored.Version
	return &out, nil
}

func (m *Manager) archiveMatch(doc *domain.MatchDoc) {
	if m.archive == nil {
		return
	}

	rec := &domain.MatchRecord{
		Code:       doc.Code,
		GameType:   doc.GameType,
		HostID:     doc.HostID,
		GuestID:    doc.GuestID,
		Winner:     doc.Winner,
		Status:     string(doc.Status),
		FinalState: append([]byte(nil), doc.State...),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.archive.Archive(ctx, rec); err != nil {
			logger.Warn("match archive failed", "code", rec.Code, "error", err)
		}
	}()
}

func decodeDoc(stored docstore.Document) (*domain.MatchDoc, error) {
	var doc domain.MatchDoc
	if err := json.Unmarshal(stored.Data, &doc); err != nil {
		return nil, fmt.Errorf("decode match document: %w", err)
	}
	doc.Version = stored.Version
	return &doc, nil
}
