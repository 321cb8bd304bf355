package ws

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arcade-neon/arcade-neon-sub000/internal/logger"
	"github.com/arcade-neon/arcade-neon-sub000/internal/match"
)

var wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "ws_connections",
	Help: "Currently open websocket feed connections.",
})

func init() {
	prometheus.MustRegister(wsConnections)
}

// Hub tracks open feed connections per room code. Room membership and game
// state live in the match manager; the hub only knows who is attached so it
// can report counts and close everything on shutdown.
type Hub struct {
	Matches *match.Manager

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub(matches *match.Manager) *Hub {
	return &Hub{
		Matches: matches,
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.rooms[c.Code]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[c.Code] = set
	}
	set[c] = struct{}{}
	wsConnections.Inc()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.rooms[c.Code]
	if !ok {
		return
	}
	if _, present := set[c]; !present {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.rooms, c.Code)
	}
	wsConnections.Dec()
}

// RoomClients reports how many feed connections a room currently has.
func (h *Hub) RoomClients(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

// Shutdown closes every open connection. Clients unregister themselves as
// their read pumps fail.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0)
	for _, set := range h.rooms {
		for c := range set {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
	if len(clients) > 0 {
		logger.Info("ws hub shutdown", "closed", len(clients))
	}
}
