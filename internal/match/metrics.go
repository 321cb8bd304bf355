package match

import "github.com/prometheus/client_golang/prometheus"

var (
	roomsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_rooms_created_total",
			Help: "Rooms created, by game type",
		},
		[]string{"game"},
	)
	roomsJoined = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_rooms_joined_total",
			Help: "Successful guest joins, by game type",
		},
		[]string{"game"},
	)
	movesAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_moves_accepted_total",
			Help: "Moves accepted by the reducer, by game type",
		},
		[]string{"game"},
	)
	movesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_moves_rejected_total",
			Help: "Moves rejected, by game type and reason",
		},
		[]string{"game", "reason"},
	)
	staleWrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "match_stale_writes_total",
			Help: "Writes rejected by the version check",
		},
	)
)

func init() {
	prometheus.MustRegister(roomsCreated)
	prometheus.MustRegister(roomsJoined)
	prometheus.MustRegister(movesAccepted)
	prometheus.MustRegister(movesRejected)
	prometheus.MustRegister(staleWrites)
}
