package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "typeduel_sessions_active",
		Help: "Number of live game sessions.",
	})

	playersJoined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "typeduel_players_joined_total",
		Help: "Total player joins across all sessions.",
	})

	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "typeduel_client_messages_total",
		Help: "Client messages processed, by message type.",
	}, []string{"type"})

	protocolErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "typeduel_protocol_errors_total",
		Help: "Client messages rejected as protocol violations.",
	})

	gamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "typeduel_games_finished_total",
		Help: "Completed rounds, by mode.",
	}, []string{"mode"})
)
