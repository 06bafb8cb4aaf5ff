package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "classroom",
		Name:      "rooms_active",
		Help:      "Number of rooms currently open on the relay.",
	})

	participantsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "classroom",
		Name:      "participants_active",
		Help:      "Number of participants currently joined to a room.",
	})

	signalsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom",
		Name:      "signals_relayed_total",
		Help:      "Negotiation messages routed between peers, by type.",
	}, []string{"type"})

	chatMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "classroom",
		Name:      "chat_messages_total",
		Help:      "Chat messages sequenced and fanned out by the relay.",
	})
)
