package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Core counters and gauges, exported on the debug port's /metrics endpoint.

var (
	// Session engine
	SamplesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lockbox",
		Subsystem: "session",
		Name:      "samples_processed_total",
		Help:      "Total joystick sample frames evaluated",
	})

	PinsLocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lockbox",
		Subsystem: "session",
		Name:      "pins_locked_total",
		Help:      "Total pin lock transitions",
	}, []string{"channel"})

	SessionsUnlocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lockbox",
		Subsystem: "session",
		Name:      "unlocked_total",
		Help:      "Total sessions fully unlocked",
	})

	SessionsReset = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lockbox",
		Subsystem: "session",
		Name:      "resets_total",
		Help:      "Total session resets (explicit, post-unlock, difficulty change)",
	})

	LockedChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lockbox",
		Subsystem: "session",
		Name:      "locked_channels",
		Help:      "Channels currently locked (0-3)",
	})

	// Link manager
	LinkConnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lockbox",
		Subsystem: "link",
		Name:      "connects_total",
		Help:      "Successful bridge connections",
	})

	LinkDisconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lockbox",
		Subsystem: "link",
		Name:      "disconnects_total",
		Help:      "Connection losses (including failed dials)",
	})

	LinkState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lockbox",
		Subsystem: "link",
		Name:      "state",
		Help:      "Link state: 0 disconnected, 1 connecting, 2 connected",
	})

	MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lockbox",
		Subsystem: "link",
		Name:      "messages_dropped_total",
		Help:      "Messages dropped by reason",
	}, []string{"reason"})
)
