package link

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/s-piovesan/lockbox/internal/metrics"
	"github.com/s-piovesan/lockbox/internal/protocol"
)

// #region types

// State is the link's connection condition.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Handler receives each successfully parsed inbound message, on the link's
// read goroutine.
type Handler func(protocol.Inbound)

// Config tunes the connection and retry behaviour.
type Config struct {
	URL            string
	DialTimeout    time.Duration
	WriteTimeout   time.Duration
	BackoffBase    time.Duration // first retry delay
	BackoffMax     time.Duration // retry delay cap
	JitterFrac     float64       // extra random fraction added to each delay
	OutboundBuffer int
	Debug          bool
}

// DefaultConfig returns the retry discipline the daemon ships with.
func DefaultConfig() Config {
	return Config{
		URL:            "ws://localhost:8765",
		DialTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		BackoffBase:    500 * time.Millisecond,
		BackoffMax:     30 * time.Second,
		JitterFrac:     0.2,
		OutboundBuffer: 64,
	}
}

// #endregion types

// #region manager

// Manager maintains the persistent connection to the device bridge:
// DISCONNECTED → CONNECTING → CONNECTED, with capped exponential backoff
// between attempts. A dial that errors synchronously is retried exactly
// like an asynchronous close. The attempt counter resets on the first
// successfully processed inbound message of a connection, so a flapping
// link that still delivers data starts its backoff over.
type Manager struct {
	cfg     Config
	handler Handler
	rng     *rand.Rand
	out     chan []byte

	mu       sync.Mutex
	state    State
	attempts int
}

// NewManager creates a manager; Run must be called to start it.
func NewManager(cfg Config, handler Handler) *Manager {
	return &Manager{
		cfg:     cfg,
		handler: handler,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		out:     make(chan []byte, cfg.OutboundBuffer),
		state:   StateDisconnected,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns the consecutive-failure count feeding the backoff.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Send enqueues a message for delivery without blocking; a full queue or a
// down link drops the message and reports false. Lock progress lives
// locally, so a dropped frame is repaired by the next one.
func (m *Manager) Send(data []byte) bool {
	select {
	case m.out <- data:
		return true
	default:
		metrics.MessagesDropped.WithLabelValues("backpressure").Inc()
		return false
	}
}

// Run drives the connect/read/retry loop until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.setState(StateConnecting)
		conn, err := m.dial(ctx)
		if err != nil {
			m.connectionLost("dial", err)
			if !m.sleepBackoff(ctx) {
				return ctx.Err()
			}
			continue
		}

		metrics.LinkConnects.Inc()
		m.setState(StateConnected)
		log.Printf("[LINK] connected to %s", m.cfg.URL)

		err = m.runConnection(ctx, conn)
		conn.Close()
		m.connectionLost("closed", err)
		if !m.sleepBackoff(ctx) {
			return ctx.Err()
		}
	}
}

// #endregion manager

// #region connection

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, m.cfg.URL, nil)
	return conn, err
}

// runConnection pumps messages both ways until the connection breaks.
func (m *Manager) runConnection(ctx context.Context, conn *websocket.Conn) error {
	quit := make(chan struct{})
	defer close(quit)
	go m.writeLoop(ctx, conn, quit)

	processed := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		msg, err := protocol.ParseInbound(data)
		if err != nil {
			// Malformed input mutates nothing; drop it quietly.
			metrics.MessagesDropped.WithLabelValues("malformed").Inc()
			if m.cfg.Debug {
				log.Printf("[LINK] dropping malformed message: %v", err)
			}
			continue
		}
		if msg.Kind == protocol.KindUnknown {
			metrics.MessagesDropped.WithLabelValues("unknown_type").Inc()
			continue
		}

		if !processed {
			processed = true
			m.resetAttempts()
		}
		m.handler(msg)
	}
}

func (m *Manager) writeLoop(ctx context.Context, conn *websocket.Conn, quit chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case data := <-m.out:
			conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				if m.cfg.Debug {
					log.Printf("[LINK] write: %v", err)
				}
				return
			}
		}
	}
}

// #endregion connection

// #region backoff

// Backoff returns the delay before the given retry attempt (0-based):
// base doubled per attempt, capped, plus up to JitterFrac extra.
func (m *Manager) Backoff(attempt int) time.Duration {
	d := m.cfg.BackoffBase
	for i := 0; i < attempt && d < m.cfg.BackoffMax; i++ {
		d *= 2
	}
	if d > m.cfg.BackoffMax {
		d = m.cfg.BackoffMax
	}
	if m.cfg.JitterFrac > 0 {
		d += time.Duration(m.rng.Float64() * m.cfg.JitterFrac * float64(d))
	}
	return d
}

func (m *Manager) sleepBackoff(ctx context.Context) bool {
	m.mu.Lock()
	attempt := m.attempts
	m.attempts++
	m.mu.Unlock()

	delay := m.Backoff(attempt)
	if m.cfg.Debug {
		log.Printf("[LINK] retry %d in %s", attempt+1, delay)
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

func (m *Manager) connectionLost(phase string, err error) {
	metrics.LinkDisconnects.Inc()
	m.setState(StateDisconnected)
	if err != nil && m.cfg.Debug {
		log.Printf("[LINK] %s: %v", phase, err)
	}
}

func (m *Manager) resetAttempts() {
	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	switch s {
	case StateDisconnected:
		metrics.LinkState.Set(0)
	case StateConnecting:
		metrics.LinkState.Set(1)
	case StateConnected:
		metrics.LinkState.Set(2)
	}
}

// #endregion backoff
