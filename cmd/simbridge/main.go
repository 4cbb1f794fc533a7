package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/s-piovesan/lockbox/internal/protocol"
	"github.com/s-piovesan/lockbox/internal/sim"
)

// simbridge stands in for the Arduino bridge: it serves the same websocket
// endpoint, emits simulated joystick traffic, and relays control messages
// between connected clients (the daemon and any viewers).

// #region hub

type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	leds    [3]int
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *hub) add(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
	}
	h.mu.Unlock()
}

// broadcast fans a message to every client except the sender. A slow client
// loses frames rather than stalling the rest.
func (h *hub) broadcast(from *websocket.Conn, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		if conn == from {
			continue
		}
		select {
		case ch <- data:
		default:
		}
	}
}

func (h *hub) setLeds(leds [3]int) {
	h.mu.Lock()
	h.leds = leds
	h.mu.Unlock()
}

func (h *hub) getLeds() [3]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leds
}

// #endregion hub

// #region wire

type stateMsg struct {
	Type      string         `json:"type"`
	Joysticks map[string]int `json:"joysticks"`
	Leds      map[string]int `json:"leds"`
}

func encodeState(joys, leds [3]int) []byte {
	data, _ := json.Marshal(stateMsg{
		Type:      "state",
		Joysticks: map[string]int{"joystick1": joys[0], "joystick2": joys[1], "joystick3": joys[2]},
		Leds:      map[string]int{"led1": leds[0], "led2": leds[1], "led3": leds[2]},
	})
	return data
}

type joystickMsg struct {
	Type      string         `json:"type"`
	Joysticks map[string]int `json:"joysticks"`
}

func encodeJoysticks(joys [3]int) []byte {
	data, _ := json.Marshal(joystickMsg{
		Type:      "joystick_update",
		Joysticks: map[string]int{"joystick1": joys[0], "joystick2": joys[1], "joystick3": joys[2]},
	})
	return data
}

type ledUpdateMsg struct {
	Type string         `json:"type"`
	Leds map[string]int `json:"leds"`
}

func encodeLedUpdate(leds [3]int) []byte {
	data, _ := json.Marshal(ledUpdateMsg{
		Type: "led_update",
		Leds: map[string]int{"led1": leds[0], "led2": leds[1], "led3": leds[2]},
	})
	return data
}

// #endregion wire

// #region main

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func main() {
	addr := flag.String("addr", ":8765", "listen address")
	tick := flag.Duration("tick", 100*time.Millisecond, "joystick sample interval")
	seed := flag.Int64("seed", time.Now().UnixNano(), "drift seed")
	goal1 := flag.Int("goal1", -1, "pull channel 1 toward this value (-1 off)")
	goal2 := flag.Int("goal2", -1, "pull channel 2 toward this value (-1 off)")
	goal3 := flag.Int("goal3", -1, "pull channel 3 toward this value (-1 off)")
	flag.Parse()

	cfg := sim.DefaultConfig()
	if *goal1 >= 0 || *goal2 >= 0 || *goal3 >= 0 {
		cfg.GoalBias = 25
		cfg.GoalReach = 30
		cfg.Goals = [3]int{orCenter(*goal1), orCenter(*goal2), orCenter(*goal3)}
	}
	drifter := sim.NewDrifter(cfg, *seed)

	h := newHub()
	var driftMu sync.Mutex

	go func() {
		for range time.Tick(*tick) {
			driftMu.Lock()
			vals := drifter.Step()
			driftMu.Unlock()
			h.broadcast(nil, encodeJoysticks(vals))
		}
	}()

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[BRIDGE] upgrade: %v", err)
			return
		}
		serveClient(h, drifter, &driftMu, conn)
	})

	log.Printf("[BRIDGE] simulated device bridge on %s (tick %s)", *addr, *tick)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func orCenter(v int) int {
	if v < 0 {
		return 512
	}
	return v
}

// #endregion main

// #region client

func serveClient(h *hub, drifter *sim.Drifter, driftMu *sync.Mutex, conn *websocket.Conn) {
	out := h.add(conn)
	defer h.remove(conn)
	defer conn.Close()

	log.Printf("[BRIDGE] client connected: %s", conn.RemoteAddr())

	// Snapshot on connect so a reconnecting daemon starts from live values.
	driftMu.Lock()
	vals := drifter.Values()
	driftMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, encodeState(vals, h.getLeds())); err != nil {
		return
	}

	go func() {
		for data := range out {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[BRIDGE] client gone: %s", conn.RemoteAddr())
			return
		}

		msg, err := protocol.ParseInbound(data)
		if err != nil {
			continue
		}

		switch msg.Kind {
		case protocol.KindLedControl:
			// The "device" applies the intensities and acknowledges.
			h.setLeds(msg.Leds)
			h.broadcast(nil, encodeLedUpdate(msg.Leds))

		case protocol.KindSetDifficulty, protocol.KindReset:
			// Viewer commands pass through to the daemon.
			h.broadcast(conn, data)

		default:
			h.broadcast(conn, data)
		}
	}
}

// #endregion client
