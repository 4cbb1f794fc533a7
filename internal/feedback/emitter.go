package feedback

import (
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/s-piovesan/lockbox/internal/lock"
	"github.com/s-piovesan/lockbox/internal/protocol"
)

// #region intensity

// Intensity maps one channel's distance-to-target and lock state to the
// device's 0–255 LED range. Locked burns at maximum; a channel that is
// lockable and timing glows proportionally to proximity; anything else sits
// near zero, with a faint falloff so a player sweeping past a target still
// gets a hint.
func Intensity(dist, tolerance int, st lock.State) int {
	switch st {
	case lock.StateLocked:
		return protocol.LedMax

	case lock.StateTiming:
		p := 1.0 - float64(dist)/float64(tolerance)
		if p < 0 {
			p = 0
		}
		return 120 + int(p*135)

	default:
		if dist <= tolerance {
			return 63
		}
		far := tolerance * 4
		if dist >= far {
			return 0
		}
		// Linear falloff from 63 at the window edge to 0 at 4× tolerance.
		return int(63 * (1 - float64(dist-tolerance)/float64(far-tolerance)))
	}
}

// #endregion intensity

// #region emitter

// Sender delivers an encoded message toward the viewers without blocking;
// it reports whether the message was accepted.
type Sender interface {
	Send(data []byte) bool
}

// EventSink receives game events for side channels (telemetry). May be nil.
type EventSink interface {
	PublishEvent(kind string, payload []byte)
}

// Config tunes the outbound LED throttle. Events are never throttled.
type Config struct {
	LedRate  rate.Limit // led_control messages per second
	LedBurst int
	Debug    bool
}

// DefaultConfig caps LED updates at 30/s, a little above the device's
// 10 Hz sample cadence.
func DefaultConfig() Config {
	return Config{LedRate: 30, LedBurst: 5}
}

// Emitter translates lock/classifier state into indicator commands and
// outbound event messages. Its side effects are limited to handing encoded
// messages to the sender and sink; it never blocks on the outcome.
type Emitter struct {
	sender  Sender
	sink    EventSink
	limiter *rate.Limiter
	debug   bool
}

// NewEmitter wires an emitter to a sender. sink may be nil.
func NewEmitter(sender Sender, sink EventSink, cfg Config) *Emitter {
	return &Emitter{
		sender:  sender,
		sink:    sink,
		limiter: rate.NewLimiter(cfg.LedRate, cfg.LedBurst),
		debug:   cfg.Debug,
	}
}

// Leds sends a led_control update, throttled. A skipped frame is fine: the
// next sample refreshes the intensities anyway.
func (e *Emitter) Leds(leds [3]int) {
	if !e.limiter.Allow() {
		return
	}
	if !e.sender.Send(protocol.EncodeLedControl(leds)) && e.debug {
		log.Printf("[FEEDBACK] led_control dropped")
	}
}

// Override forwards a viewer's explicit indicator command, bypassing the
// throttle.
func (e *Emitter) Override(leds [3]int) {
	e.sender.Send(protocol.EncodeLedControl(leds))
}

// PinLocked announces a channel lock (1-based channel id).
func (e *Emitter) PinLocked(channel int) {
	msg := protocol.EncodePinLocked(channel)
	e.sender.Send(msg)
	if e.sink != nil {
		e.sink.PublishEvent("pin_locked", msg)
	}
}

// SessionUnlocked announces the terminal success with the elapsed solve time.
func (e *Emitter) SessionUnlocked(elapsed time.Duration) {
	msg := protocol.EncodeSessionUnlocked(elapsed.Milliseconds())
	e.sender.Send(msg)
	if e.sink != nil {
		e.sink.PublishEvent("session_unlocked", msg)
	}
}

// SessionReset announces a fresh session at the given difficulty.
func (e *Emitter) SessionReset(difficulty string) {
	msg := protocol.EncodeSessionReset(difficulty)
	e.sender.Send(msg)
	if e.sink != nil {
		e.sink.PublishEvent("session_reset", msg)
	}
}

// #endregion emitter
