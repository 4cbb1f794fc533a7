package replay

import (
	"sync"
	"time"

	"github.com/s-piovesan/lockbox/internal/session"
	"github.com/s-piovesan/lockbox/internal/target"
)

// #region types

// Frame is one recorded joystick sample at a relative offset from the start
// of the run.
type Frame struct {
	AtMs   int64
	Values [3]int
}

// Event is a game event observed (or expected) during a run.
type Event struct {
	Kind    string // "pin_locked" | "session_unlocked" | "session_reset"
	Channel int    // pin index for pin_locked, -1 otherwise
}

// Summary aggregates the events of a run.
type Summary struct {
	TotalFrames  int
	PinsLocked   int
	Unlocked     bool
	FinalStates  [3]string
	FinalSession session.Snapshot
}

// #endregion types

// #region capture

// capture implements session.Emitter and records events in order. LED
// updates are counted but not kept; replay compares event streams, not
// brightness curves.
type capture struct {
	mu       sync.Mutex
	events   []Event
	ledSends int
}

func (c *capture) Leds([3]int) {
	c.mu.Lock()
	c.ledSends++
	c.mu.Unlock()
}

func (c *capture) PinLocked(channel int) {
	c.mu.Lock()
	c.events = append(c.events, Event{Kind: "pin_locked", Channel: channel})
	c.mu.Unlock()
}

func (c *capture) SessionUnlocked(time.Duration) {
	c.mu.Lock()
	c.events = append(c.events, Event{Kind: "session_unlocked", Channel: -1})
	c.mu.Unlock()
}

func (c *capture) SessionReset(string) {
	c.mu.Lock()
	c.events = append(c.events, Event{Kind: "session_reset", Channel: -1})
	c.mu.Unlock()
}

func (c *capture) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// #endregion capture

// #region replay

// Replay feeds recorded frames through a fresh engine under a deterministic
// clock and returns the events the engine produced. The fixture's targets
// replace generated ones, so a run is reproducible regardless of seed.
//
// The automatic post-unlock reset is pushed well past the last frame, so the
// event stream ends with the unlock instead of a timer-dependent reset.
func Replay(difficulty target.Difficulty, targets [3]int, frames []Frame) ([]Event, Summary) {
	base := time.Unix(0, 0)
	now := base

	cfg := session.DefaultConfig()
	cfg.Difficulty = difficulty
	cfg.FixedTargets = &targets
	cfg.Clock = func() time.Time { return now }
	cfg.ResetDelay = 24 * time.Hour

	rec := &capture{}
	eng := session.NewEngine(cfg, rec, nil)
	defer eng.Close()

	for _, f := range frames {
		now = base.Add(time.Duration(f.AtMs) * time.Millisecond)
		eng.HandleSample(f.Values)
	}

	events := rec.snapshot()
	snap := eng.Snapshot()

	sum := Summary{
		TotalFrames:  len(frames),
		Unlocked:     snap.Session.Unlocked,
		FinalSession: snap,
	}
	for i, st := range snap.States {
		sum.FinalStates[i] = string(st)
	}
	for _, ev := range events {
		if ev.Kind == "pin_locked" {
			sum.PinsLocked++
		}
	}
	return events, sum
}

// Compare matches replayed events against an expected stream. It returns
// per-position matches and true when the streams are identical.
func Compare(expected, got []Event) ([]bool, bool) {
	n := len(expected)
	if len(got) > n {
		n = len(got)
	}
	matches := make([]bool, n)
	all := len(expected) == len(got)
	for i := 0; i < n; i++ {
		if i < len(expected) && i < len(got) && expected[i] == got[i] {
			matches[i] = true
		} else {
			all = false
		}
	}
	return matches, all
}

// #endregion replay
