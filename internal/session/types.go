package session

import (
	"time"

	"github.com/s-piovesan/lockbox/internal/classify"
	"github.com/s-piovesan/lockbox/internal/lock"
	"github.com/s-piovesan/lockbox/internal/target"
)

// #region session

// Session is one lock-picking attempt. Exactly one is active per engine;
// starting a new one invalidates the previous.
type Session struct {
	ID         string
	Difficulty target.Difficulty
	Tolerance  int
	Targets    [3]int
	Unlocked   bool
	StartedAt  time.Time
	UnlockedAt time.Time
}

// Snapshot is a read-only view of the engine for inspection and tests.
type Snapshot struct {
	Session   Session
	States    [3]lock.State
	Persisted [3]int
}

// #endregion session

// #region interfaces

// Emitter receives feedback commands and game events. Implemented by
// feedback.Emitter; tests substitute a capture.
type Emitter interface {
	Leds(leds [3]int)
	PinLocked(channel int)
	SessionUnlocked(elapsed time.Duration)
	SessionReset(difficulty string)
}

// Recorder journals sessions and events. May be nil; recording failures are
// logged and never affect game state.
type Recorder interface {
	StartSession(id string, difficulty string, tolerance int, targets [3]int, at time.Time) error
	MarkUnlocked(id string, at time.Time) error
	RecordEvent(sessionID, kind string, channel int, at time.Time) error
	RecordSample(sessionID string, values [3]int, at time.Time) error
}

// #endregion interfaces

// #region config

// Config wires together the per-stage tunings and the engine's own knobs.
type Config struct {
	Classify   classify.Config
	Target     target.Config
	Lock       lock.Config
	Difficulty target.Difficulty
	ResetDelay time.Duration // pause between unlock and automatic reset
	Seed       int64         // target generator seed; 0 means time-derived
	Clock      func() time.Time
	Debug      bool

	// FixedTargets bypasses the generator. Used by the replay harness,
	// where the fixture dictates target placement.
	FixedTargets *[3]int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		Classify:   classify.DefaultConfig(),
		Target:     target.DefaultConfig(),
		Lock:       lock.DefaultConfig(),
		Difficulty: target.Normal,
		ResetDelay: 3 * time.Second,
	}
}

// #endregion config
