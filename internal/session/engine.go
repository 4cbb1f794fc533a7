package session

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/s-piovesan/lockbox/internal/classify"
	"github.com/s-piovesan/lockbox/internal/feedback"
	"github.com/s-piovesan/lockbox/internal/lock"
	"github.com/s-piovesan/lockbox/internal/metrics"
	"github.com/s-piovesan/lockbox/internal/target"
)

// #region engine

// Engine owns all session state. Every mutation — samples, control
// commands, timer callbacks — goes through its mutex, so no two samples are
// ever evaluated concurrently and timer decisions always see the previous
// state. Timer callbacks carry the session ID they were scheduled under and
// are ignored if a newer session has replaced it.
type Engine struct {
	cfg     Config
	clock   func() time.Time
	emitter Emitter
	rec     Recorder

	mu         sync.Mutex
	filter     *classify.Filter
	gen        *target.Generator
	machines   [3]*lock.Machine
	sess       Session
	active     bool
	resetTimer *time.Timer
	closed     bool
}

// NewEngine creates an engine. rec may be nil. The session itself starts
// lazily, on the first sample or the first explicit reset.
func NewEngine(cfg Config, emitter Emitter, rec Recorder) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = cfg.Clock().UnixNano()
	}
	e := &Engine{
		cfg:     cfg,
		clock:   cfg.Clock,
		emitter: emitter,
		rec:     rec,
		filter:  classify.NewFilter(cfg.Classify),
		gen:     target.NewGenerator(cfg.Target, seed),
	}
	for i := range e.machines {
		e.machines[i] = lock.NewMachine(cfg.Lock)
	}
	return e
}

// #endregion engine

// #region samples

// HandleSample evaluates one frame of raw values for all three channels,
// updates the lock machines, drives feedback, and fires the one-shot
// unlocked transition when the third channel locks.
func (e *Engine) HandleSample(values [3]int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.ensureSessionLocked()

	now := e.clock()
	metrics.SamplesProcessed.Inc()
	if e.rec != nil {
		if err := e.rec.RecordSample(e.sess.ID, values, now); err != nil {
			log.Printf("[SESSION] record sample: %v", err)
		}
	}

	var leds [3]int
	lockedCount := 0
	for i := 0; i < 3; i++ {
		ch := i + 1
		eff, cls := e.filter.Apply(ch, values[i])
		dist := abs(eff - e.sess.Targets[i])

		res := e.machines[i].Update(lock.Input{
			Effective: eff,
			Extreme:   cls.Extreme,
			Target:    e.sess.Targets[i],
			Tolerance: e.sess.Tolerance,
			Now:       now,
		})
		if res.JustLocked {
			e.onPinLockedLocked(ch, now)
		}
		if res.State == lock.StateLocked {
			lockedCount++
		}
		leds[i] = feedback.Intensity(dist, e.sess.Tolerance, res.State)
	}
	metrics.LockedChannels.Set(float64(lockedCount))
	e.emitter.Leds(leds)

	if lockedCount == 3 && !e.sess.Unlocked {
		e.onUnlockedLocked(now)
	}
}

func (e *Engine) onPinLockedLocked(channel int, now time.Time) {
	log.Printf("[SESSION] pin %d locked (session %s)", channel, e.sess.ID)
	metrics.PinsLocked.WithLabelValues(fmt.Sprintf("%d", channel)).Inc()
	e.emitter.PinLocked(channel)
	if e.rec != nil {
		if err := e.rec.RecordEvent(e.sess.ID, "pin_locked", channel, now); err != nil {
			log.Printf("[SESSION] record event: %v", err)
		}
	}
}

// onUnlockedLocked fires the terminal success exactly once per session and
// schedules the automatic reset, guarded by the session ID.
func (e *Engine) onUnlockedLocked(now time.Time) {
	e.sess.Unlocked = true
	e.sess.UnlockedAt = now
	elapsed := now.Sub(e.sess.StartedAt)

	log.Printf("[SESSION] unlocked in %s (session %s)", elapsed, e.sess.ID)
	metrics.SessionsUnlocked.Inc()
	e.emitter.SessionUnlocked(elapsed)
	if e.rec != nil {
		if err := e.rec.MarkUnlocked(e.sess.ID, now); err != nil {
			log.Printf("[SESSION] mark unlocked: %v", err)
		}
		if err := e.rec.RecordEvent(e.sess.ID, "session_unlocked", 0, now); err != nil {
			log.Printf("[SESSION] record event: %v", err)
		}
	}

	epoch := e.sess.ID
	e.resetTimer = time.AfterFunc(e.cfg.ResetDelay, func() {
		e.resetIfCurrent(epoch)
	})
}

// #endregion samples

// #region control

// SetDifficulty validates the tier and starts a fresh session at it. On an
// unknown tier the current session is left untouched.
func (e *Engine) SetDifficulty(name string) error {
	d, err := target.ParseDifficulty(name)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("engine closed")
	}
	e.startSessionLocked(d, true)
	return nil
}

// Reset discards all lock progress, persisted extremes, and cached targets,
// and starts a new session at the current difficulty.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.startSessionLocked(e.currentDifficultyLocked(), true)
}

// resetIfCurrent is the post-unlock timer callback. A stale callback — one
// scheduled under a session that has since been replaced — must not touch
// the new session.
func (e *Engine) resetIfCurrent(epoch string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || !e.active || e.sess.ID != epoch {
		return
	}
	e.startSessionLocked(e.sess.Difficulty, true)
}

// Close synchronously cancels the pending reset timer and stops accepting
// samples. Lock dwell timers are sample-driven and need no cancellation.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.cancelResetLocked()
}

// #endregion control

// #region lifecycle

func (e *Engine) currentDifficultyLocked() target.Difficulty {
	if e.active {
		return e.sess.Difficulty
	}
	return e.cfg.Difficulty
}

// ensureSessionLocked creates the session on the first classified sample.
func (e *Engine) ensureSessionLocked() {
	if !e.active {
		e.startSessionLocked(e.cfg.Difficulty, false)
	}
}

// startSessionLocked replaces the active session. Everything the old session
// owned — lock records, persisted extremes, the target cache, the pending
// reset timer — is cleared before the new one is announced.
func (e *Engine) startSessionLocked(d target.Difficulty, announce bool) {
	e.cancelResetLocked()
	e.gen.Invalidate()
	e.filter.Reset()
	for _, m := range e.machines {
		m.Reset()
	}
	metrics.LockedChannels.Set(0)

	tol := d.Tolerance()
	var targets [3]int
	if e.cfg.FixedTargets != nil {
		targets = *e.cfg.FixedTargets
	} else {
		targets = e.gen.Targets(d, tol)
	}

	e.sess = Session{
		ID:         uuid.New().String(),
		Difficulty: d,
		Tolerance:  tol,
		Targets:    targets,
		StartedAt:  e.clock(),
	}
	e.active = true

	if e.cfg.Debug {
		log.Printf("[SESSION] new session %s difficulty=%s tolerance=%d targets=%v",
			e.sess.ID, d, tol, targets)
	}
	if e.rec != nil {
		if err := e.rec.StartSession(e.sess.ID, string(d), tol, targets, e.sess.StartedAt); err != nil {
			log.Printf("[SESSION] start session: %v", err)
		}
	}
	if announce {
		metrics.SessionsReset.Inc()
		e.emitter.SessionReset(string(d))
	}
}

func (e *Engine) cancelResetLocked() {
	if e.resetTimer != nil {
		e.resetTimer.Stop()
		e.resetTimer = nil
	}
}

// #endregion lifecycle

// #region inspection

// Snapshot returns a consistent view of the engine's state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	var snap Snapshot
	snap.Session = e.sess
	for i := range e.machines {
		snap.States[i] = e.machines[i].State()
		snap.Persisted[i] = e.filter.Persisted(i + 1)
	}
	return snap
}

// #endregion inspection

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
