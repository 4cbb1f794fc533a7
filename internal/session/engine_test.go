package session

import (
	"sync"
	"testing"
	"time"

	"github.com/s-piovesan/lockbox/internal/target"
)

// #region fakes

// fakeClock is advanced manually so dwell timing is deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// captureEmitter records every call; timer callbacks arrive from another
// goroutine, so it is locked.
type captureEmitter struct {
	mu        sync.Mutex
	pinLocked []int
	unlocked  int
	resets    int
	ledFrames int
}

func (c *captureEmitter) Leds(leds [3]int) {
	c.mu.Lock()
	c.ledFrames++
	c.mu.Unlock()
}

func (c *captureEmitter) PinLocked(channel int) {
	c.mu.Lock()
	c.pinLocked = append(c.pinLocked, channel)
	c.mu.Unlock()
}

func (c *captureEmitter) SessionUnlocked(elapsed time.Duration) {
	c.mu.Lock()
	c.unlocked++
	c.mu.Unlock()
}

func (c *captureEmitter) SessionReset(difficulty string) {
	c.mu.Lock()
	c.resets++
	c.mu.Unlock()
}

func (c *captureEmitter) counts() (pins []int, unlocked, resets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.pinLocked...), c.unlocked, c.resets
}

// #endregion fakes

// #region helpers

var testTargets = [3]int{800, 100, 900}

func newTestEngine(clk *fakeClock, em Emitter) *Engine {
	cfg := DefaultConfig()
	cfg.Difficulty = target.Hard // tolerance 50
	cfg.Clock = clk.Now
	cfg.Seed = 1
	cfg.FixedTargets = &testTargets
	cfg.ResetDelay = 25 * time.Millisecond
	return NewEngine(cfg, em, nil)
}

// holdLockable drives one channel to its target while the others rest, for
// long enough to complete the dwell.
func holdChannel(e *Engine, clk *fakeClock, values [3]int) {
	e.HandleSample(values)
	clk.Advance(300 * time.Millisecond)
	e.HandleSample(values)
	clk.Advance(300 * time.Millisecond)
	e.HandleSample(values)
}

// #endregion helpers

func TestPinLocksOnceAfterSustainedHold(t *testing.T) {
	clk := newFakeClock()
	em := &captureEmitter{}
	e := newTestEngine(clk, em)
	defer e.Close()

	// Rest position, then push channel 1 to 780: d=268 ≥ 200 → extreme,
	// distance to target 800 is 20 ≤ 50 → lockable.
	e.HandleSample([3]int{512, 512, 512})
	holdChannel(e, clk, [3]int{780, 512, 512})

	pins, _, _ := em.counts()
	if len(pins) != 1 || pins[0] != 1 {
		t.Fatalf("expected exactly one pin_locked for channel 1, got %v", pins)
	}

	// Further identical samples: no duplicate events.
	e.HandleSample([3]int{780, 512, 512})
	e.HandleSample([3]int{780, 512, 512})
	pins, _, _ = em.counts()
	if len(pins) != 1 {
		t.Fatalf("duplicate pin_locked events: %v", pins)
	}

	snap := e.Snapshot()
	if snap.States[0] != "locked" {
		t.Fatalf("channel 1 should be locked, got %s", snap.States[0])
	}
}

func TestTwoOfThreeNeverUnlocks(t *testing.T) {
	clk := newFakeClock()
	em := &captureEmitter{}
	e := newTestEngine(clk, em)
	defer e.Close()

	holdChannel(e, clk, [3]int{800, 512, 512})
	holdChannel(e, clk, [3]int{800, 100, 512})

	_, unlocked, _ := em.counts()
	if unlocked != 0 {
		t.Fatalf("2 of 3 locked must not unlock, got %d unlock events", unlocked)
	}
	if e.Snapshot().Session.Unlocked {
		t.Fatal("session flag should not be set")
	}
}

func TestUnlockFiresOnceThenAutoResets(t *testing.T) {
	clk := newFakeClock()
	em := &captureEmitter{}
	e := newTestEngine(clk, em)
	defer e.Close()

	holdChannel(e, clk, [3]int{800, 512, 512})
	holdChannel(e, clk, [3]int{800, 100, 512})
	firstID := e.Snapshot().Session.ID
	holdChannel(e, clk, [3]int{800, 100, 900})

	_, unlocked, _ := em.counts()
	if unlocked != 1 {
		t.Fatalf("expected exactly one session_unlocked, got %d", unlocked)
	}
	snap := e.Snapshot()
	if !snap.Session.Unlocked || snap.Session.UnlockedAt.IsZero() {
		t.Fatalf("session should record the unlock: %+v", snap.Session)
	}

	// All-locked samples after the transition must not refire it.
	e.HandleSample([3]int{800, 100, 900})
	_, unlocked, _ = em.counts()
	if unlocked != 1 {
		t.Fatalf("session_unlocked refired: %d", unlocked)
	}

	// The scheduled reset replaces the session.
	deadline := time.Now().Add(2 * time.Second)
	for e.Snapshot().Session.ID == firstID {
		if time.Now().After(deadline) {
			t.Fatal("automatic reset never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap = e.Snapshot()
	if snap.Session.Unlocked {
		t.Fatal("new session should start locked=false")
	}
	for i, st := range snap.States {
		if st != "idle" {
			t.Fatalf("channel %d should be idle after reset, got %s", i+1, st)
		}
	}
}

func TestResetClearsAllState(t *testing.T) {
	clk := newFakeClock()
	em := &captureEmitter{}
	e := newTestEngine(clk, em)
	defer e.Close()

	holdChannel(e, clk, [3]int{800, 512, 512})
	before := e.Snapshot()
	if before.States[0] != "locked" || before.Persisted[0] != 800 {
		t.Fatalf("precondition: %+v", before)
	}

	e.Reset()

	snap := e.Snapshot()
	if snap.Session.ID == before.Session.ID {
		t.Fatal("reset should start a new session")
	}
	for i := range snap.States {
		if snap.States[i] != "idle" {
			t.Fatalf("channel %d not idle after reset", i+1)
		}
		if snap.Persisted[i] != 512 {
			t.Fatalf("persisted extreme %d should return to center, got %d", i+1, snap.Persisted[i])
		}
	}
	_, _, resets := em.counts()
	if resets != 1 {
		t.Fatalf("expected one session_reset event, got %d", resets)
	}
}

func TestUnknownDifficultyLeavesSessionUntouched(t *testing.T) {
	clk := newFakeClock()
	em := &captureEmitter{}
	e := newTestEngine(clk, em)
	defer e.Close()

	e.HandleSample([3]int{512, 512, 512})
	before := e.Snapshot().Session

	if err := e.SetDifficulty("nightmare"); err == nil {
		t.Fatal("unknown difficulty should be rejected")
	}

	after := e.Snapshot().Session
	if after.ID != before.ID || after.Difficulty != before.Difficulty {
		t.Fatalf("rejected command mutated the session: %+v → %+v", before, after)
	}
}

func TestSetDifficultyStartsFreshSession(t *testing.T) {
	clk := newFakeClock()
	em := &captureEmitter{}
	e := newTestEngine(clk, em)
	defer e.Close()

	holdChannel(e, clk, [3]int{800, 512, 512})
	before := e.Snapshot().Session

	if err := e.SetDifficulty("easy"); err != nil {
		t.Fatalf("easy should be accepted: %v", err)
	}

	snap := e.Snapshot()
	if snap.Session.ID == before.ID {
		t.Fatal("difficulty change should replace the session")
	}
	if snap.Session.Difficulty != target.Easy || snap.Session.Tolerance != 120 {
		t.Fatalf("new session should carry the new tier: %+v", snap.Session)
	}
	if snap.States[0] != "idle" {
		t.Fatal("lock progress must not survive a difficulty change")
	}
}

func TestStaleResetTimerIsIgnored(t *testing.T) {
	clk := newFakeClock()
	em := &captureEmitter{}
	e := newTestEngine(clk, em)
	defer e.Close()

	// Unlock to schedule the auto-reset, then reset manually before it fires.
	holdChannel(e, clk, [3]int{800, 512, 512})
	holdChannel(e, clk, [3]int{800, 100, 512})
	holdChannel(e, clk, [3]int{800, 100, 900})
	e.Reset()
	manualID := e.Snapshot().Session.ID

	// Give the (cancelled or stale) timer ample time to have fired.
	time.Sleep(120 * time.Millisecond)

	snap := e.Snapshot()
	if snap.Session.ID != manualID {
		t.Fatalf("stale timer replaced the manually reset session")
	}
	_, _, resets := em.counts()
	if resets != 1 {
		t.Fatalf("expected exactly one reset, got %d", resets)
	}
}

func TestPersistedExtremeKeepsLockProgress(t *testing.T) {
	clk := newFakeClock()
	em := &captureEmitter{}
	e := newTestEngine(clk, em)
	defer e.Close()

	// Push to target, then release to center mid-dwell. The persisted
	// extreme keeps the channel lockable and the dwell completes.
	e.HandleSample([3]int{800, 512, 512})
	clk.Advance(300 * time.Millisecond)
	e.HandleSample([3]int{520, 512, 512})
	clk.Advance(300 * time.Millisecond)
	e.HandleSample([3]int{520, 512, 512})

	pins, _, _ := em.counts()
	if len(pins) != 1 {
		t.Fatalf("released channel should still lock via persisted extreme, got %v", pins)
	}
}
