package lock

import "time"

// #region types

// State names the three per-channel conditions. Locked is terminal for the
// session.
type State string

const (
	StateIdle   State = "idle"   // not lockable, no timer running
	StateTiming State = "timing" // lockable, dwell timer running
	StateLocked State = "locked"
)

// Config holds the temporal knobs of the dwell machine.
type Config struct {
	Dwell        time.Duration // continuous lockable time required to lock
	OutTolerance float64       // excursion multiplier before the timer resets
}

// DefaultConfig returns the tuning the device ships with.
func DefaultConfig() Config {
	return Config{
		Dwell:        500 * time.Millisecond,
		OutTolerance: 1.5,
	}
}

// Input is one evaluated sample for one channel: the effective (persistence
// filtered) value, its zone, and the session's target window.
type Input struct {
	Effective int
	Extreme   bool
	Target    int
	Tolerance int
	Now       time.Time
}

// Result reports the state after an update. JustLocked is true exactly once,
// on the transition into Locked.
type Result struct {
	State      State
	JustLocked bool
}

// #endregion types

// #region machine

// Machine tracks dwell time in the lockable condition for a single channel.
// Small excursions — still extreme, within OutTolerance× the window — do not
// reset the timer, so sensor jitter cannot perpetually restart a
// near-complete lock.
type Machine struct {
	cfg           Config
	locked        bool
	lockableSince time.Time
	timing        bool
}

// NewMachine creates an idle machine.
func NewMachine(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// State returns the current logical state.
func (m *Machine) State() State {
	switch {
	case m.locked:
		return StateLocked
	case m.timing:
		return StateTiming
	default:
		return StateIdle
	}
}

// Locked reports whether the channel has locked this session.
func (m *Machine) Locked() bool {
	return m.locked
}

// LockableSince returns the running timer's start, if one is running.
func (m *Machine) LockableSince() (time.Time, bool) {
	return m.lockableSince, m.timing
}

// Update evaluates one sample. Locked never regresses; only Reset clears it.
func (m *Machine) Update(in Input) Result {
	if m.locked {
		return Result{State: StateLocked}
	}

	dist := in.Effective - in.Target
	if dist < 0 {
		dist = -dist
	}
	lockable := in.Extreme && dist <= in.Tolerance

	if lockable {
		if !m.timing {
			m.timing = true
			m.lockableSince = in.Now
			return Result{State: StateTiming}
		}
		if in.Now.Sub(m.lockableSince) >= m.cfg.Dwell {
			m.locked = true
			m.timing = false
			return Result{State: StateLocked, JustLocked: true}
		}
		return Result{State: StateTiming}
	}

	if m.timing {
		// Hysteresis: only a significant exit clears the timer.
		exitLimit := int(float64(in.Tolerance) * m.cfg.OutTolerance)
		if !in.Extreme || dist > exitLimit {
			m.timing = false
			m.lockableSince = time.Time{}
			return Result{State: StateIdle}
		}
		return Result{State: StateTiming}
	}

	return Result{State: StateIdle}
}

// Reset returns the machine to idle. Called on session reset only.
func (m *Machine) Reset() {
	m.locked = false
	m.timing = false
	m.lockableSince = time.Time{}
}

// #endregion machine
