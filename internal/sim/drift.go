package sim

import (
	"math/rand"

	"github.com/s-piovesan/lockbox/internal/protocol"
)

// #region config

// Config tunes the simulated controls.
type Config struct {
	RangeMin int
	RangeMax int
	Center   int
	MaxDrift int // per-tick random step, both directions

	// Goals, when enabled, pull each channel toward a target so a
	// simulated run eventually locks pins instead of wandering forever.
	Goals     [3]int
	GoalBias  int // extra step toward the goal per tick, 0 disables
	GoalReach int // stop pulling once within this distance
}

// DefaultConfig drifts three centered controls by up to ±20 per tick with no
// goal pull, matching casual hands on real hardware.
func DefaultConfig() Config {
	return Config{
		RangeMin: 0,
		RangeMax: 1023,
		Center:   512,
		MaxDrift: 20,
	}
}

// #endregion config

// #region drifter

// Drifter generates a plausible stream of joystick values as a bounded
// random walk. Not safe for concurrent use; drive it from one goroutine.
type Drifter struct {
	cfg    Config
	rng    *rand.Rand
	values [3]int
}

// NewDrifter starts all channels at center. seed 0 leaves the walk
// deterministic only if the caller always passes the same seed.
func NewDrifter(cfg Config, seed int64) *Drifter {
	d := &Drifter{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
	for i := range d.values {
		d.values[i] = cfg.Center
	}
	return d
}

// Step advances every channel one tick and returns the new values.
func (d *Drifter) Step() [3]int {
	for i := range d.values {
		d.values[i] = d.step(i, d.values[i])
	}
	return d.values
}

// Values returns the current values without advancing.
func (d *Drifter) Values() [3]int {
	return d.values
}

// Set forces a channel to a value, clamped to range. Used when a test or an
// interactive bridge wants to take over one control.
func (d *Drifter) Set(channel, value int) {
	if channel < 1 || channel > protocol.ChannelCount {
		return
	}
	d.values[channel-1] = d.clamp(value)
}

func (d *Drifter) step(i, current int) int {
	next := current + d.rng.Intn(2*d.cfg.MaxDrift+1) - d.cfg.MaxDrift

	if d.cfg.GoalBias > 0 {
		goal := d.cfg.Goals[i]
		diff := goal - next
		if diff > d.cfg.GoalReach {
			next += d.cfg.GoalBias
		} else if diff < -d.cfg.GoalReach {
			next -= d.cfg.GoalBias
		}
	}
	return d.clamp(next)
}

func (d *Drifter) clamp(v int) int {
	if v < d.cfg.RangeMin {
		return d.cfg.RangeMin
	}
	if v > d.cfg.RangeMax {
		return d.cfg.RangeMax
	}
	return v
}

// #endregion drifter
