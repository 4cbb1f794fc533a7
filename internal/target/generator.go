package target

import (
	"fmt"
	"math/rand"
	"sync"
)

// #region config

// Config bounds target placement. Targets only ever land in the two extreme
// zones — [RangeMin, Center-ExtremeThreshold] and [Center+ExtremeThreshold,
// RangeMax] — so locking can only happen at positions a player deliberately
// reaches.
type Config struct {
	RangeMin         int
	RangeMax         int
	Center           int
	ExtremeThreshold int
	MinSpacing       int // minimum pairwise distance between targets
	MaxAttempts      int // random draws per slot before the deterministic fallback
}

// DefaultConfig matches the classifier's 10-bit geometry.
func DefaultConfig() Config {
	return Config{
		RangeMin:         0,
		RangeMax:         1023,
		Center:           512,
		ExtremeThreshold: 200,
		MinSpacing:       120,
		MaxAttempts:      25,
	}
}

// #endregion config

// #region generator

// Generator produces and caches target triples per (difficulty, tolerance).
// Repeated queries return the identical triple until Invalidate, so visual
// and logic replays within one episode stay consistent.
type Generator struct {
	cfg Config
	rng *rand.Rand

	mu    sync.Mutex
	cache map[string][3]int
}

// NewGenerator creates a generator with its own RNG. Pass a fixed seed for
// reproducible triples.
func NewGenerator(cfg Config, seed int64) *Generator {
	return &Generator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)),
		cache: make(map[string][3]int),
	}
}

// Targets returns the cached triple for (difficulty, tolerance), generating
// and caching it on first call.
func (g *Generator) Targets(d Difficulty, tolerance int) [3]int {
	key := fmt.Sprintf("%s:%d", d, tolerance)

	g.mu.Lock()
	defer g.mu.Unlock()

	if t, ok := g.cache[key]; ok {
		return t
	}
	t := g.generate()
	g.cache[key] = t
	return t
}

// Invalidate clears the cache. Called on session reset so the next query
// draws a fresh triple.
func (g *Generator) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache = make(map[string][3]int)
}

// #endregion generator

// #region generation

// generate fills three slots with zone-bound values, each at least
// MinSpacing from every accepted value. Random draws are bounded; exhaustion
// falls through to a deterministic zone scan, so targets are never unset.
func (g *Generator) generate() [3]int {
	var accepted []int
	for slot := 0; slot < 3; slot++ {
		v, ok := g.drawSlot(accepted)
		if !ok {
			v, ok = g.scanSlot(slot, accepted)
		}
		if !ok {
			// Pathological spacing: abandon the partial triple for the
			// fixed spaced assignment.
			return g.fixedTriple()
		}
		accepted = append(accepted, v)
	}
	return [3]int{accepted[0], accepted[1], accepted[2]}
}

func (g *Generator) drawSlot(accepted []int) (int, bool) {
	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		v := g.randomExtreme()
		if spaced(v, accepted, g.cfg.MinSpacing) {
			return v, true
		}
	}
	return 0, false
}

// randomExtreme draws uniformly from one of the two extreme zones.
func (g *Generator) randomExtreme() int {
	lowMax := g.cfg.Center - g.cfg.ExtremeThreshold
	highMin := g.cfg.Center + g.cfg.ExtremeThreshold
	if g.rng.Intn(2) == 0 {
		return g.cfg.RangeMin + g.rng.Intn(lowMax-g.cfg.RangeMin+1)
	}
	return highMin + g.rng.Intn(g.cfg.RangeMax-highMin+1)
}

// scanSlot deterministically walks both zones from the outer edges inward,
// alternating low and high, and takes the first value that satisfies
// spacing against the accepted set.
func (g *Generator) scanSlot(slot int, accepted []int) (int, bool) {
	lowMax := g.cfg.Center - g.cfg.ExtremeThreshold
	highMin := g.cfg.Center + g.cfg.ExtremeThreshold

	const step = 20
	for offset := 0; offset <= g.cfg.RangeMax; offset += step {
		var candidates [2]int
		if slot%2 == 0 {
			candidates = [2]int{g.cfg.RangeMin + offset, g.cfg.RangeMax - offset}
		} else {
			candidates = [2]int{g.cfg.RangeMax - offset, g.cfg.RangeMin + offset}
		}
		for _, c := range candidates {
			inLow := c >= g.cfg.RangeMin && c <= lowMax
			inHigh := c >= highMin && c <= g.cfg.RangeMax
			if !inLow && !inHigh {
				continue
			}
			if spaced(c, accepted, g.cfg.MinSpacing) {
				return c, true
			}
		}
		if g.cfg.RangeMin+offset > lowMax && g.cfg.RangeMax-offset < highMin {
			break
		}
	}
	return 0, false
}

// fixedTriple is the terminal fallback: one low, one high, one low, spread
// by construction.
func (g *Generator) fixedTriple() [3]int {
	lowMax := g.cfg.Center - g.cfg.ExtremeThreshold
	return [3]int{
		g.cfg.RangeMin + g.cfg.MinSpacing/3,
		g.cfg.RangeMax - g.cfg.MinSpacing/3,
		min(g.cfg.RangeMin+g.cfg.MinSpacing/3+2*g.cfg.MinSpacing, lowMax),
	}
}

func spaced(v int, accepted []int, minSpacing int) bool {
	for _, a := range accepted {
		d := v - a
		if d < 0 {
			d = -d
		}
		if d < minSpacing {
			return false
		}
	}
	return true
}

// #endregion generation
