package classify

// #region filter

// Filter remembers the last extreme reading per channel so that a control
// released back through the dead zone keeps its "in target" credit. The
// memorized value only changes while the channel is live-extreme, and only
// a session reset returns it to center.
type Filter struct {
	cfg       Config
	persisted [3]int
}

// NewFilter creates a filter with all persisted positions at center.
func NewFilter(cfg Config) *Filter {
	f := &Filter{cfg: cfg}
	f.Reset()
	return f
}

// Apply picks the value that tolerance and lock checks should see for the
// given channel (1-based) and classifies it. A live-extreme reading is used
// directly and memorized; otherwise the persisted extreme substitutes, unless
// the channel has never been extreme, in which case the live value passes
// through so an untouched channel can never read as in-target.
func (f *Filter) Apply(channel, value int) (int, Classification) {
	cls := Classify(value, f.cfg)
	if cls.Extreme {
		f.persisted[channel-1] = value
		return value, cls
	}
	if p := f.persisted[channel-1]; p != f.cfg.Center {
		return p, Classify(p, f.cfg)
	}
	return value, cls
}

// Persisted returns the memorized extreme for a channel (1-based); center
// means no extreme has been seen since the last reset.
func (f *Filter) Persisted(channel int) int {
	return f.persisted[channel-1]
}

// Reset returns every persisted position to center. Called on session reset.
func (f *Filter) Reset() {
	for i := range f.persisted {
		f.persisted[i] = f.cfg.Center
	}
}

// #endregion filter
