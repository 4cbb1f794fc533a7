package classify

// #region config

// Config holds the geometry of the dead zone and transition band shared by
// the classifier and the persistence filter.
type Config struct {
	RangeMin           int     // lowest raw reading the device produces
	RangeMax           int     // highest raw reading the device produces
	Center             int     // rest position (midpoint of range)
	ExtremeThreshold   int     // distance from center beyond which a value is fully extreme
	TransitionFraction float64 // fraction of the threshold where the transition band starts
}

// DefaultConfig returns the geometry of the Arduino's 10-bit analog inputs.
func DefaultConfig() Config {
	return Config{
		RangeMin:           0,
		RangeMax:           1023,
		Center:             512,
		ExtremeThreshold:   200,
		TransitionFraction: 0.75,
	}
}

// #endregion config

// #region classification

// Classification is the zone decision for a single raw reading.
type Classification struct {
	Extreme      bool    // inside the transition band or beyond
	FullyExtreme bool    // at or beyond the threshold
	Intensity    float64 // 0 centered, 0.5..1 across the transition band, 1 fully extreme
}

// Classify maps a raw reading to its zone. Pure: the result depends only on
// the value and the config.
func Classify(value int, cfg Config) Classification {
	d := value - cfg.Center
	if d < 0 {
		d = -d
	}

	if d >= cfg.ExtremeThreshold {
		return Classification{Extreme: true, FullyExtreme: true, Intensity: 1.0}
	}

	transitionStart := float64(cfg.ExtremeThreshold) * cfg.TransitionFraction
	if float64(d) >= transitionStart {
		// Ramp 0.5 → 1.0 across the band so the visual signal fades in
		// instead of flickering at the threshold boundary.
		band := float64(cfg.ExtremeThreshold) - transitionStart
		progress := (float64(d) - transitionStart) / band
		return Classification{Extreme: true, Intensity: 0.5 + 0.5*progress}
	}

	return Classification{}
}

// #endregion classification
