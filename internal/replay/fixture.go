package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/s-piovesan/lockbox/internal/target"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description    string          `json:"description"`
	Difficulty     string          `json:"difficulty"`
	Targets        [3]int          `json:"targets"`
	Frames         []FixtureFrame  `json:"frames"`
	ExpectedEvents []FixtureEvent  `json:"expected_events"`
}

// FixtureFrame mirrors Frame with JSON tags.
type FixtureFrame struct {
	AtMs   int64  `json:"at_ms"`
	Values [3]int `json:"values"`
}

// FixtureEvent mirrors Event with JSON tags. Channel is -1 for events that
// are not bound to a pin.
type FixtureEvent struct {
	Kind    string `json:"kind"`
	Channel int    `json:"channel"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if _, err := target.ParseDifficulty(f.Difficulty); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	if len(f.Frames) == 0 {
		return nil, fmt.Errorf("fixture %s: no frames", path)
	}
	return &f, nil
}

// ToFrames converts fixture frames to domain frames.
func (f *Fixture) ToFrames() []Frame {
	frames := make([]Frame, len(f.Frames))
	for i, ff := range f.Frames {
		frames[i] = Frame{AtMs: ff.AtMs, Values: ff.Values}
	}
	return frames
}

// ToEvents converts the expected event list to domain events.
func (f *Fixture) ToEvents() []Event {
	events := make([]Event, len(f.ExpectedEvents))
	for i, fe := range f.ExpectedEvents {
		events[i] = Event{Kind: fe.Kind, Channel: fe.Channel}
	}
	return events
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader
