package replay

import (
	"testing"

	"github.com/s-piovesan/lockbox/internal/target"
)

// holdFrames emits three samples of the same values at start, start+300 and
// start+600 ms, enough to satisfy the 500 ms dwell.
func holdFrames(startMs int64, values [3]int) []Frame {
	return []Frame{
		{AtMs: startMs, Values: values},
		{AtMs: startMs + 300, Values: values},
		{AtMs: startMs + 600, Values: values},
	}
}

// TestReplayFullUnlock drives all three channels onto their targets in turn
// and expects three pin locks followed by a single unlock.
func TestReplayFullUnlock(t *testing.T) {
	targets := [3]int{800, 100, 900}

	var frames []Frame
	frames = append(frames, holdFrames(0, [3]int{800, 512, 512})...)
	frames = append(frames, holdFrames(700, [3]int{800, 100, 512})...)
	frames = append(frames, holdFrames(1400, [3]int{800, 100, 900})...)

	events, sum := Replay(target.Hard, targets, frames)

	want := []Event{
		{Kind: "pin_locked", Channel: 1},
		{Kind: "pin_locked", Channel: 2},
		{Kind: "pin_locked", Channel: 3},
		{Kind: "session_unlocked", Channel: -1},
	}
	if _, ok := Compare(want, events); !ok {
		t.Fatalf("event stream mismatch: want %v, got %v", want, events)
	}
	if !sum.Unlocked {
		t.Fatalf("summary not marked unlocked")
	}
	if sum.PinsLocked != 3 {
		t.Fatalf("PinsLocked = %d, want 3", sum.PinsLocked)
	}
	for i, st := range sum.FinalStates {
		if st != "locked" {
			t.Fatalf("channel %d final state = %q, want locked", i+1, st)
		}
	}
}

// TestReplayDeterministic runs the same frames twice and expects identical
// event streams.
func TestReplayDeterministic(t *testing.T) {
	targets := [3]int{800, 100, 900}
	frames := holdFrames(0, [3]int{800, 512, 512})

	first, _ := Replay(target.Hard, targets, frames)
	second, _ := Replay(target.Hard, targets, frames)

	if _, ok := Compare(first, second); !ok {
		t.Fatalf("two runs of identical frames diverged: %v vs %v", first, second)
	}
	if len(first) != 1 || first[0].Kind != "pin_locked" || first[0].Channel != 1 {
		t.Fatalf("unexpected events: %v", first)
	}
}

// TestReplayNoLockWithoutDwell keeps the hold shorter than the dwell window.
func TestReplayNoLockWithoutDwell(t *testing.T) {
	targets := [3]int{800, 100, 900}
	frames := []Frame{
		{AtMs: 0, Values: [3]int{800, 512, 512}},
		{AtMs: 300, Values: [3]int{800, 512, 512}},
	}

	events, sum := Replay(target.Hard, targets, frames)
	if len(events) != 0 {
		t.Fatalf("expected no events, got %v", events)
	}
	if sum.FinalStates[0] != "timing" {
		t.Fatalf("channel 1 state = %q, want timing", sum.FinalStates[0])
	}
}

// TestCompareLengthMismatch makes sure a truncated stream never passes.
func TestCompareLengthMismatch(t *testing.T) {
	expected := []Event{{Kind: "pin_locked", Channel: 1}, {Kind: "session_unlocked", Channel: -1}}
	got := []Event{{Kind: "pin_locked", Channel: 1}}

	matches, ok := Compare(expected, got)
	if ok {
		t.Fatalf("truncated stream reported as matching")
	}
	if !matches[0] || matches[1] {
		t.Fatalf("per-position matches wrong: %v", matches)
	}
}
