package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/s-piovesan/lockbox/internal/journal"
	"github.com/s-piovesan/lockbox/internal/replay"
	"github.com/s-piovesan/lockbox/internal/target"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to lockbox.db (DB mode, requires --session)")
	sessionID := flag.String("session", "", "session to replay from the journal")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/lockbox.db --session id")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *sessionID)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	events, sum := replay.Replay(target.Difficulty(f.Difficulty), f.Targets, f.ToFrames())
	return printComparison(f.ToEvents(), events, sum)
}

// #endregion fixture-mode

// #region db-mode

// runDBMode re-runs a journaled session's raw samples through the current
// engine and compares the resulting events against what was recorded live.
// A divergence means the engine's behaviour changed since the session ran.
func runDBMode(dbPath, sessionID string) int {
	if sessionID == "" {
		fmt.Fprintln(os.Stderr, "DB mode requires --session")
		return 2
	}

	store, err := journal.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	sess, err := store.GetSession(sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "get session: %v\n", err)
		return 2
	}
	samples, err := store.SamplesForSession(sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load samples: %v\n", err)
		return 2
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stderr, "session has no recorded samples")
		return 2
	}
	recorded, err := store.EventsForSession(sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load events: %v\n", err)
		return 2
	}

	frames := make([]replay.Frame, len(samples))
	for i, s := range samples {
		frames[i] = replay.Frame{
			AtMs:   s.CreatedAt.Sub(sess.StartedAt).Milliseconds(),
			Values: s.Values,
		}
	}

	expected := make([]replay.Event, len(recorded))
	for i, ev := range recorded {
		ch := ev.Channel
		if ev.Kind != "pin_locked" {
			ch = -1
		}
		expected[i] = replay.Event{Kind: ev.Kind, Channel: ch}
	}

	events, sum := replay.Replay(target.Difficulty(sess.Difficulty), sess.Targets, frames)
	return printComparison(expected, events, sum)
}

// #endregion db-mode

// #region output

func printComparison(expected, got []replay.Event, sum replay.Summary) int {
	matches, all := replay.Compare(expected, got)

	fmt.Printf("%-4s| %-24s| %-24s| %s\n", "#", "Expected", "Replayed", "Match")
	fmt.Printf("%-4s+%-25s+%-25s+%s\n", "----", "-------------------------", "-------------------------", "------")

	for i := range matches {
		exp, rep := "—", "—"
		if i < len(expected) {
			exp = eventLabel(expected[i])
		}
		if i < len(got) {
			rep = eventLabel(got[i])
		}
		mark := "DIFF"
		if matches[i] {
			mark = "OK"
		}
		fmt.Printf("%-4d| %-24s| %-24s| %s\n", i+1, exp, rep, mark)
	}

	fmt.Printf("\nSummary: %d frames, %d pins locked, unlocked=%v\n",
		sum.TotalFrames, sum.PinsLocked, sum.Unlocked)

	if !all {
		fmt.Println("Result: DIVERGED")
		return 1
	}
	fmt.Println("Result: MATCH")
	return 0
}

func eventLabel(ev replay.Event) string {
	if ev.Kind == "pin_locked" {
		return fmt.Sprintf("pin_locked(ch %d)", ev.Channel)
	}
	return ev.Kind
}

// #endregion output
