package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/s-piovesan/lockbox/internal/journal"
	"github.com/s-piovesan/lockbox/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to lockbox.db")
	sessionID := flag.String("session", "", "session to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *sessionID == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/lockbox.db --session id --out path/to/fixture.json")
		os.Exit(2)
	}

	if err := run(*dbPath, *sessionID, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath, sessionID, outPath string) error {
	store, err := journal.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	sess, err := store.GetSession(sessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	samples, err := store.SamplesForSession(sessionID)
	if err != nil {
		return fmt.Errorf("load samples: %w", err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("session %s has no recorded samples", sessionID)
	}
	events, err := store.EventsForSession(sessionID)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	fixture := buildFixture(sess, samples, events)
	if err := replay.SaveFixture(outPath, &fixture); err != nil {
		return err
	}

	fmt.Printf("Wrote %s (%d frames, %d expected events)\n",
		outPath, len(fixture.Frames), len(fixture.ExpectedEvents))
	return nil
}

func buildFixture(sess journal.SessionRow, samples []journal.SampleRow, events []journal.EventRow) replay.Fixture {
	frames := make([]replay.FixtureFrame, len(samples))
	for i, s := range samples {
		frames[i] = replay.FixtureFrame{
			AtMs:   s.CreatedAt.Sub(sess.StartedAt).Milliseconds(),
			Values: s.Values,
		}
	}

	expected := make([]replay.FixtureEvent, len(events))
	for i, ev := range events {
		ch := ev.Channel
		if ev.Kind != "pin_locked" {
			ch = -1
		}
		expected[i] = replay.FixtureEvent{Kind: ev.Kind, Channel: ch}
	}

	return replay.Fixture{
		Description:    fmt.Sprintf("journal export: session %s (%s)", sess.ID, sess.Difficulty),
		Difficulty:     sess.Difficulty,
		Targets:        sess.Targets,
		Frames:         frames,
		ExpectedEvents: expected,
	}
}

// #endregion export
