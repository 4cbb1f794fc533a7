package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/s-piovesan/lockbox/internal/journal"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to lockbox.db")
	last := flag.Int("last", 20, "show N most recent sessions")
	sessionID := flag.String("session", "", "show single session detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/lockbox.db [--last N] [--session id] [--json]")
		os.Exit(2)
	}

	store, err := journal.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *sessionID != "" {
		if err := runDetailMode(store, *sessionID, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := runListMode(store, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	SessionID  string `json:"session_id"`
	Difficulty string `json:"difficulty"`
	Tolerance  int    `json:"tolerance"`
	Targets    [3]int `json:"targets"`
	Outcome    string `json:"outcome"`
	SolveMs    *int64 `json:"solve_ms,omitempty"`
	StartedAt  string `json:"started_at"`
}

func runListMode(store *journal.Store, last int, jsonOut bool) error {
	sessions, err := store.ListSessions(last)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	rows := make([]listRow, len(sessions))
	for i, s := range sessions {
		lr := listRow{
			SessionID:  s.ID,
			Difficulty: s.Difficulty,
			Tolerance:  s.Tolerance,
			Targets:    s.Targets,
			Outcome:    "abandoned",
			StartedAt:  s.StartedAt.UTC().Format(time.RFC3339),
		}
		if !s.UnlockedAt.IsZero() {
			lr.Outcome = "unlocked"
			ms := s.UnlockedAt.Sub(s.StartedAt).Milliseconds()
			lr.SolveMs = &ms
		}
		rows[i] = lr
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-8s  %5s  %-16s  %-9s  %9s  %s\n",
		"Session", "Diff", "Tol", "Targets", "Outcome", "Solve", "Started")
	fmt.Printf("%-10s  %-8s  %5s  %-16s  %-9s  %9s  %s\n",
		"----------", "--------", "-----", "----------------", "---------", "---------", "--------------------")
	for _, r := range rows {
		solve := "—"
		if r.SolveMs != nil {
			solve = fmt.Sprintf("%.1fs", float64(*r.SolveMs)/1000)
		}
		fmt.Printf("%-10s  %-8s  %5d  %-16s  %-9s  %9s  %s\n",
			shortID(r.SessionID), r.Difficulty, r.Tolerance,
			fmt.Sprintf("%d/%d/%d", r.Targets[0], r.Targets[1], r.Targets[2]),
			r.Outcome, solve, r.StartedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	Session listRow       `json:"session"`
	Events  []detailEvent `json:"events"`
	Samples int           `json:"samples"`
}

type detailEvent struct {
	Kind     string `json:"kind"`
	Channel  int    `json:"channel,omitempty"`
	OffsetMs int64  `json:"offset_ms"`
}

func runDetailMode(store *journal.Store, sessionID string, jsonOut bool) error {
	s, err := store.GetSession(sessionID)
	if err != nil {
		return err
	}
	events, err := store.EventsForSession(sessionID)
	if err != nil {
		return err
	}
	samples, err := store.SamplesForSession(sessionID)
	if err != nil {
		return err
	}

	out := detailOutput{
		Session: listRow{
			SessionID:  s.ID,
			Difficulty: s.Difficulty,
			Tolerance:  s.Tolerance,
			Targets:    s.Targets,
			Outcome:    "abandoned",
			StartedAt:  s.StartedAt.UTC().Format(time.RFC3339),
		},
		Samples: len(samples),
	}
	if !s.UnlockedAt.IsZero() {
		out.Session.Outcome = "unlocked"
		ms := s.UnlockedAt.Sub(s.StartedAt).Milliseconds()
		out.Session.SolveMs = &ms
	}
	for _, ev := range events {
		out.Events = append(out.Events, detailEvent{
			Kind:     ev.Kind,
			Channel:  ev.Channel,
			OffsetMs: ev.CreatedAt.Sub(s.StartedAt).Milliseconds(),
		})
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Session:    %s\n", s.ID)
	fmt.Printf("Difficulty: %s (tolerance %d)\n", s.Difficulty, s.Tolerance)
	fmt.Printf("Targets:    %d / %d / %d\n", s.Targets[0], s.Targets[1], s.Targets[2])
	fmt.Printf("Started:    %s\n", out.Session.StartedAt)
	fmt.Printf("Outcome:    %s\n", out.Session.Outcome)
	if out.Session.SolveMs != nil {
		fmt.Printf("Solve time: %.1fs\n", float64(*out.Session.SolveMs)/1000)
	}
	fmt.Printf("Samples:    %d\n", out.Samples)

	if len(out.Events) > 0 {
		fmt.Printf("\nEvents:\n")
		for _, ev := range out.Events {
			if ev.Kind == "pin_locked" {
				fmt.Printf("  +%6.1fs  %s (channel %d)\n", float64(ev.OffsetMs)/1000, ev.Kind, ev.Channel)
			} else {
				fmt.Printf("  +%6.1fs  %s\n", float64(ev.OffsetMs)/1000, ev.Kind)
			}
		}
	}
	return nil
}

// #endregion detail-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
