// Package audit keeps the flat conversation journal: one tab-separated
// record per turn with a fixed header, capturing the question and its
// eventual resolution. The journal is a log, not the source of truth for
// routing; routing correctness never depends on it.
package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrUnknownTurn is returned by Update for a turn id that was not
// appended in this process lifetime.
var ErrUnknownTurn = errors.New("audit: unknown turn")

// ErrDuplicateTurn is returned by Append for a reused turn id.
var ErrDuplicateTurn = errors.New("audit: duplicate turn")

var header = []string{"Timestamp", "Question", "Autoreply", "Manual reply", "is_approved"}

// Turn is one conversation record. Outcome uses exactly one
// serialization: "" (unset), "Approved" or "Discarded".
type Turn struct {
	Timestamp   time.Time
	Question    string
	Autoreply   string
	ManualReply string
	Outcome     string
}

// Patch is a partial turn update. Nil fields keep their previous value;
// a pointer to the empty string clears the field explicitly.
type Patch struct {
	Autoreply   *string
	ManualReply *string
	Outcome     *string
}

// Log is the journal. Turns are keyed by a caller-chosen stable
// identifier (the relay message id), so concurrent conversations can
// never clobber each other's records. The key index lives in memory:
// turns appended before a restart can still be read back but no longer
// patched, which is acceptable for a log that is not routing state.
type Log struct {
	mu    sync.Mutex
	path  string
	rows  []Turn
	index map[string]int
}

// Open loads the journal at path, creating it with a header row when
// absent.
func Open(path string) (*Log, error) {
	l := &Log{path: path, index: make(map[string]int)}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading audit log: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating audit dir: %w", err)
		}
		if err := l.rewrite(); err != nil {
			return nil, err
		}
		return l, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing audit log: %w", err)
	}
	for i, rec := range records {
		if i == 0 || len(rec) < 5 {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, rec[0])
		l.rows = append(l.rows, Turn{
			Timestamp:   ts,
			Question:    rec[1],
			Autoreply:   rec[2],
			ManualReply: rec[3],
			Outcome:     rec[4],
		})
	}
	return l, nil
}

// Append adds a new turn at the end of the journal. I/O errors propagate
// to the caller: a silently missing audit entry is a correctness
// regression for a support system.
func (l *Log) Append(turnID string, t Turn) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[turnID]; ok {
		return fmt.Errorf("turn %s: %w", turnID, ErrDuplicateTurn)
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log for append: %w", err)
	}
	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(encodeTurn(t)); err != nil {
		f.Close()
		return fmt.Errorf("appending audit turn %s: %w", turnID, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("appending audit turn %s: %w", turnID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing audit log: %w", err)
	}

	l.rows = append(l.rows, t)
	l.index[turnID] = len(l.rows) - 1
	return nil
}

// Update merges the patch onto the turn with the given id and rewrites
// the journal. The turn's timestamp is refreshed to record when it was
// resolved.
func (l *Log) Update(turnID string, p Patch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[turnID]
	if !ok {
		return fmt.Errorf("turn %s: %w", turnID, ErrUnknownTurn)
	}

	t := l.rows[i]
	if p.Autoreply != nil {
		t.Autoreply = *p.Autoreply
	}
	if p.ManualReply != nil {
		t.ManualReply = *p.ManualReply
	}
	if p.Outcome != nil {
		t.Outcome = *p.Outcome
	}
	t.Timestamp = time.Now()
	l.rows[i] = t

	return l.rewrite()
}

// Turns returns a copy of all loaded turns in append order.
func (l *Log) Turns() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Turn(nil), l.rows...)
}

// Lookup returns the current state of a turn by id.
func (l *Log) Lookup(turnID string) (Turn, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[turnID]
	if !ok {
		return Turn{}, false
	}
	return l.rows[i], true
}

// rewrite replaces the journal atomically via a temp file so a crash
// mid-update never truncates the log. Caller holds l.mu.
func (l *Log) rewrite() error {
	tmp := l.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating audit temp file: %w", err)
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("writing audit header: %w", err)
	}
	for _, t := range l.rows {
		if err := w.Write(encodeTurn(t)); err != nil {
			f.Close()
			return fmt.Errorf("writing audit turn: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writing audit log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing audit temp file: %w", err)
	}

	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replacing audit log: %w", err)
	}
	return nil
}

func encodeTurn(t Turn) []string {
	return []string{
		t.Timestamp.Format(time.RFC3339),
		t.Question,
		t.Autoreply,
		t.ManualReply,
		t.Outcome,
	}
}
