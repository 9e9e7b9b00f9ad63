// Package trace is the passive observer tap from spec.md §4.13: a
// configurable, disabled-by-default sink for post-mutation buffer
// snapshots, written to a file for offline invariant-divergence
// analysis. It MUST NOT write to the terminal.
package trace

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/kungfusheep/shellline/internal/utf8scan"
)

// Snapshot is one post-mutation observation.
type Snapshot struct {
	Op               string    `json:"op_name"`
	BufferLen        int       `json:"buffer_len"`
	Cursor           int       `json:"cursor"`
	CharCount        int       `json:"char_count"`
	Timestamp        time.Time `json:"timestamp"`
	BoundaryCrossing bool      `json:"boundary_crossing"`
	FallbackTrigger  bool      `json:"fallback_triggered"`
	Depth            int       `json:"depth"`
}

// Tap writes Snapshots to a file, line-delimited JSON, and flags any
// invariant divergence it observes. The zero value is a disabled tap
// whose Observe calls are no-ops.
type Tap struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// envEnableVar and envPathVar are the environment flags spec.md §6
// names for enabling the observer; disabled unless the enable var is
// set to a non-empty value.
const (
	envEnableVar = "SHELLLINE_TRACE"
	envPathVar   = "SHELLLINE_TRACE_PATH"
)

// FromEnv constructs a Tap per the process environment, returning a
// disabled (no-op) Tap if tracing was not requested.
func FromEnv() (*Tap, error) {
	if os.Getenv(envEnableVar) == "" {
		return &Tap{}, nil
	}
	path := os.Getenv(envPathVar)
	if path == "" {
		path = "shellline-trace.jsonl"
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Tap{file: f, enc: json.NewEncoder(f)}, nil
}

// Enabled reports whether this tap writes anywhere.
func (t *Tap) Enabled() bool { return t != nil && t.file != nil }

// Observe records a snapshot and validates the buffer/char_count
// invariant, returning a non-empty divergence description if it fails.
func (t *Tap) Observe(snap Snapshot, bufferBytes []byte) (divergence string) {
	if recomputed := utf8scan.CountChars(bufferBytes, len(bufferBytes)); recomputed != snap.CharCount {
		divergence = "char_count mismatch: snapshot says " +
			strconv.Itoa(snap.CharCount) + ", re-scan says " + strconv.Itoa(recomputed)
	}
	if snap.Cursor < 0 || snap.Cursor > snap.BufferLen {
		if divergence != "" {
			divergence += "; "
		}
		divergence += "cursor out of bounds"
	}

	if !t.Enabled() {
		return divergence
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.enc.Encode(snap)
	if divergence != "" {
		_ = t.enc.Encode(map[string]string{"divergence": divergence, "op_name": snap.Op})
	}
	return divergence
}

// Close flushes and closes the underlying file, if any.
func (t *Tap) Close() error {
	if !t.Enabled() {
		return nil
	}
	return t.file.Close()
}

