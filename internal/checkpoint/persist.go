package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/warden/internal/ir"
)

// MaxStateBytes is the hard ceiling on the state file. A larger file is
// treated as absent on load.
const MaxStateBytes = 1 << 20

type stateFile struct {
	Active  *ir.Checkpoint  `json:"active"`
	History []ir.Checkpoint `json:"history"`
}

// saveState serializes the full tracker state and atomically replaces the
// state file. A crash mid-write leaves either the old file or the new
// one, never a torn mix.
func saveState(path string, active *ir.Checkpoint, history []ir.Checkpoint) error {
	if history == nil {
		history = []ir.Checkpoint{}
	}
	data, err := json.MarshalIndent(stateFile{Active: active, History: history}, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint state: encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint state: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint state: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint state: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint state: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint state: replace: %w", err)
	}
	return nil
}

// loadState reads tracker state back. Any defect in the file, missing,
// oversized, undecodable, or structurally wrong, yields ok=false: the
// tracker starts fresh and mutations are denied until a new checkpoint
// is created.
func loadState(path string) (*ir.Checkpoint, []ir.Checkpoint, bool) {
	info, err := os.Stat(path)
	if err != nil || info.Size() > MaxStateBytes {
		return nil, nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, false
	}

	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil, false
	}
	if state.Active != nil && !validStored(*state.Active, true) {
		return nil, nil, false
	}
	for _, ck := range state.History {
		if !validStored(ck, false) {
			return nil, nil, false
		}
	}
	return state.Active, state.History, true
}

// validStored checks the structural invariants a stored checkpoint must
// satisfy: a non-empty id, a known status, and Active only in the active
// slot.
func validStored(ck ir.Checkpoint, activeSlot bool) bool {
	if ck.ID == "" || ck.CreatedAt.IsZero() {
		return false
	}
	switch ck.Status {
	case ir.CheckpointActive:
		return activeSlot
	case ir.CheckpointConsumed, ir.CheckpointExpired,
		ir.CheckpointInvalidated, ir.CheckpointSuperseded:
		return !activeSlot
	default:
		return false
	}
}
