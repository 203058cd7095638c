package cart

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The stored layout carries a schema version so future field additions can
// migrate old data instead of silently failing hydration. Version 0 (the
// pre-versioning layout) was a bare JSON array of lines and is still accepted
// on read.
const snapshotSchemaVersion = 1

type snapshot struct {
	SchemaVersion int    `json:"schemaVersion"`
	Lines         []Line `json:"lines"`
}

func encodeSnapshot(lines []Line) (string, error) {
	snap := snapshot{SchemaVersion: snapshotSchemaVersion, Lines: lines}
	if snap.Lines == nil {
		snap.Lines = []Line{}
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal cart snapshot: %w", err)
	}
	return string(b), nil
}

func decodeSnapshot(raw string) ([]Line, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	var lines []Line
	if strings.HasPrefix(trimmed, "[") {
		// legacy layout: bare array, no version tag
		if err := json.Unmarshal([]byte(trimmed), &lines); err != nil {
			return nil, fmt.Errorf("unmarshal legacy cart snapshot: %w", err)
		}
	} else {
		var snap snapshot
		if err := json.Unmarshal([]byte(trimmed), &snap); err != nil {
			return nil, fmt.Errorf("unmarshal cart snapshot: %w", err)
		}
		if snap.SchemaVersion > snapshotSchemaVersion {
			return nil, fmt.Errorf("unsupported cart snapshot version %d", snap.SchemaVersion)
		}
		lines = snap.Lines
	}

	// a line with quantity < 1 must not exist; drop anything a buggy or stale
	// writer left behind
	valid := lines[:0]
	for _, ln := range lines {
		if ln.Quantity < 1 || ln.LineID == "" {
			continue
		}
		valid = append(valid, ln)
	}
	return valid, nil
}
