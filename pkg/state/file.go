package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FormatVersion is the state file schema version. Load rejects any other.
const FormatVersion = 1

// CorruptError reports a state file that exists but cannot be trusted:
// unreadable, unparsable, wrong version, or missing required fields.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("state file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

type stateFile struct {
	Version    int              `json:"version"`
	Topic      string           `json:"topic"`
	Partitions int              `json:"partitions"`
	Produced   int64            `json:"records_produced"`
	RunID      string           `json:"run_id"`
	Entries    map[string]Entry `json:"entries"`
}

// Persist writes the store to path atomically: the document goes to a temp
// file in the same directory, is fsynced, then renamed over path. A crash
// mid-write leaves the previous committed file intact. The encoding is
// deterministic, so persisting unchanged state rewrites identical bytes.
func (s *Store) Persist(path string) error {
	doc := stateFile{
		Version:    FormatVersion,
		Topic:      s.topic,
		Partitions: s.partitions,
		Produced:   s.produced.Load(),
		RunID:      s.runID,
		Entries:    s.snapshot(),
	}
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

// Load reads a persisted state file. A missing file comes back as the raw
// os error so callers can distinguish "never produced" from corruption; any
// other failure is a CorruptError. Load never modifies the file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, &CorruptError{Path: path, Err: err}
	}

	var doc stateFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	if doc.Version != FormatVersion {
		return nil, &CorruptError{Path: path, Err: fmt.Errorf("unsupported state file version %d, want %d", doc.Version, FormatVersion)}
	}
	if doc.Topic == "" || doc.Entries == nil {
		return nil, &CorruptError{Path: path, Err: fmt.Errorf("missing topic or entries")}
	}

	s := New(doc.Topic, doc.Partitions)
	s.runID = doc.RunID
	s.produced.Store(doc.Produced)
	for k, e := range doc.Entries {
		sh := s.shardFor(k)
		sh.entries[k] = e
	}
	return s, nil
}
