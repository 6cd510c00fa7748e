package snapshot

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"chsampler/pkg/config"
)

// Record is one row of the registry snapshot, keyed by trimmed column name.
// All values are kept as strings; company numbers must never pass through
// numeric parsing (leading zeros are significant).
type Record map[string]string

// Snapshot holds the active subset of a registry bulk export
type Snapshot struct {
	records   map[string]Record
	activeIDs []string
}

// Load reads the snapshot CSV and filters it to active companies.
//
// Column names are trimmed of surrounding whitespace (the Companies House
// bulk export pads some header cells), identifier values are trimmed, and
// only rows whose status equals the configured active status after trimming
// are retained. Any read or parse failure is returned to the caller; a
// broken snapshot aborts the run before any progress is made.
func Load(path string, cfg config.SnapshotConfig) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}

	columns := make([]string, len(header))
	idIdx, statusIdx := -1, -1
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
		switch columns[i] {
		case cfg.IDColumn:
			idIdx = i
		case cfg.StatusColumn:
			statusIdx = i
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("snapshot is missing identifier column %q", cfg.IDColumn)
	}
	if statusIdx < 0 {
		return nil, fmt.Errorf("snapshot is missing status column %q", cfg.StatusColumn)
	}

	snap := &Snapshot{
		records: make(map[string]Record),
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot row: %w", err)
		}

		if strings.TrimSpace(row[statusIdx]) != cfg.ActiveStatus {
			continue
		}

		id := strings.TrimSpace(row[idIdx])
		if id == "" {
			continue
		}

		record := make(Record, len(columns))
		for i, value := range row {
			record[columns[i]] = value
		}

		if _, seen := snap.records[id]; !seen {
			snap.activeIDs = append(snap.activeIDs, id)
		}
		snap.records[id] = record
	}

	return snap, nil
}

// ActiveIDs returns the active company identifiers in snapshot order
func (s *Snapshot) ActiveIDs() []string {
	return s.activeIDs
}

// Record looks up the registry record for an identifier
func (s *Snapshot) Record(id string) (Record, bool) {
	record, ok := s.records[id]
	return record, ok
}

// Len returns the number of active companies in the snapshot
func (s *Snapshot) Len() int {
	return len(s.records)
}
