package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chsampler/pkg/companieshouse"
	"chsampler/pkg/logger"
	"chsampler/pkg/snapshot"
)

// Metadata describes the sampling run the document belongs to
type Metadata struct {
	SnapshotPath string    `json:"snapshot_path"`
	SampleSize   int       `json:"sample_size"`
	StartedAt    time.Time `json:"started_at"`
	SampleIDs    []string  `json:"sample_ids"`
}

// CompanyResult is the accumulated record for one sampled company
type CompanyResult struct {
	CompanyData snapshot.Record          `json:"company_data"`
	Directors   []companieshouse.Officer `json:"directors"`
	Secretaries []companieshouse.Officer `json:"secretaries"`
	RetrievedAt time.Time                `json:"retrieved_at"`
}

// Document is the durable result store: one JSON file holding the run
// metadata and every fetched company. An identifier once present is never
// re-fetched, which is the only progress state the loop tracks.
type Document struct {
	Metadata         Metadata                 `json:"metadata"`
	SampledCompanies map[string]CompanyResult `json:"sampled_companies"`
}

// NewDocument returns an empty, initialized document
func NewDocument() *Document {
	return &Document{
		SampledCompanies: make(map[string]CompanyResult),
	}
}

// Has reports whether the company has already been fetched
func (d *Document) Has(id string) bool {
	_, ok := d.SampledCompanies[id]
	return ok
}

// Put records the fetched result for a company
func (d *Document) Put(id string, result CompanyResult) {
	d.SampledCompanies[id] = result
}

// Manager handles loading and checkpointing the result store
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a store manager for the given output path
func NewManager(path string) *Manager {
	return &Manager{
		path:   path,
		logger: logger.GetLogger(),
	}
}

// Path returns the output file path
func (m *Manager) Path() string {
	return m.path
}

// Load reads the result store from disk. A missing file is not an error:
// the loop always starts from a (possibly empty) document rather than
// branching on file existence.
func (m *Manager) Load() (*Document, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}
	defer file.Close()

	doc := NewDocument()
	if err := json.NewDecoder(file).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode result store: %w", err)
	}
	if doc.SampledCompanies == nil {
		doc.SampledCompanies = make(map[string]CompanyResult)
	}

	m.logger.InfoWithFields("result store loaded", map[string]interface{}{
		"path":      m.path,
		"companies": len(doc.SampledCompanies),
		"sample":    len(doc.Metadata.SampleIDs),
	})

	return doc, nil
}

// Save writes the document to disk atomically: encode to a temp file, sync,
// then rename over the previous checkpoint.
func (m *Manager) Save(doc *Document) error {
	if dir := filepath.Dir(m.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary store file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode result store: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync result store: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close result store: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace result store: %w", err)
	}

	m.logger.DebugWithFields("result store saved", map[string]interface{}{
		"path":      m.path,
		"companies": len(doc.SampledCompanies),
	})

	return nil
}
