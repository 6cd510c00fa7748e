package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"chsampler/pkg/companieshouse"
	"chsampler/pkg/snapshot"
)

func TestManagerLoad(t *testing.T) {
	t.Run("missing file yields an empty document", func(t *testing.T) {
		m := NewManager(filepath.Join(t.TempDir(), "results.json"))

		doc, err := m.Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(doc.SampledCompanies) != 0 {
			t.Errorf("expected empty document, got %d companies", len(doc.SampledCompanies))
		}
		if !doc.Metadata.StartedAt.IsZero() {
			t.Error("expected zero metadata on fresh document")
		}
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "results.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := NewManager(path).Load(); err == nil {
			t.Error("expected error for corrupt store")
		}
	})
}

func TestManagerSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	m := NewManager(path)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	retrieved := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	doc := NewDocument()
	doc.Metadata = Metadata{
		SnapshotPath: "export.csv",
		SampleSize:   2,
		StartedAt:    started,
		SampleIDs:    []string{"00000001", "00000002"},
	}
	doc.Put("00000001", CompanyResult{
		CompanyData: snapshot.Record{"CompanyName": "ACME LTD", "CompanyNumber": "00000001"},
		Directors: []companieshouse.Officer{
			{"name": "SMITH, John", "officer_role": "director"},
		},
		Secretaries: []companieshouse.Officer{},
		RetrievedAt: retrieved,
	})

	if err := m.Save(doc); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := m.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !reflect.DeepEqual(loaded.Metadata.SampleIDs, doc.Metadata.SampleIDs) {
		t.Errorf("sample ids changed across roundtrip: %v", loaded.Metadata.SampleIDs)
	}
	if loaded.Metadata.SampleSize != 2 {
		t.Errorf("sample size changed: %d", loaded.Metadata.SampleSize)
	}
	if !loaded.Metadata.StartedAt.Equal(started) {
		t.Errorf("started at changed: %v", loaded.Metadata.StartedAt)
	}

	if !loaded.Has("00000001") {
		t.Fatal("expected fetched company after roundtrip")
	}
	result := loaded.SampledCompanies["00000001"]
	if result.CompanyData["CompanyName"] != "ACME LTD" {
		t.Errorf("company data changed: %v", result.CompanyData)
	}
	if len(result.Directors) != 1 || result.Directors[0].Role() != "director" {
		t.Errorf("directors changed: %v", result.Directors)
	}
	if !result.RetrievedAt.Equal(retrieved) {
		t.Errorf("retrieved at changed: %v", result.RetrievedAt)
	}
}

func TestManagerSaveIsAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	m := NewManager(path)

	doc := NewDocument()
	doc.Metadata.SampleIDs = []string{"00000001"}

	if err := m.Save(doc); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind after save")
	}

	// Overwriting an existing checkpoint must succeed
	doc.Put("00000001", CompanyResult{RetrievedAt: time.Now()})
	if err := m.Save(doc); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	loaded, err := m.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !loaded.Has("00000001") {
		t.Error("expected updated checkpoint contents")
	}
}

func TestManagerSaveCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "results.json")
	m := NewManager(path)

	if err := m.Save(NewDocument()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected store file at %s: %v", path, err)
	}
}

func TestDocumentHasAndPut(t *testing.T) {
	doc := NewDocument()

	if doc.Has("00000001") {
		t.Error("empty document should not report a company")
	}

	doc.Put("00000001", CompanyResult{})

	if !doc.Has("00000001") {
		t.Error("document should report a stored company")
	}
	if doc.Has("00000002") {
		t.Error("document should not report an unknown company")
	}
}
