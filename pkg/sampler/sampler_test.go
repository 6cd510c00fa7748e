package sampler

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"chsampler/pkg/companieshouse"
	"chsampler/pkg/config"
	"chsampler/pkg/store"
)

// fakeFetcher records which companies were fetched and returns canned
// officer lists
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	onFetch func(companyID string)
}

func (f *fakeFetcher) FetchOfficers(ctx context.Context, companyID string) (directors, secretaries []companieshouse.Officer) {
	f.mu.Lock()
	f.calls = append(f.calls, companyID)
	f.mu.Unlock()

	if f.onFetch != nil {
		f.onFetch(companyID)
	}

	return []companieshouse.Officer{
			{"name": "SMITH, John", "officer_role": "director"},
		}, []companieshouse.Officer{
			{"name": "JONES, Mary", "officer_role": "secretary"},
		}
}

func (f *fakeFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func writeSnapshotCSV(t *testing.T, dir string, ids ...string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("CompanyName,CompanyNumber,CompanyStatus\n")
	for _, id := range ids {
		b.WriteString("TEST LTD," + id + ",Active\n")
	}

	path := filepath.Join(dir, "snapshot.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}
	return path
}

func testSamplerConfig(t *testing.T, sampleSize int, ids ...string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Snapshot.Path = writeSnapshotCSV(t, dir, ids...)
	cfg.Output.Path = filepath.Join(dir, "results.json")
	cfg.Sample.Size = sampleSize
	cfg.Sample.CheckpointInterval = 100
	return cfg
}

func TestRunFetchesEverySampledCompany(t *testing.T) {
	cfg := testSamplerConfig(t, 3, "00000001", "00000002", "00000003", "00000004")
	fetcher := &fakeFetcher{}

	s := New(cfg, fetcher)
	s.SetRand(rand.New(rand.NewSource(1)))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got := len(fetcher.fetched()); got != 3 {
		t.Errorf("expected 3 fetches, got %d", got)
	}

	doc, err := store.NewManager(cfg.Output.Path).Load()
	if err != nil {
		t.Fatalf("failed to load results: %v", err)
	}
	if len(doc.SampledCompanies) != 3 {
		t.Errorf("expected 3 companies in store, got %d", len(doc.SampledCompanies))
	}
	if len(doc.Metadata.SampleIDs) != 3 {
		t.Errorf("expected 3 sample ids persisted, got %d", len(doc.Metadata.SampleIDs))
	}
	if doc.Metadata.SampleSize != 3 {
		t.Errorf("expected sample size 3, got %d", doc.Metadata.SampleSize)
	}
	if doc.Metadata.StartedAt.IsZero() {
		t.Error("expected started_at to be stamped")
	}
	if doc.Metadata.SnapshotPath != cfg.Snapshot.Path {
		t.Errorf("expected snapshot path recorded, got %q", doc.Metadata.SnapshotPath)
	}

	for _, id := range doc.Metadata.SampleIDs {
		result, ok := doc.SampledCompanies[id]
		if !ok {
			t.Errorf("sampled company %s missing from results", id)
			continue
		}
		if len(result.Directors) != 1 || len(result.Secretaries) != 1 {
			t.Errorf("company %s has wrong partitions: %d directors, %d secretaries",
				id, len(result.Directors), len(result.Secretaries))
		}
		if result.CompanyData["CompanyNumber"] != id {
			t.Errorf("company %s carries wrong registry record", id)
		}
	}
}

func TestRunResumesWithoutRefetching(t *testing.T) {
	cfg := testSamplerConfig(t, 3, "00000001", "00000002", "00000003")

	// Simulate an interrupted earlier run: sample drawn, one company done
	manager := store.NewManager(cfg.Output.Path)
	doc := store.NewDocument()
	doc.Metadata = store.Metadata{
		SnapshotPath: cfg.Snapshot.Path,
		SampleSize:   3,
		StartedAt:    time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC),
		SampleIDs:    []string{"00000002", "00000001", "00000003"},
	}
	doc.Put("00000002", store.CompanyResult{RetrievedAt: doc.Metadata.StartedAt})
	if err := manager.Save(doc); err != nil {
		t.Fatal(err)
	}

	fetcher := &fakeFetcher{}
	s := New(cfg, fetcher)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := []string{"00000001", "00000003"}
	if got := fetcher.fetched(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected fetches %v, got %v", want, got)
	}

	final, err := manager.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !final.Metadata.StartedAt.Equal(doc.Metadata.StartedAt) {
		t.Error("resumption must not re-stamp started_at")
	}
	if !reflect.DeepEqual(final.Metadata.SampleIDs, doc.Metadata.SampleIDs) {
		t.Error("resumption must not redraw the sample")
	}
	if len(final.SampledCompanies) != 3 {
		t.Errorf("expected 3 companies after resume, got %d", len(final.SampledCompanies))
	}
}

func TestRunRecordsSnapshotPathUsedOnResume(t *testing.T) {
	cfg := testSamplerConfig(t, 2, "00000001", "00000002")

	// The earlier run drew its sample from a snapshot that has since been
	// replaced by the file the resumed run points at
	manager := store.NewManager(cfg.Output.Path)
	doc := store.NewDocument()
	doc.Metadata = store.Metadata{
		SnapshotPath: "/data/old-export.csv",
		SampleSize:   2,
		StartedAt:    time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC),
		SampleIDs:    []string{"00000001", "00000002"},
	}
	if err := manager.Save(doc); err != nil {
		t.Fatal(err)
	}

	if err := New(cfg, &fakeFetcher{}).Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	final, err := manager.Load()
	if err != nil {
		t.Fatal(err)
	}
	if final.Metadata.SnapshotPath != cfg.Snapshot.Path {
		t.Errorf("expected metadata to record the snapshot actually read, got %q", final.Metadata.SnapshotPath)
	}
	if !reflect.DeepEqual(final.Metadata.SampleIDs, doc.Metadata.SampleIDs) {
		t.Error("changing the snapshot path alone must not redraw the sample")
	}
	if !final.Metadata.StartedAt.Equal(doc.Metadata.StartedAt) {
		t.Error("refreshing the snapshot path must not re-stamp started_at")
	}
}

func TestRunIsIdempotentOnceComplete(t *testing.T) {
	cfg := testSamplerConfig(t, 2, "00000001", "00000002")
	fetcher := &fakeFetcher{}

	s := New(cfg, fetcher)
	s.SetRand(rand.New(rand.NewSource(1)))
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	second := &fakeFetcher{}
	if err := New(cfg, second).Run(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if got := len(second.fetched()); got != 0 {
		t.Errorf("completed run should fetch nothing on rerun, fetched %d", got)
	}
}

func TestRunRedrawsWhenSampleSizeChanges(t *testing.T) {
	cfg := testSamplerConfig(t, 2, "00000001", "00000002", "00000003", "00000004")

	s := New(cfg, &fakeFetcher{})
	s.SetRand(rand.New(rand.NewSource(1)))
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	manager := store.NewManager(cfg.Output.Path)
	first, err := manager.Load()
	if err != nil {
		t.Fatal(err)
	}

	// Same size: the persisted sample is reused verbatim
	s = New(cfg, &fakeFetcher{})
	s.SetRand(rand.New(rand.NewSource(99)))
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	unchanged, err := manager.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(unchanged.Metadata.SampleIDs, first.Metadata.SampleIDs) {
		t.Error("rerun with unchanged size must reuse the persisted sample")
	}

	// Changed size: a fresh sample is drawn
	cfg.Sample.Size = 3
	fetcher := &fakeFetcher{}
	s = New(cfg, fetcher)
	s.SetRand(rand.New(rand.NewSource(7)))
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("resized run failed: %v", err)
	}

	resized, err := manager.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(resized.Metadata.SampleIDs) != 3 {
		t.Errorf("expected redrawn sample of 3, got %d", len(resized.Metadata.SampleIDs))
	}
	if resized.Metadata.SampleSize != 3 {
		t.Errorf("expected recorded sample size 3, got %d", resized.Metadata.SampleSize)
	}

	// Results fetched under the earlier sample stay in place
	for id := range first.SampledCompanies {
		if !resized.Has(id) {
			t.Errorf("redraw dropped previously fetched company %s", id)
		}
	}
}

func TestRunSkipsCompaniesMissingFromSnapshot(t *testing.T) {
	cfg := testSamplerConfig(t, 2, "00000001", "00000002")

	manager := store.NewManager(cfg.Output.Path)
	doc := store.NewDocument()
	doc.Metadata = store.Metadata{
		SnapshotPath: cfg.Snapshot.Path,
		SampleSize:   2,
		StartedAt:    time.Now(),
		// 99999999 was sampled from an earlier snapshot state
		SampleIDs: []string{"00000001", "99999999"},
	}
	if err := manager.Save(doc); err != nil {
		t.Fatal(err)
	}

	fetcher := &fakeFetcher{}
	if err := New(cfg, fetcher).Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got := fetcher.fetched(); !reflect.DeepEqual(got, []string{"00000001"}) {
		t.Errorf("expected only the present company to be fetched, got %v", got)
	}

	final, err := manager.Load()
	if err != nil {
		t.Fatal(err)
	}
	if final.Has("99999999") {
		t.Error("missing company must not gain a result entry")
	}
}

func TestRunCheckpointsAtConfiguredCadence(t *testing.T) {
	cfg := testSamplerConfig(t, 3, "00000001", "00000002", "00000003")
	cfg.Sample.CheckpointInterval = 2

	manager := store.NewManager(cfg.Output.Path)
	doc := store.NewDocument()
	doc.Metadata = store.Metadata{
		SnapshotPath: cfg.Snapshot.Path,
		SampleSize:   3,
		StartedAt:    time.Now(),
		SampleIDs:    []string{"00000001", "00000002", "00000003"},
	}
	if err := manager.Save(doc); err != nil {
		t.Fatal(err)
	}

	// Observe the on-disk checkpoint while the third fetch is in flight:
	// the interval-of-two checkpoint must already hold the first two.
	var companiesAtThirdFetch int
	fetcher := &fakeFetcher{}
	fetcher.onFetch = func(companyID string) {
		if companyID != "00000003" {
			return
		}
		onDisk, err := manager.Load()
		if err != nil {
			t.Errorf("failed to read checkpoint: %v", err)
			return
		}
		companiesAtThirdFetch = len(onDisk.SampledCompanies)
	}

	if err := New(cfg, fetcher).Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if companiesAtThirdFetch != 2 {
		t.Errorf("expected checkpoint with 2 companies before the third fetch, got %d", companiesAtThirdFetch)
	}

	final, err := manager.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(final.SampledCompanies) != 3 {
		t.Errorf("final flush should persist all 3 companies, got %d", len(final.SampledCompanies))
	}
}

func TestRunCancelledContextStillFlushes(t *testing.T) {
	cfg := testSamplerConfig(t, 2, "00000001", "00000002")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{}
	s := New(cfg, fetcher)
	s.SetRand(rand.New(rand.NewSource(1)))

	if err := s.Run(ctx); err != nil {
		t.Fatalf("cancelled run should not error: %v", err)
	}

	if got := len(fetcher.fetched()); got != 0 {
		t.Errorf("cancelled run should fetch nothing, fetched %d", got)
	}

	// The drawn sample survives the interruption
	doc, err := store.NewManager(cfg.Output.Path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Metadata.SampleIDs) != 2 {
		t.Errorf("expected sample persisted on interruption, got %d ids", len(doc.Metadata.SampleIDs))
	}
}

func TestRunFailsOnBrokenSnapshot(t *testing.T) {
	cfg := testSamplerConfig(t, 2, "00000001")
	cfg.Snapshot.Path = filepath.Join(t.TempDir(), "missing.csv")

	err := New(cfg, &fakeFetcher{}).Run(context.Background())
	if err == nil {
		t.Fatal("expected error for missing snapshot")
	}

	if _, statErr := os.Stat(cfg.Output.Path); !os.IsNotExist(statErr) {
		t.Error("no result store should be written when the snapshot fails to load")
	}
}
