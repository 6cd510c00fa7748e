// Package sampler implements the sampling and checkpoint loop: load state,
// ingest the snapshot, derive or reuse the sample, fetch officers for each
// unprocessed company, and flush the result store at a fixed cadence.
package sampler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"chsampler/pkg/companieshouse"
	"chsampler/pkg/config"
	"chsampler/pkg/logger"
	"chsampler/pkg/sampling"
	"chsampler/pkg/snapshot"
	"chsampler/pkg/store"
)

// OfficerFetcher retrieves the partitioned officer lists for one company
type OfficerFetcher interface {
	FetchOfficers(ctx context.Context, companyID string) (directors, secretaries []companieshouse.Officer)
}

// Sampler runs the resumable officer-sampling loop
type Sampler struct {
	cfg     *config.Config
	fetcher OfficerFetcher
	store   *store.Manager
	logger  logger.Logger

	rng *rand.Rand
	now func() time.Time
}

// New creates a sampler for the given configuration and fetcher
func New(cfg *config.Config, fetcher OfficerFetcher) *Sampler {
	return &Sampler{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store.NewManager(cfg.Output.Path),
		logger:  logger.GetLogger(),
		rng:     sampling.NewRand(),
		now:     time.Now,
	}
}

// SetRand replaces the random source used for sample draws
func (s *Sampler) SetRand(rng *rand.Rand) {
	s.rng = rng
}

// SetClock replaces the time source used for fetch timestamps
func (s *Sampler) SetClock(now func() time.Time) {
	s.now = now
}

// Run executes the loop to completion. Per-company fetch failures never
// abort the run; snapshot and checkpoint failures do. Cancelling the
// context stops the loop between companies after a final flush.
func (s *Sampler) Run(ctx context.Context) error {
	doc, err := s.store.Load()
	if err != nil {
		return err
	}

	if doc.Metadata.StartedAt.IsZero() {
		doc.Metadata.SnapshotPath = s.cfg.Snapshot.Path
		doc.Metadata.SampleSize = s.cfg.Sample.Size
		doc.Metadata.StartedAt = s.now()
	} else if doc.Metadata.SnapshotPath != s.cfg.Snapshot.Path {
		s.logger.WarnWithFields("resuming with a different snapshot file", map[string]interface{}{
			"previous": doc.Metadata.SnapshotPath,
			"current":  s.cfg.Snapshot.Path,
		})
		doc.Metadata.SnapshotPath = s.cfg.Snapshot.Path
	}

	snap, err := snapshot.Load(s.cfg.Snapshot.Path, s.cfg.Snapshot)
	if err != nil {
		return err
	}

	s.logger.InfoWithFields("snapshot loaded", map[string]interface{}{
		"path":   s.cfg.Snapshot.Path,
		"active": snap.Len(),
	})

	s.deriveSample(doc, snap)

	if err := s.iterate(ctx, doc, snap); err != nil {
		return err
	}

	return s.store.Save(doc)
}

// deriveSample draws a fresh sample when the configured target size differs
// from the size the persisted sample was generated for, or when no sample
// exists yet. Otherwise the persisted sample is reused unchanged, so the
// commitment made at first generation survives every restart. Results
// fetched under an earlier sample are left in place either way.
func (s *Sampler) deriveSample(doc *store.Document, snap *snapshot.Snapshot) {
	if doc.Metadata.SampleSize == s.cfg.Sample.Size && len(doc.Metadata.SampleIDs) > 0 {
		s.logger.InfoWithFields("reusing persisted sample", map[string]interface{}{
			"size": len(doc.Metadata.SampleIDs),
		})
		return
	}

	doc.Metadata.SampleIDs = sampling.Draw(snap.ActiveIDs(), s.cfg.Sample.Size, s.rng)
	doc.Metadata.SampleSize = s.cfg.Sample.Size
	doc.Metadata.SnapshotPath = s.cfg.Snapshot.Path

	s.logger.InfoWithFields("sample drawn", map[string]interface{}{
		"target":   s.cfg.Sample.Size,
		"drawn":    len(doc.Metadata.SampleIDs),
		"universe": snap.Len(),
	})
}

// iterate walks the sample in stored order, fetching every company not yet
// present in the result store and checkpointing at the configured cadence.
func (s *Sampler) iterate(ctx context.Context, doc *store.Document, snap *snapshot.Snapshot) error {
	total := len(doc.Metadata.SampleIDs)
	processed := 0

	for i, id := range doc.Metadata.SampleIDs {
		if err := ctx.Err(); err != nil {
			s.logger.WarnWithFields("run interrupted", map[string]interface{}{
				"processed": processed,
				"position":  fmt.Sprintf("%d/%d", i, total),
			})
			return nil
		}

		if doc.Has(id) {
			continue
		}

		record, ok := snap.Record(id)
		if !ok {
			// The row was sampled from an earlier snapshot state and has
			// since gone inactive or disappeared. Skip it; the entry simply
			// stays unfetched.
			s.logger.WarnWithFields("sampled company missing from snapshot, skipping", map[string]interface{}{
				"company": id,
			})
			continue
		}

		s.logger.InfoWithFields("fetching officers", map[string]interface{}{
			"company":  id,
			"progress": fmt.Sprintf("%d/%d", i+1, total),
		})

		directors, secretaries := s.fetcher.FetchOfficers(ctx, id)

		doc.Put(id, store.CompanyResult{
			CompanyData: record,
			Directors:   directors,
			Secretaries: secretaries,
			RetrievedAt: s.now(),
		})

		processed++
		if processed%s.cfg.Sample.CheckpointInterval == 0 {
			if err := s.store.Save(doc); err != nil {
				return err
			}
			s.logger.InfoWithFields("checkpoint written", map[string]interface{}{
				"processed": processed,
				"companies": len(doc.SampledCompanies),
			})
		}
	}

	return nil
}
