package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
	"github.com/custodia-labs/fedreg/internal/logger"
)

// Upserter normalises raw snapshots and writes them to the document store,
// one transaction per snapshot.
type Upserter struct {
	snapshots  driven.SnapshotStore
	normaliser driven.DocumentNormaliser
	store      driven.DocumentStore
	metrics    driven.MetricsRecorder
	now        func() time.Time
}

// NewUpserter creates an upserter. metrics may be nil.
func NewUpserter(
	snapshots driven.SnapshotStore,
	normaliser driven.DocumentNormaliser,
	store driven.DocumentStore,
	metrics driven.MetricsRecorder,
) *Upserter {
	return &Upserter{
		snapshots:  snapshots,
		normaliser: normaliser,
		store:      store,
		metrics:    metricsOrNop(metrics),
		now:        time.Now,
	}
}

// Ingest processes the snapshots for days, oldest first, so later sightings
// win. No days means every stored snapshot.
//
// A failed batch is rolled back by the store and recorded; the remaining
// batches still run. The returned error joins every store failure and is
// nil when all batches committed.
func (u *Upserter) Ingest(ctx context.Context, days []time.Time) (*domain.IngestReport, error) {
	if len(days) == 0 {
		listed, err := u.snapshots.List(ctx)
		if err != nil {
			return &domain.IngestReport{}, fmt.Errorf("list snapshots: %w", err)
		}
		days = listed
	}

	ordered := make([]time.Time, len(days))
	copy(ordered, days)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	report := &domain.IngestReport{}
	var storeErrs []error

	for _, day := range ordered {
		if err := ctx.Err(); err != nil {
			storeErrs = append(storeErrs, err)
			report.Errors = append(report.Errors, err)
			break
		}

		counts, skipped, err := u.ingestDay(ctx, day)
		report.Skipped += skipped
		if err != nil {
			report.Errors = append(report.Errors, err)
			if !errors.Is(err, domain.ErrNotFound) {
				storeErrs = append(storeErrs, err)
			}
			continue
		}

		report.Snapshots++
		report.Add(counts)
	}

	return report, errors.Join(storeErrs...)
}

// ingestDay normalises one snapshot and upserts it as a single batch.
func (u *Upserter) ingestDay(ctx context.Context, day time.Time) (domain.UpsertCounts, int, error) {
	key := domain.DayKey(day)

	snapshot, err := u.snapshots.Load(ctx, day)
	if err != nil {
		return domain.UpsertCounts{}, 0, fmt.Errorf("load snapshot %s: %w", key, err)
	}

	docs, skipped := u.normalise(key, snapshot)

	counts, err := u.store.UpsertBatch(ctx, docs, u.now().UTC())
	if err != nil {
		logger.Error("Batch %s rolled back: %v", key, err)
		return domain.UpsertCounts{}, skipped, fmt.Errorf("upsert %s: %w", key, err)
	}

	logger.WithFields(map[string]any{
		"day":       key,
		"inserted":  counts.Inserted,
		"updated":   counts.Updated,
		"unchanged": counts.Unchanged,
		"skipped":   skipped,
	}).Debug("snapshot ingested")
	u.metrics.RecordsUpserted(counts.Inserted, counts.Updated, counts.Unchanged, skipped)

	return counts, skipped, nil
}

// normalise maps raw items to documents, dropping malformed ones. Repeated
// IDs within a snapshot collapse to the last occurrence.
func (u *Upserter) normalise(key string, snapshot *domain.RawSnapshot) ([]domain.Document, int) {
	docs := make([]domain.Document, 0, len(snapshot.Items))
	index := make(map[string]int, len(snapshot.Items))
	skipped := 0

	for i, raw := range snapshot.Items {
		doc, err := u.normaliser.Normalise(raw)
		if err != nil {
			skipped++
			logger.Debug("Skipping item %d of %s: %v", i, key, err)
			continue
		}

		if at, seen := index[doc.ID]; seen {
			docs[at] = *doc
			continue
		}
		index[doc.ID] = len(docs)
		docs = append(docs, *doc)
	}

	return docs, skipped
}
