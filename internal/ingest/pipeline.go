// ABOUTME: CSV ingestion pipeline from raw upload bytes to stored telemetry.
// ABOUTME: Validates row by row, then stores accepted rows as a single batch.
package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/harperreed/rocketry/internal/logging"
	"github.com/harperreed/rocketry/internal/metrics"
	"github.com/harperreed/rocketry/internal/models"
	"github.com/harperreed/rocketry/internal/storage"
)

// MaxRejectionsKept bounds Result.Rejections. Rejected still counts every row.
const MaxRejectionsKept = 100

// Result summarizes one ingestion.
type Result struct {
	Accepted   int
	Rejected   int
	Rejections []*RowError
}

// Pipeline ingests CSV files. Ingestions into the same experiment run one
// at a time; different experiments proceed in parallel.
type Pipeline struct {
	mu    sync.Mutex
	locks map[int64]*experimentLock
}

type experimentLock struct {
	mu   sync.Mutex
	refs int
}

// NewPipeline creates a Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{locks: make(map[int64]*experimentLock)}
}

// Ingest decodes data, validates each row and stores the accepted rows for
// experimentID through repo in one batch.
//
// A decode or parse failure returns ErrMalformedInput and stores nothing.
// A storage failure is returned as is; the batch is rolled back.
func (p *Pipeline) Ingest(ctx context.Context, repo storage.Repository, experimentID int64, data []byte) (*Result, error) {
	start := time.Now()
	log := logging.Ctx(ctx).With().Int64("experiment_id", experimentID).Logger()

	text, err := Decode(data)
	if err != nil {
		metrics.RecordIngest("malformed", 0, 0, time.Since(start))
		return nil, err
	}

	rows, err := ParseRows(text)
	if err != nil {
		metrics.RecordIngest("malformed", 0, 0, time.Since(start))
		return nil, err
	}

	res := &Result{}
	if len(rows) == 0 {
		log.Warn().Msg("csv file has no data rows")
		metrics.RecordIngest("ok", 0, 0, time.Since(start))
		return res, nil
	}

	batch := make([]models.TelemetryRecord, 0, len(rows))
	for _, row := range rows {
		rec, rowErr := toRecord(row, experimentID)
		if rowErr != nil {
			res.Rejected++
			if len(res.Rejections) < MaxRejectionsKept {
				res.Rejections = append(res.Rejections, rowErr)
			}
			log.Warn().
				Int("row", rowErr.Row).
				Str("column", string(rowErr.Column)).
				Str("value", rowErr.Value).
				Msg("csv row rejected: " + rowErr.Reason)
			continue
		}
		batch = append(batch, rec)
	}

	if len(batch) == 0 {
		log.Info().Int("rejected", res.Rejected).Msg("no valid rows to store")
		metrics.RecordIngest("ok", 0, res.Rejected, time.Since(start))
		return res, nil
	}

	unlock := p.lock(experimentID)
	defer unlock()

	n, err := repo.InsertTelemetryBatch(ctx, batch)
	if err != nil {
		log.Error().Err(err).Int("rows", len(batch)).Msg("telemetry batch insert failed")
		metrics.RecordIngest("storage_error", 0, res.Rejected, time.Since(start))
		return nil, err
	}

	res.Accepted = n
	log.Info().
		Int("accepted", res.Accepted).
		Int("rejected", res.Rejected).
		Dur("duration", time.Since(start)).
		Msg("csv ingested")
	metrics.RecordIngest("ok", res.Accepted, res.Rejected, time.Since(start))

	return res, nil
}

// lock serializes work on one experiment and returns the release func.
func (p *Pipeline) lock(experimentID int64) func() {
	p.mu.Lock()
	l, ok := p.locks[experimentID]
	if !ok {
		l = &experimentLock{}
		p.locks[experimentID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, experimentID)
		}
		p.mu.Unlock()
	}
}

// IsMalformed reports whether err is a decode or parse failure.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}
