package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcattleworks/herdbooks_backend/config"
	"github.com/mmcattleworks/herdbooks_backend/models"
	"github.com/mmcattleworks/herdbooks_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	defaultBatchSize     = 100
	defaultRetryAttempts = 3

	// interChunkDelay keeps catch-up bursts from saturating the ledger
	// store. Pacing only, not a correctness mechanism.
	interChunkDelay = 5 * time.Millisecond
)

type PersistOptions struct {
	BatchSize       int
	RetryAttempts   int
	ValidateBalance bool
}

type PersistResult struct {
	EntriesCreated int
	LinesCreated   int
	EntriesSkipped int
	Elapsed        time.Duration
	BatchErrors    []string
}

// BatchPersister turns built journal entries into ledger-store writes:
// fail-fast balance validation, chunked writes with exponential-backoff
// retry, and a per-(company, type, period) duplicate check that makes
// repeated catch-up calls safe.
type BatchPersister struct {
	Store  LedgerStore
	Logger *logrus.Logger

	// Sleep is swapped out in tests.
	Sleep func(time.Duration)
}

func NewBatchPersister(store LedgerStore, logger *logrus.Logger) *BatchPersister {
	return &BatchPersister{
		Store:  store,
		Logger: logger,
		Sleep:  time.Sleep,
	}
}

// Persist writes entries in chunks. Validation failures abort the whole
// batch before any write; database failures are retried per chunk and
// then reported in BatchErrors without aborting sibling chunks.
func (p *BatchPersister) Persist(ctx context.Context, entries []*models.JournalEntry, opts PersistOptions) (*PersistResult, error) {
	start := time.Now()
	result := &PersistResult{}

	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = defaultRetryAttempts
	}

	// Fail fast: a known-bad batch must not produce partial writes.
	if opts.ValidateBalance {
		for _, entry := range entries {
			if err := ValidateEntryBalance(entry); err != nil {
				return nil, err
			}
		}
	}

	// Duplicate check per (company, entryType, month, year). Cached so a
	// batch carrying many entries for the same period hits the store once.
	seen := make(map[string]bool)
	pending := make([]*models.JournalEntry, 0, len(entries))
	for _, entry := range entries {
		key := fmt.Sprintf("%s|%s|%d|%d", entry.CompanyId, entry.EntryType, entry.PeriodMonth, entry.PeriodYear)
		exists, ok := seen[key]
		if !ok {
			var err error
			exists, err = p.Store.ExistingEntry(ctx, entry.CompanyId, entry.EntryType, entry.PeriodMonth, entry.PeriodYear)
			if err != nil {
				return nil, err
			}
			seen[key] = exists
		}
		if exists {
			result.EntriesSkipped++
			continue
		}
		// Entries inside this same batch also count against the key.
		seen[key] = true
		pending = append(pending, entry)
	}

	for chunkStart := 0; chunkStart < len(pending); chunkStart += opts.BatchSize {
		chunkEnd := chunkStart + opts.BatchSize
		if chunkEnd > len(pending) {
			chunkEnd = len(pending)
		}
		chunk := pending[chunkStart:chunkEnd]

		created, lines, err := p.persistChunkWithRetry(ctx, chunk, opts.RetryAttempts)
		result.EntriesCreated += created
		result.LinesCreated += lines
		if err != nil {
			msg := fmt.Sprintf("batch %d-%d: %v", chunkStart, chunkEnd-1, err)
			result.BatchErrors = append(result.BatchErrors, msg)
			config.LogError(p.Logger, "batchPersist.go", "Persist", "persistChunkWithRetry", chunkStart, err)
		}

		if chunkEnd < len(pending) {
			p.Sleep(interChunkDelay)
		}
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

func (p *BatchPersister) persistChunkWithRetry(ctx context.Context, chunk []*models.JournalEntry, retryAttempts int) (created, lines int, err error) {
	for attempt := 0; attempt <= retryAttempts; attempt++ {
		if attempt > 0 {
			p.Sleep(time.Duration(1<<attempt) * time.Second)
		}
		created, lines, err = p.persistChunk(ctx, chunk)
		if err == nil {
			return created, lines, nil
		}
		if !utils.IsDatabaseError(err) {
			// Validation-class failures are caller bugs; retrying cannot
			// help.
			return created, lines, err
		}
	}
	return created, lines, err
}

func (p *BatchPersister) persistChunk(ctx context.Context, chunk []*models.JournalEntry) (created, lines int, err error) {
	for _, entry := range chunk {
		// Re-inserting an id already assigned by a previous attempt is a
		// no-op for idempotent re-runs of a partially written chunk.
		if entry.ID > 0 {
			continue
		}
		if _, err := p.Store.InsertJournalEntry(ctx, entry); err != nil {
			return created, lines, err
		}
		created++
		lines += len(entry.Lines)
	}
	return created, lines, nil
}
