package importer

import (
	"context"
	"fmt"
	"log"
	"time"
)

// BulkUpserter is the narrow slice of the CRM API the uploader consumes
type BulkUpserter interface {
	BulkUpsert(ctx context.Context, entity EntityType, records []Record) (*BulkResponse, error)
}

// Uploader pushes canonical records to the remote bulk endpoint in fixed-size
// batches, strictly sequentially. Sequential processing bounds peak load on
// the server and keeps per-batch retry reasoning simple.
type Uploader struct {
	client BulkUpserter
	cfg    Config
}

// NewUploader creates an uploader over the given client
func NewUploader(client BulkUpserter, cfg Config) *Uploader {
	return &Uploader{client: client, cfg: cfg.withDefaults()}
}

// Upload partitions records into consecutive batches and submits them in
// index order. Per batch: the cancellation signal is checked before starting,
// the network call is attempted up to MaxAttempts times with linear backoff,
// and the final batch gets an extended timeout. Completed batches merge their
// counts into the running result; per-record errors are rebased to global
// indices; onProgress fires once per completed batch with cumulative totals.
//
// Exhausting a batch's retries fails the whole upload: the caller gets an
// error and no result, prior batches' counts included. Cancellation is a
// distinguished outcome satisfying errors.Is(err, context.Canceled).
func (u *Uploader) Upload(ctx context.Context, entity EntityType, records []Record, onProgress ProgressFunc) (*ImportResult, error) {
	total := len(records)
	result := &ImportResult{}
	if total == 0 {
		return result, nil
	}

	numBatches := (total + u.cfg.BatchSize - 1) / u.cfg.BatchSize

	for i := 0; i < numBatches; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("upload cancelled before batch %d/%d: %w", i+1, numBatches, err)
		}

		start := i * u.cfg.BatchSize
		end := start + u.cfg.BatchSize
		if end > total {
			end = total
		}
		batch := records[start:end]

		result.BatchesAttempted++

		timeout := u.cfg.BatchTimeout
		if i == numBatches-1 {
			timeout = u.cfg.FinalBatchTimeout
		}

		var response *BulkResponse
		err := retryWithBackoff(ctx, func() error {
			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			r, err := u.client.BulkUpsert(reqCtx, entity, batch)
			if err != nil {
				return err
			}
			response = r
			return nil
		}, u.cfg.MaxAttempts, u.cfg.RetryBaseDelay, func(attempt int, err error) {
			log.Printf("Batch %d/%d attempt %d failed: %v (retrying)", i+1, numBatches, attempt, err)
		})

		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("upload cancelled during batch %d/%d: %w", i+1, numBatches, ctx.Err())
			}
			return nil, fmt.Errorf("batch %d/%d failed: %w", i+1, numBatches, err)
		}

		result.Total += response.Total
		result.Created += response.Created
		result.Updated += response.Updated
		result.Duplicates += response.Duplicates
		for _, recordErr := range response.Errors {
			result.Errors = append(result.Errors, RecordError{
				Index: start + recordErr.Index,
				Error: recordErr.Error,
			})
		}
		result.BatchesCompleted++

		if onProgress != nil {
			onProgress(end, total)
		}

		// Deliberate pacing between batches to avoid exhausting the server's
		// connection pool; skipped after the last batch
		if i < numBatches-1 && u.cfg.InterBatchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("upload cancelled after batch %d/%d: %w", i+1, numBatches, ctx.Err())
			case <-time.After(u.cfg.InterBatchDelay):
			}
		}
	}

	result.PartialSuccess = result.BatchesCompleted < result.BatchesAttempted
	return result, nil
}
