package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/pkg/dbctx"
	labelerrors "github.com/ttbverify/labelverify/internal/pkg/errors"
	"github.com/ttbverify/labelverify/internal/pkg/httpx"
)

const (
	baseRetryDelay = 500 * time.Millisecond
	maxRetryDelay  = 30 * time.Second
)

// processJob runs the full per-job sequence: claim, fetch+decrypt,
// extract, validate, complete. A value that is not a job id is acked and
// dropped; a claim error returns the message to the queue via Fail; a job
// that cannot be claimed is acked and skipped; a fatal error marks the job
// Failed and acks it. If the final write still fails after its retry, the
// job and the queue message stay where the last attempt left them.
func (x *Executor) processJob(ctx context.Context, jobIDStr string) {
	jobID, err := uuid.Parse(jobIDStr)
	if err != nil {
		x.log.Error("dequeued value is not a job id, dropping", "value", jobIDStr, "error", err)
		_ = x.queue.Ack(ctx, jobIDStr)
		return
	}
	dbc := dbctx.Context{Ctx: ctx}

	claimed, err := x.jobs.ClaimProcessing(dbc, jobID)
	if err != nil {
		x.log.Warn("claim failed, returning to queue for redelivery", "job_id", jobID, "error", err)
		_ = x.queue.Fail(ctx, jobIDStr)
		return
	}
	if !claimed {
		// Already claimed by another worker, or already terminal. Either
		// way this worker has nothing to do with it.
		_ = x.queue.Ack(ctx, jobIDStr)
		return
	}

	job, err := x.jobs.GetByID(dbc, jobID)
	if err != nil {
		x.failJob(ctx, dbc, jobID, jobIDStr, fmt.Sprintf("load claimed job: %v", err))
		return
	}

	extracted, err := x.fetchDecryptExtract(ctx, dbc, job)
	if err != nil {
		x.failJob(ctx, dbc, jobID, jobIDStr, err.Error())
		return
	}

	if err := x.jobs.SetExtracted(dbc, jobID, extracted); err != nil {
		x.log.Warn("persisting extracted fields failed, continuing with validation", "job_id", jobID, "error", err)
	}

	result, err := x.validate.Validate(ctx, extracted, job.Expected.Data())
	if err != nil {
		// Validation failures here are context cancellation or a propagated
		// cache error, not a compliance outcome, so step 5 is treated as
		// fatal per its deterministic contract rather than retried.
		x.failJob(ctx, dbc, jobID, jobIDStr, fmt.Sprintf("validate: %v", err))
		return
	}

	x.completeAckRecord(ctx, dbc, jobID, jobIDStr, result)
}

// fetchDecryptExtract drives steps 3 and 4: fetch ciphertext, decrypt,
// extract fields. Fetch and extract failures are retried against a
// shared attempt budget (the job's one retry_count column); a decrypt
// failure or an extraction-failed signal is always fatal and short
// circuits the loop regardless of attempts remaining.
func (x *Executor) fetchDecryptExtract(ctx context.Context, dbc dbctx.Context, job *domain.Job) (domain.ExtractedFields, error) {
	for attempt := 0; ; attempt++ {
		ciphertext, err := x.blob.Get(ctx, job.BlobKey)
		if err != nil {
			if errors.Is(err, labelerrors.ErrBlobMissing) {
				return domain.ExtractedFields{}, fmt.Errorf("fetch blob: %w", err)
			}
			if !x.retryAllowed(dbc, job.ID, attempt) {
				return domain.ExtractedFields{}, fmt.Errorf("fetch blob: %w", err)
			}
			x.backoffSleep(ctx, attempt)
			continue
		}

		plaintext, err := x.box.Decrypt(ciphertext)
		if err != nil {
			// Decryption failure is fatal per its contract: a corrupt or
			// foreign blob will never succeed on a later attempt.
			return domain.ExtractedFields{}, fmt.Errorf("decrypt: %w", err)
		}

		fields, err := x.extractor.Extract(ctx, plaintext, "")
		if err != nil {
			if errors.Is(err, labelerrors.ErrExtractionFailed) {
				return domain.ExtractedFields{}, fmt.Errorf("extraction failed: %w", err)
			}
			if !x.retryAllowed(dbc, job.ID, attempt) {
				return domain.ExtractedFields{}, fmt.Errorf("extract: %w", err)
			}
			x.backoffSleep(ctx, attempt)
			continue
		}

		return fields, nil
	}
}

// retryAllowed reports whether another attempt fits within maxRetries,
// incrementing the job's persisted retry count as a side effect when it
// does. Attempts are zero-indexed, so attempt 0 is the first try.
func (x *Executor) retryAllowed(dbc dbctx.Context, jobID uuid.UUID, attempt int) bool {
	if attempt >= x.maxRetries-1 {
		return false
	}
	if _, err := x.jobs.IncrementRetryCount(dbc, jobID); err != nil {
		x.log.Warn("increment retry count failed", "job_id", jobID, "error", err)
	}
	return true
}

// backoffSleep waits out an exponential, jittered delay before the next
// attempt, honoring context cancellation instead of sleeping through it.
func (x *Executor) backoffSleep(ctx context.Context, attempt int) {
	delay := baseRetryDelay << attempt
	if delay > maxRetryDelay || delay <= 0 {
		delay = maxRetryDelay
	}
	sleepFor := httpx.JitterSleep(delay)

	timer := time.NewTimer(sleepFor)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// completeAckRecord runs steps 6 and 7 as one retried unit: write the
// result and Completed state, ack the queue message, append the match
// history row. A persistent failure after the retry is logged and left
// alone — the job stays in whatever state the last attempt reached, and
// the loop moves on to its next claim.
func (x *Executor) completeAckRecord(ctx context.Context, dbc dbctx.Context, jobID uuid.UUID, jobIDStr string, result domain.VerificationResult) {
	const attempts = 2
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := x.jobs.CompleteWithResult(dbc, jobID, result); err != nil {
			lastErr = fmt.Errorf("complete with result: %w", err)
			continue
		}
		if err := x.queue.Ack(ctx, jobIDStr); err != nil {
			lastErr = fmt.Errorf("ack: %w", err)
			continue
		}
		if err := x.matchHistory.Record(dbc, jobID, result); err != nil {
			lastErr = fmt.Errorf("record match history: %w", err)
			continue
		}
		return
	}
	x.log.Error("persistent failure writing result/ack/history, leaving job as-is", "job_id", jobID, "error", lastErr)
}

// failJob marks a job terminally Failed and acks its queue message so it
// is never redelivered. If the Failed write itself fails, the message is
// returned to the queue instead, so the job is not silently dropped.
func (x *Executor) failJob(ctx context.Context, dbc dbctx.Context, jobID uuid.UUID, jobIDStr, msg string) {
	if err := x.jobs.FailWithError(dbc, jobID, msg); err != nil {
		x.log.Error("mark job failed failed, returning to queue for redelivery", "job_id", jobID, "error", err)
		_ = x.queue.Fail(ctx, jobIDStr)
		return
	}
	if err := x.queue.Ack(ctx, jobIDStr); err != nil {
		x.log.Error("ack after fail failed", "job_id", jobID, "error", err)
	}
}

func (x *Executor) failAfterPanic(ctx context.Context, jobIDStr string, recovered interface{}) {
	if id, err := uuid.Parse(jobIDStr); err == nil {
		dbc := dbctx.Context{Ctx: ctx}
		x.failJob(ctx, dbc, id, jobIDStr, fmt.Sprintf("panic: %v", recovered))
		return
	}
	_ = x.queue.Fail(ctx, jobIDStr)
}
