// Package executor implements C12: the long-running worker pool that
// drives a Job from Pending through to a terminal state. Adapted from
// the reference backend's generic job worker, narrowed from a polymorphic
// job-type dispatch table down to the single fixed pipeline this domain
// needs: dequeue, claim, fetch+decrypt, extract, validate, complete.
package executor

import (
	"context"
	"time"

	"github.com/ttbverify/labelverify/internal/blob"
	"github.com/ttbverify/labelverify/internal/clients/extractor"
	"github.com/ttbverify/labelverify/internal/crypto"
	"github.com/ttbverify/labelverify/internal/data/repos/jobrepo"
	"github.com/ttbverify/labelverify/internal/data/repos/matchhistoryrepo"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
	"github.com/ttbverify/labelverify/internal/platform/envutil"
	"github.com/ttbverify/labelverify/internal/queue"
	"github.com/ttbverify/labelverify/internal/validate"
)

const dequeueTimeout = 5 * time.Second

// Executor is C12. One instance owns a worker pool; Start spawns the pool
// and returns immediately, matching the reference backend's worker.
type Executor struct {
	log          *logger.Logger
	queue        queue.Queue
	blob         blob.Store
	box          *crypto.Box
	extractor    extractor.Extractor
	jobs         jobrepo.Repo
	matchHistory matchhistoryrepo.Repo
	validate     *validate.Engine
	maxRetries   int
}

func New(
	log *logger.Logger,
	q queue.Queue,
	blobStore blob.Store,
	box *crypto.Box,
	extractorClient extractor.Extractor,
	jobs jobrepo.Repo,
	matchHistory matchhistoryrepo.Repo,
	validateEngine *validate.Engine,
) *Executor {
	return &Executor{
		log:          log.With("service", "executor"),
		queue:        q,
		blob:         blobStore,
		box:          box,
		extractor:    extractorClient,
		jobs:         jobs,
		matchHistory: matchHistory,
		validate:     validateEngine,
		maxRetries:   envutil.Int("JOB_MAX_RETRIES", 3),
	}
}

// Start spawns WORKER_CONCURRENCY goroutines, each running its own
// dequeue/claim/process loop against the shared queue and job store.
func (x *Executor) Start(ctx context.Context) {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	x.log.Info("starting executor worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		workerID := i + 1
		go x.runLoop(ctx, workerID)
	}
}

func (x *Executor) runLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			x.log.Info("executor worker stopped", "worker_id", workerID)
			return
		default:
		}

		jobIDStr, found, err := x.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			x.log.Warn("dequeue failed", "worker_id", workerID, "error", err)
			continue
		}
		if !found {
			continue
		}

		x.processWithRecovery(ctx, workerID, jobIDStr)
	}
}

// processWithRecovery runs one job's pipeline with panic recovery, so a
// single malformed job cannot take the whole pool down with it.
func (x *Executor) processWithRecovery(ctx context.Context, workerID int, jobIDStr string) {
	defer func() {
		if r := recover(); r != nil {
			x.log.Error("job processing panicked",
				"worker_id", workerID,
				"job_id", jobIDStr,
				"panic", r,
			)
			x.failAfterPanic(ctx, jobIDStr, r)
		}
	}()
	x.processJob(ctx, jobIDStr)
}
