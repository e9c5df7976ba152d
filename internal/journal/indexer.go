// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package journal

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sigil-dev/journal/pkg/health"
)

// Indexer defaults.
const (
	DefaultQueueSize = 256
	DefaultWorkers   = 2
)

// IndexTarget receives embedding work. *vector.Index satisfies it.
type IndexTarget interface {
	AddEntry(ctx context.Context, id int64, text string) (bool, error)
	RemoveEntry(ctx context.Context, id int64) error
}

type indexJob struct {
	entryID int64
	text    string
	remove  bool
}

// Indexer applies vector index updates in the background. Enqueue never
// blocks: when the queue is full the job is dropped and counted, and the
// entry is picked up by the next rebuild.
//
// Each worker owns one shard of the queue and every job for an entry goes to
// the same shard, so jobs for one entry apply in the order they were queued.
type Indexer struct {
	target IndexTarget
	logger *slog.Logger
	shards []chan indexJob

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu     sync.RWMutex
	closed bool

	enqueued  atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewIndexer starts workers goroutines draining a queue of queueSize jobs
// split evenly across them.
func NewIndexer(target IndexTarget, queueSize, workers int, logger *slog.Logger) *Indexer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	ix := &Indexer{
		target: target,
		logger: logger,
		shards: make([]chan indexJob, workers),
		ctx:    gctx,
		cancel: cancel,
		group:  g,
	}
	per := max(1, (queueSize+workers-1)/workers)
	for i := range ix.shards {
		jobs := make(chan indexJob, per)
		ix.shards[i] = jobs
		g.Go(func() error { return ix.work(jobs) })
	}
	return ix
}

// EnqueueAdd schedules (re-)embedding of an entry. It reports whether the
// job was queued.
func (ix *Indexer) EnqueueAdd(id int64, text string) bool {
	return ix.enqueue(indexJob{entryID: id, text: text})
}

// EnqueueRemove schedules removal of an entry's vector.
func (ix *Indexer) EnqueueRemove(id int64) bool {
	return ix.enqueue(indexJob{entryID: id, remove: true})
}

func (ix *Indexer) enqueue(job indexJob) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		ix.dropped.Add(1)
		return false
	}
	select {
	case ix.shard(job.entryID) <- job:
		ix.enqueued.Add(1)
		return true
	default:
		ix.dropped.Add(1)
		ix.logger.Warn("embedding queue full, dropping job", "entry_id", job.entryID)
		return false
	}
}

// shard picks the queue that owns id.
func (ix *Indexer) shard(id int64) chan indexJob {
	return ix.shards[uint64(id)%uint64(len(ix.shards))]
}

func (ix *Indexer) work(jobs <-chan indexJob) error {
	for job := range jobs {
		if ix.ctx.Err() != nil {
			// Closing timed out; count what is left as dropped.
			ix.dropped.Add(1)
			continue
		}
		var err error
		if job.remove {
			err = ix.target.RemoveEntry(ix.ctx, job.entryID)
		} else {
			_, err = ix.target.AddEntry(ix.ctx, job.entryID, job.text)
		}
		if err != nil {
			ix.failed.Add(1)
			ix.logger.Warn("vector index update failed", "entry_id", job.entryID, "remove", job.remove, "error", err)
			continue
		}
		ix.processed.Add(1)
	}
	return nil
}

// Close stops accepting jobs and waits for queued ones to finish. If ctx
// ends first the remaining jobs are abandoned and ctx's error is returned.
func (ix *Indexer) Close(ctx context.Context) error {
	ix.mu.Lock()
	if ix.closed {
		ix.mu.Unlock()
		return nil
	}
	ix.closed = true
	for _, jobs := range ix.shards {
		close(jobs)
	}
	ix.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- ix.group.Wait() }()

	select {
	case err := <-done:
		ix.cancel()
		return err
	case <-ctx.Done():
		ix.cancel()
		<-done
		return ctx.Err()
	}
}

// Stats returns the queue counters.
func (ix *Indexer) Stats() health.Queue {
	var capacity, pending int
	for _, jobs := range ix.shards {
		capacity += cap(jobs)
		pending += len(jobs)
	}
	return health.Queue{
		Capacity:  capacity,
		Pending:   pending,
		Enqueued:  ix.enqueued.Load(),
		Processed: ix.processed.Load(),
		Failed:    ix.failed.Load(),
		Dropped:   ix.dropped.Load(),
	}
}
