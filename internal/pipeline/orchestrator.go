package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aadjones/kent-repertory-etl/internal/config"
	"github.com/aadjones/kent-repertory-etl/internal/db"
	"github.com/aadjones/kent-repertory-etl/internal/store"
)

// Orchestrator manages the chapter-build pipeline.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	store    *store.Store
	database *db.DB // nil disables the load phase
	log      *slog.Logger
	cfg      config.Config

	hashMu sync.Mutex
	hashes map[string]string // content hash -> job ID, for duplicate skips

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline; call Start to launch workers.
func NewOrchestrator(cfg config.Config, st *store.Store, database *db.DB, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		store:    st,
		database: database,
		log:      log,
		cfg:      cfg,
		hashes:   make(map[string]string),
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.store, o.database, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// NewJob registers a job for the given source file. When the same content
// was already submitted, the job is marked duplicate_skipped immediately and
// never queued.
func (o *Orchestrator) NewJob(filename string, data []byte) *Job {
	job := &Job{
		ID:          generateULID(),
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		ContentHash: ContentHashHex(data),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	job.SetFileData(data)
	return job
}

// Submit queues a job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.hashMu.Lock()
	if prior, ok := o.hashes[job.ContentHash]; ok {
		o.hashMu.Unlock()
		o.jobs.Put(job)
		job.SetStatus(StatusDupSkipped, "dedup")
		o.log.Info("duplicate content, skipping", "job_id", job.ID, "prior_job_id", prior)
		return nil
	}
	o.hashes[job.ContentHash] = job.ID
	o.hashMu.Unlock()

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
