package downloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"xhscrawler/pkg/logger"
	"xhscrawler/pkg/models"
	"xhscrawler/pkg/ratelimit"
)

// Job is one note whose media should be persisted
type Job struct {
	// Index is the note's position in the batch
	Index  int
	Note   models.Note
	Choice models.SaveChoice
}

// Result is the outcome of a Job
type Result struct {
	Job      Job
	Dir      string
	Error    error
	Duration time.Duration
}

// NoteSaver persists one note's media and returns its directory
type NoteSaver interface {
	SaveNote(ctx context.Context, note models.Note, choice models.SaveChoice) (string, error)
}

// WorkerPool saves note media with a fixed number of workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	saver       NoteSaver
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewWorkerPool creates a pool bound to ctx. limiter may be nil.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	saver NoteSaver,
	limiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		saver:       saver,
		rateLimiter: limiter,
		logger:      log,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("starting media workers", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for queued jobs and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a job. It blocks while the queue is full.
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		var result Result
		if err := wp.ctx.Err(); err != nil {
			// drain so Stop never blocks on a cancelled batch
			result = Result{Job: job, Error: err}
		} else {
			result = wp.processJob(job, id)
		}
		wp.resultQueue <- result
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}
	fields := map[string]interface{}{
		"worker_id": workerID,
		"note_id":   job.Note.NoteID,
	}

	if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	dir, err := wp.saver.SaveNote(wp.ctx, job.Note, job.Choice)
	result.Duration = time.Since(start)
	fields["duration_ms"] = result.Duration.Milliseconds()
	if err != nil {
		result.Error = err
		wp.logger.WithError(err).ErrorWithFields("note media failed", fields)
		return result
	}

	result.Dir = dir
	wp.logger.DebugWithFields("note media saved", fields)
	return result
}

// SaveAll persists every note and returns the results in input order
func SaveAll(
	ctx context.Context,
	numWorkers int,
	saver NoteSaver,
	limiter ratelimit.Limiter,
	log logger.Logger,
	notes []models.Note,
	choice models.SaveChoice,
) []Result {
	results := make([]Result, len(notes))
	if len(notes) == 0 {
		return results
	}
	if numWorkers > len(notes) {
		numWorkers = len(notes)
	}

	wp := NewWorkerPool(ctx, numWorkers, saver, limiter, log)
	wp.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range wp.Results() {
			results[r.Job.Index] = r
		}
	}()

	for i, note := range notes {
		job := Job{Index: i, Note: note, Choice: choice}
		if err := wp.Submit(job); err != nil {
			// pool cancelled; remaining jobs are reported as failed
			for j := i; j < len(notes); j++ {
				results[j] = Result{Job: Job{Index: j, Note: notes[j], Choice: choice}, Error: err}
			}
			break
		}
	}

	wp.Stop()
	<-done
	return results
}
