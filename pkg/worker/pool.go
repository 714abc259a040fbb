package worker

import (
	"log"
	"sync"

	"github.com/radwatch/gammacore/pkg/models"
)

// ProcessorFunc runs one pooled spectrum analysis.
type ProcessorFunc func(item models.WorkItem) models.WorkResult

// Pool fans spectrum-analysis jobs out to a fixed set of workers. Each
// analysis is an isolated, CPU-bound pipeline invocation, so the pool is
// the only concurrency primitive the service needs.
type Pool struct {
	jobs         chan models.WorkItem
	results      chan models.WorkResult
	webhookQueue chan models.WebhookItem
	workers      int
	shutdown     chan struct{}
	wg           sync.WaitGroup
	processor    ProcessorFunc
}

// Options holds configuration for creating a pool.
type Options struct {
	Workers   int
	Processor ProcessorFunc
}

// New creates and starts a worker pool.
func New(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}

	// Buffers are sized so queueing new jobs does not block while workers
	// are busy; webhooks get a deeper buffer since delivery is slower.
	pool := &Pool{
		jobs:         make(chan models.WorkItem, opts.Workers*2),
		results:      make(chan models.WorkResult, opts.Workers*2),
		webhookQueue: make(chan models.WebhookItem, opts.Workers*4),
		workers:      opts.Workers,
		shutdown:     make(chan struct{}),
		processor:    opts.Processor,
	}

	pool.start()
	return pool
}

func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	log.Printf("worker pool started with %d workers", p.workers)
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			p.results <- p.processor(job)
		case <-p.shutdown:
			return
		}
	}
}

// SubmitJob queues an analysis job, blocking when the queue is full.
func (p *Pool) SubmitJob(job models.WorkItem) {
	select {
	case p.jobs <- job:
	default:
		log.Printf("worker pool job queue full, request %s delayed", job.RequestID)
		p.jobs <- job
	}
}

// GetResult retrieves a finished analysis without blocking.
func (p *Pool) GetResult() (models.WorkResult, bool) {
	select {
	case result := <-p.results:
		return result, true
	default:
		return models.WorkResult{}, false
	}
}

// QueueWebhook queues a result push; drops when the queue is saturated so
// a dead webhook endpoint cannot stall analysis.
func (p *Pool) QueueWebhook(item models.WebhookItem) {
	select {
	case p.webhookQueue <- item:
	default:
		log.Printf("webhook queue full, dropping push for %s", item.RequestID)
	}
}

// Webhooks exposes the queue for the delivery client.
func (p *Pool) Webhooks() <-chan models.WebhookItem {
	return p.webhookQueue
}

// Shutdown stops all workers and waits for them to drain.
func (p *Pool) Shutdown() {
	log.Printf("shutting down worker pool")
	close(p.shutdown)
	p.wg.Wait()
	log.Printf("worker pool shutdown complete")
}
