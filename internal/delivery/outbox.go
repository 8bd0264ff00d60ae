package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Outbox is the single outbound-event queue shared by the autosave and
// integrity-event paths, so both get one resilience policy instead of ad hoc
// retry logic scattered inline. Delivery is best-effort: a job that still
// fails after the bounded retries is dropped, never surfaced to the
// candidate, and never blocks navigation or timer progression.
type Outbox struct {
	jobs        chan outboxJob
	maxAttempts int
	retryDelay  time.Duration

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

type outboxJob struct {
	label string
	run   func(ctx context.Context) error
}

const defaultOutboxDepth = 256

// NewOutbox builds a queue that tries each job up to maxAttempts times with
// a fixed delay between attempts.
func NewOutbox(maxAttempts int, retryDelay time.Duration) *Outbox {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Outbox{
		jobs:        make(chan outboxJob, defaultOutboxDepth),
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		done:        make(chan struct{}),
	}
}

// Start launches the single worker goroutine. The worker exits when ctx is
// cancelled or Close is called.
func (o *Outbox) Start(ctx context.Context) {
	o.startOnce.Do(func() {
		go o.loop(ctx)
	})
}

// Close stops accepting work and lets the worker drain what is queued.
func (o *Outbox) Close() {
	o.closeOnce.Do(func() { close(o.done) })
}

// Enqueue adds a job without blocking. When the queue is full the job is
// dropped; autosave and integrity delivery are loss-tolerant by contract.
func (o *Outbox) Enqueue(label string, run func(ctx context.Context) error) bool {
	select {
	case o.jobs <- outboxJob{label: label, run: run}:
		return true
	default:
		log.Warn().Str("job", label).Msg("outbox full, dropping outbound event")
		return false
	}
}

func (o *Outbox) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.done:
			// Drain whatever is already queued, then stop.
			for {
				select {
				case job := <-o.jobs:
					o.deliver(ctx, job)
				default:
					return
				}
			}
		case job := <-o.jobs:
			o.deliver(ctx, job)
		}
	}
}

func (o *Outbox) deliver(ctx context.Context, job outboxJob) {
	var err error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err = job.run(ctx); err == nil {
			return
		}
		log.Warn().Err(err).Str("job", job.label).Int("attempt", attempt).Msg("outbound delivery failed")
		if attempt < o.maxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.retryDelay):
			}
		}
	}
	log.Error().Err(err).Str("job", job.label).Int("attempts", o.maxAttempts).Msg("outbound delivery dropped after retries")
}
