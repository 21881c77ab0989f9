// Package poller runs a function on a fixed interval and keeps health
// statistics about it. The watch and export commands use it to refresh
// device state.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is used when New is given a non-positive interval.
const DefaultInterval = 30 * time.Second

// Func is called on each tick. A nil error counts as a success.
type Func func(ctx context.Context) error

// Status is a snapshot of the poller's history.
type Status struct {
	IsRunning           bool       `json:"is_running"`
	LastPollTime        *time.Time `json:"last_poll_time,omitempty"`
	LastSuccessTime     *time.Time `json:"last_success_time,omitempty"`
	LastErrorTime       *time.Time `json:"last_error_time,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	TotalPolls          int64      `json:"total_polls"`
	TotalFailures       int64      `json:"total_failures"`
}

// Options tune a Poller. Every field is optional.
type Options struct {
	Log *logrus.Entry

	// MaxConsecutiveFailures before the poller reports unhealthy (0 = never).
	MaxConsecutiveFailures int

	OnSuccess   func()
	OnError     func(err error)
	OnUnhealthy func(failures int)

	// InitialDelay before the first poll.
	InitialDelay time.Duration
}

// Poller is a managed polling loop. Polls never overlap.
type Poller struct {
	interval time.Duration
	fn       Func
	opts     Options
	log      *logrus.Entry

	mu                  sync.RWMutex
	running             atomic.Bool
	lastPollTime        time.Time
	lastSuccessTime     time.Time
	lastErrorTime       time.Time
	lastError           error
	consecutiveFailures int
	totalPolls          int64
	totalFailures       int64

	trigger chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New returns a stopped poller.
func New(interval time.Duration, fn Func, opts Options) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Poller{
		interval: interval,
		fn:       fn,
		opts:     opts,
		log:      log.WithField("component", "poller"),
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Start begins polling until Stop is called or ctx ends. The first poll runs
// after InitialDelay.
func (p *Poller) Start(ctx context.Context) {
	if p.running.Swap(true) {
		return
	}
	p.stopCh = make(chan struct{})
	p.wg.Add(1)
	go p.loop(ctx, p.stopCh)
}

// Stop ends the loop and waits for an in-flight poll to return.
func (p *Poller) Stop() {
	if !p.running.Swap(false) {
		return
	}
	close(p.stopCh)
	p.wg.Wait()
}

// Wait blocks until the loop exits, either through Stop or its context.
func (p *Poller) Wait() { p.wg.Wait() }

// IsRunning reports whether the loop has started and not yet exited.
func (p *Poller) IsRunning() bool { return p.running.Load() }

// IsHealthy reports whether consecutive failures are below the limit.
func (p *Poller) IsHealthy() bool {
	if p.opts.MaxConsecutiveFailures <= 0 {
		return true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.consecutiveFailures < p.opts.MaxConsecutiveFailures
}

// Status returns the current poll status.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := Status{
		IsRunning:           p.running.Load(),
		LastPollTime:        timeOrNil(p.lastPollTime),
		LastSuccessTime:     timeOrNil(p.lastSuccessTime),
		LastErrorTime:       timeOrNil(p.lastErrorTime),
		ConsecutiveFailures: p.consecutiveFailures,
		TotalPolls:          p.totalPolls,
		TotalFailures:       p.totalFailures,
	}
	if p.lastError != nil {
		status.LastError = p.lastError.Error()
	}
	return status
}

// PollNow asks the running loop for an immediate poll. It does not block;
// requests made while one is already pending are merged.
func (p *Poller) PollNow() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *Poller) loop(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()
	defer p.running.Store(false)

	if p.opts.InitialDelay > 0 {
		timer := time.NewTimer(p.opts.InitialDelay)
		select {
		case <-timer.C:
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}

	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-p.trigger:
			p.poll(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	p.mu.Lock()
	p.lastPollTime = time.Now()
	p.totalPolls++
	p.mu.Unlock()

	err := p.fn(ctx)

	p.mu.Lock()
	if err == nil {
		p.lastError = nil
		p.lastSuccessTime = time.Now()
		p.consecutiveFailures = 0
		p.mu.Unlock()
		if p.opts.OnSuccess != nil {
			p.opts.OnSuccess()
		}
		return
	}

	p.lastError = err
	p.lastErrorTime = time.Now()
	p.consecutiveFailures++
	p.totalFailures++
	failures := p.consecutiveFailures
	p.mu.Unlock()

	p.log.WithError(err).WithField("consecutive_failures", failures).Error("poll failed")
	if p.opts.OnError != nil {
		p.opts.OnError(err)
	}
	if p.opts.MaxConsecutiveFailures > 0 && failures >= p.opts.MaxConsecutiveFailures && p.opts.OnUnhealthy != nil {
		p.opts.OnUnhealthy(failures)
	}
}

// timeOrNil returns nil for the zero time so unset stamps drop out of JSON.
func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
