// Package scheduler runs poll tasks on a fixed interval with on-demand
// triggering. Overlapping runs are skipped, never queued.
package scheduler

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/metrics"
)

// ErrAlreadyRunning is returned by Start on a poller that was already started.
var ErrAlreadyRunning = errors.New("poller already running")

// Task is one poll run. The context is cancelled on Stop and bounded by the
// poller's run timeout.
type Task func(ctx context.Context) error

type Poller struct {
	name    string
	task    Task
	timeout time.Duration
	log     *logrus.Entry

	inFlight atomic.Bool

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a poller. A zero timeout leaves runs bounded only by Stop.
func New(name string, task Task, timeout time.Duration, logger *logging.Logger) *Poller {
	return &Poller{
		name:    name,
		task:    task,
		timeout: timeout,
		log:     logger.WithComponent("poller").WithField("poller", name),
	}
}

func (p *Poller) Name() string {
	return p.name
}

// Timeout is the per-run bound, zero when unbounded.
func (p *Poller) Timeout() time.Duration {
	return p.timeout
}

// Start runs the task immediately and then every interval until ctx is done
// or Stop is called.
func (p *Poller) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("poll interval must be positive")
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.running = true
	p.ctx, p.cancel = context.WithCancel(ctx)
	loopCtx := p.ctx
	p.wg.Add(1)
	p.mu.Unlock()

	go p.loop(loopCtx, interval)
	p.log.Infof("Poller started (interval %s)", interval)
	return nil
}

// Stop halts the ticker and waits for any in-flight run to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Info("Poller stopped")
}

// TriggerNow starts a run in the background. It returns false when a run is
// already in flight or the poller is stopped.
func (p *Poller) TriggerNow() bool {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return false
	}
	ctx := p.ctx
	if !p.inFlight.CompareAndSwap(false, true) {
		p.mu.Unlock()
		metrics.PollsTotal.WithLabelValues(p.name, "skipped").Inc()
		return false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)
		p.execute(ctx)
	}()
	return true
}

// RunOnce executes the task synchronously, for one-shot use outside the loop.
func (p *Poller) RunOnce(ctx context.Context) error {
	if !p.inFlight.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.inFlight.Store(false)
	return p.execute(ctx)
}

func (p *Poller) loop(ctx context.Context, interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ticker.C:
			p.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		metrics.PollsTotal.WithLabelValues(p.name, "skipped").Inc()
		p.log.Debug("Previous run still in flight, skipping tick")
		return
	}
	defer p.inFlight.Store(false)
	p.execute(ctx)
}

func (p *Poller) execute(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.PanicsRecovered.WithLabelValues(p.name).Inc()
			p.log.WithField("stack", string(debug.Stack())).Errorf("Poll panicked: %v", r)
			err = errors.New("poll panicked")
		}
		metrics.PollDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
		status := "success"
		if err != nil {
			status = "failed"
		}
		metrics.PollsTotal.WithLabelValues(p.name, status).Inc()
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err = p.task(ctx); err != nil {
		p.log.Warnf("Poll failed: %v", err)
	}
	return err
}
