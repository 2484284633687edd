package task

import (
	"context"
	"sync"
	"time"
)

const defaultSchedulerInterval = time.Minute

// RunnerFunc performs one scheduled pass.
type RunnerFunc func(context.Context)

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithImmediateRun makes the scheduler run once as soon as it starts.
func WithImmediateRun() SchedulerOption {
	return func(scheduler *Scheduler) {
		scheduler.runOnStart = true
	}
}

// Scheduler runs a RunnerFunc every interval and on demand. Runs never overlap.
type Scheduler struct {
	interval     time.Duration
	runner       RunnerFunc
	runOnStart   bool
	trigger      chan struct{}
	controlMutex sync.Mutex
	cancel       context.CancelFunc
	done         chan struct{}
}

// NewScheduler builds a stopped Scheduler. Non-positive intervals fall back to one minute.
func NewScheduler(interval time.Duration, runner RunnerFunc, options ...SchedulerOption) *Scheduler {
	if interval <= 0 {
		interval = defaultSchedulerInterval
	}
	scheduler := &Scheduler{
		interval: interval,
		runner:   runner,
		trigger:  make(chan struct{}, 1),
	}
	for _, option := range options {
		option(scheduler)
	}
	return scheduler
}

// Start launches the loop until ctx ends or Stop is called. Repeated calls are ignored.
func (scheduler *Scheduler) Start(ctx context.Context) {
	if scheduler == nil || scheduler.runner == nil {
		return
	}
	scheduler.controlMutex.Lock()
	if scheduler.cancel != nil {
		scheduler.controlMutex.Unlock()
		return
	}
	runtimeCtx, cancel := context.WithCancel(ctx)
	scheduler.cancel = cancel
	done := make(chan struct{})
	scheduler.done = done
	scheduler.controlMutex.Unlock()

	if scheduler.runOnStart {
		scheduler.Trigger()
	}
	go scheduler.loop(runtimeCtx, done)
}

// Trigger requests a run without waiting for the next tick. Pending requests coalesce.
func (scheduler *Scheduler) Trigger() {
	if scheduler == nil {
		return
	}
	select {
	case scheduler.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the loop and waits for an in-flight run to return.
func (scheduler *Scheduler) Stop() {
	if scheduler == nil {
		return
	}
	scheduler.controlMutex.Lock()
	cancel := scheduler.cancel
	done := scheduler.done
	scheduler.cancel = nil
	scheduler.done = nil
	scheduler.controlMutex.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (scheduler *Scheduler) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(scheduler.interval)
	defer ticker.Stop()
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-scheduler.trigger:
			scheduler.run(ctx)
			ticker.Reset(scheduler.interval)
		case <-ticker.C:
			scheduler.run(ctx)
		}
	}
}

func (scheduler *Scheduler) run(ctx context.Context) {
	if scheduler.runner == nil || ctx.Err() != nil {
		return
	}
	scheduler.runner(ctx)
}
