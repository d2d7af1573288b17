// Package resource paces and bounds the work a generation run puts on the
// host: concurrent simulator processes, their launch rate and upload
// bandwidth.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxWorkers is the maximum number of concurrent simulator processes.
	// If 0, defaults to 1.
	MaxWorkers int64

	// LaunchesPerSec limits how fast new processes are started.
	// If 0, unlimited.
	LaunchesPerSec float64

	// LaunchBurst is the number of launches allowed at once under
	// LaunchesPerSec. If 0, defaults to MaxWorkers.
	LaunchBurst int

	// IOLimitBytesPerSec is the maximum throughput for uploads.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller hands out worker slots and paces launches and IO.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	slots *semaphore.Weighted

	launchLimiter *rate.Limiter // nil if unlimited
	ioLimiter     *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.LaunchBurst <= 0 {
		cfg.LaunchBurst = int(cfg.MaxWorkers)
	}

	c := &Controller{
		cfg:   cfg,
		slots: semaphore.NewWeighted(cfg.MaxWorkers),
	}

	if cfg.LaunchesPerSec > 0 {
		c.launchLimiter = rate.NewLimiter(rate.Limit(cfg.LaunchesPerSec), cfg.LaunchBurst)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// MaxWorkers returns the number of worker slots.
func (c *Controller) MaxWorkers() int {
	if c == nil {
		return 1
	}
	return int(c.cfg.MaxWorkers)
}

// AcquireWorker reserves a worker slot and waits for a launch token.
// It blocks until both are available or ctx is canceled. On success the
// caller must call ReleaseWorker.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}

	if err := c.slots.Acquire(ctx, 1); err != nil {
		return err
	}

	if c.launchLimiter != nil {
		if err := c.launchLimiter.Wait(ctx); err != nil {
			c.slots.Release(1)
			return err
		}
	}

	return nil
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.slots.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}

	// WaitN rejects requests larger than the burst.
	burst := c.ioLimiter.Burst()
	for bytes > burst {
		if err := c.ioLimiter.WaitN(ctx, burst); err != nil {
			return err
		}
		bytes -= burst
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}
