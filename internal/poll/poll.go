// Package poll runs a job at a fixed but adjustable interval.
package poll

import (
	"context"
	"log/slog"
	"time"
)

type Poller struct {
	name     string
	interval func() time.Duration
	active   func() bool
	run      func(ctx context.Context) error
	logger   *slog.Logger
}

// New returns a poller for run. interval is read again before every wait, so
// changes take effect after the current wait ends.
func New(name string, interval func() time.Duration, run func(ctx context.Context) error, logger *slog.Logger) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		active:   func() bool { return true },
		run:      run,
		logger:   logger,
	}
}

// OnlyWhen skips ticks while active reports false.
func (p *Poller) OnlyWhen(active func() bool) *Poller {
	p.active = active
	return p
}

// Start runs the job once immediately and then after every interval until
// ctx is cancelled. Job errors are logged and never stop the loop.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("poller started", "poller", p.name, "interval", p.interval())

	p.tick(ctx)
	timer := time.NewTimer(p.wait())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped", "poller", p.name)
			return
		case <-timer.C:
			p.tick(ctx)
			timer.Reset(p.wait())
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if !p.active() {
		return
	}
	if err := p.run(ctx); err != nil {
		p.logger.Error("poll failed", "poller", p.name, "error", err)
	}
}

func (p *Poller) wait() time.Duration {
	if d := p.interval(); d > 0 {
		return d
	}
	return time.Second
}
