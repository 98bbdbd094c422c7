package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultProbeInterval is used when UpstreamProbe.Interval is not set.
const DefaultProbeInterval = 30 * time.Second

// UpstreamProbe periodically checks that the identity service answers. It
// only reports; login and validation calls never consult it.
type UpstreamProbe struct {
	Identity IdentityClient
	Logger   *slog.Logger
	Interval time.Duration

	// Observer, if set, is told the result of every check.
	Observer func(healthy bool)

	healthy atomic.Bool
	checked atomic.Bool
}

// Run checks once immediately and then every Interval until ctx is done.
// It always returns nil, so it can run inside an errgroup.
func (p *UpstreamProbe) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	p.logger().Info("upstream probe started", "interval", interval)
	defer p.logger().Info("upstream probe stopped")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

func (p *UpstreamProbe) check(ctx context.Context) {
	err := p.Identity.Ping(ctx)
	if ctx.Err() != nil {
		return
	}

	healthy := err == nil
	was := p.healthy.Swap(healthy)
	first := !p.checked.Swap(true)

	switch {
	case !healthy && (was || first):
		p.logger().Warn("identity service unreachable", "err", err)
	case healthy && !was && !first:
		p.logger().Info("identity service reachable again")
	}

	if p.Observer != nil {
		p.Observer(healthy)
	}
}

// Healthy reports the result of the last completed check. It is false until
// the first check completes.
func (p *UpstreamProbe) Healthy() bool {
	return p.healthy.Load()
}

// Checked reports whether at least one check has completed.
func (p *UpstreamProbe) Checked() bool {
	return p.checked.Load()
}

func (p *UpstreamProbe) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
