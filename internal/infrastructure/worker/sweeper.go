// Package worker runs background maintenance off the request path.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const defaultInterval = time.Hour

// ExpiredTokenSweeper deletes refresh tokens past their expiry.
type ExpiredTokenSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Recorder observes each sweep run.
type Recorder interface {
	ObserveSweep(removed int64, took time.Duration, err error)
}

// Sweeper calls SweepExpired once at start and then on every tick until ctx
// is cancelled.
type Sweeper struct {
	target   ExpiredTokenSweeper
	interval time.Duration
	recorder Recorder
	log      zerolog.Logger
	done     chan struct{}
}

// NewSweeper uses defaultInterval when interval <= 0. recorder may be nil.
func NewSweeper(target ExpiredTokenSweeper, interval time.Duration, recorder Recorder, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Sweeper{
		target:   target,
		interval: interval,
		recorder: recorder,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It does not block.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

// Done is closed after the loop has exited.
func (s *Sweeper) Done() <-chan struct{} {
	return s.done
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	n, err := s.target.SweepExpired(ctx)
	took := time.Since(start)

	if s.recorder != nil {
		s.recorder.ObserveSweep(n, took, err)
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error().Err(err).Msg("expired refresh token sweep failed")
		return
	}
	if n == 0 {
		s.log.Debug().Dur("took", took).Msg("no expired refresh tokens")
		return
	}
	s.log.Info().
		Int64("removed", n).
		Dur("took", took).
		Msg("expired refresh tokens swept")
}
