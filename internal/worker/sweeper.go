// Package worker runs the periodic event sweep: every interval, each
// active session gets its spontaneous-event roll. Turn processing and
// the sweep serialize on the engine's per-session locks.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/tavern-engine/pkg/engine"
)

// Sweeper drives engine.SweepEvents on a fixed interval.
type Sweeper struct {
	id       string
	engine   *engine.Engine
	interval time.Duration
	log      *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a sweeper. An empty id gets a generated one.
func New(eng *engine.Engine, interval time.Duration, log *slog.Logger, id string) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())

	if id == "" {
		id = fmt.Sprintf("sweeper-%s", uuid.New().String()[:8])
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Sweeper{
		id:       id,
		engine:   eng,
		interval: interval,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs the sweep loop until Stop is called.
func (s *Sweeper) Start() error {
	s.log.Info("Event sweeper starting", "sweeper_id", s.id, "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info("Event sweeper shutting down", "sweeper_id", s.id)
			return nil
		case <-ticker.C:
			if fired := s.RunOnce(); fired > 0 {
				s.log.Debug("Sweep injected events", "sweeper_id", s.id, "fired", fired)
			}
		}
	}
}

// RunOnce performs a single sweep and reports how many events fired.
func (s *Sweeper) RunOnce() int {
	return s.engine.SweepEvents()
}

// Stop gracefully shuts down the sweeper
func (s *Sweeper) Stop() {
	s.log.Info("Event sweeper stop requested", "sweeper_id", s.id)
	s.cancel()
}
