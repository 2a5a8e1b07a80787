package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/georgfedermann/hit2assext/internal/logging"
)

// Sweeper periodically reaps stale sessions from a Manager.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. A nil logger discards output.
func NewSweeper(m *Manager, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{manager: m, interval: interval, logger: logger}
}

// Run sweeps every interval until ctx is canceled, then returns ctx.Err().
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", s.interval)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	reaped, err := s.manager.Sweep(ctx)
	if err != nil {
		s.logger.Warn("Sweep completed with errors", "reaped", len(reaped), "err", err)
		return
	}
	if len(reaped) > 0 {
		s.logger.Info("Sweep completed", "reaped", len(reaped), "session_ids", reaped)
	}
}
