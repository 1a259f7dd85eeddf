package jobs

import (
	"context"
	"time"

	"cinema-booking/pkg/utils"

	"go.uber.org/zap"
)

type lockExpirer interface {
	ExpireLocks(now time.Time) int
}

type sessionExpirer interface {
	ExpireSessions(ctx context.Context, now time.Time) int
	Purge(now time.Time) int
}

// Sweeper periodically expires lapsed seat locks and sessions so that
// holds are released even when nobody reads them.
type Sweeper struct {
	locks    lockExpirer
	sessions sessionExpirer
	clock    utils.Clock
	interval time.Duration
	log      *zap.Logger
}

func NewSweeper(locks lockExpirer, sessions sessionExpirer, clock utils.Clock, interval time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{
		locks:    locks,
		sessions: sessions,
		clock:    clock,
		interval: interval,
		log:      log.With(zap.String("job", "sweeper")),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	now := s.clock.Now()

	// Sessions first so their seats are released with a session reason
	// before the lock table reverts anything left over.
	sessions := s.sessions.ExpireSessions(ctx, now)
	locks := s.locks.ExpireLocks(now)
	purged := s.sessions.Purge(now)

	if sessions+locks+purged > 0 {
		s.log.Info("Sweep completed",
			zap.Int("expired_sessions", sessions),
			zap.Int("expired_locks", locks),
			zap.Int("purged_sessions", purged),
		)
	}
}
