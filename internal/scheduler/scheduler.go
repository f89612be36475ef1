package scheduler

import (
	"context"
	"os"

	"github.com/example/resywatch/internal/monitor"
	"github.com/example/resywatch/internal/venues"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner is the monitor surface the scheduler drives.
type Runner interface {
	RunCycle(ctx context.Context) error
	RefreshOne(ctx context.Context, v venues.Venue) monitor.Outcome
}

// Authenticator refreshes the provider session.
type Authenticator interface {
	Login(ctx context.Context) error
}

// Scheduler owns the cron entries: one per watched venue plus the fixed
// session re-auth job. Venue refreshes are venue-local and may interleave;
// full cycles are single-flight inside the monitor.
type Scheduler struct {
	Runner     Runner
	Auth       Authenticator
	Log        *zap.Logger
	ReauthSpec string

	// Exit is called when re-auth fails; a dead session would silently
	// stop every future cycle, so the process is handed back to its
	// supervisor. Tests override it.
	Exit func(code int)

	cron *cron.Cron
}

// Start registers all cron entries and begins running them. It performs an
// initial login and one full cycle before returning, matching the behavior
// of running the watcher by hand, then blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context, vs []venues.Venue) error {
	if s.Exit == nil {
		s.Exit = os.Exit
	}
	s.cron = cron.New()

	if _, err := s.cron.AddFunc(s.ReauthSpec, func() { s.reauth(ctx) }); err != nil {
		return err
	}

	for _, v := range vs {
		v := v
		s.Log.Info("scheduling venue check",
			zap.Int64("venue_id", v.ID),
			zap.String("venue", v.Name),
			zap.Int("interval_days", v.IntervalDays),
			zap.String("cron", v.Cron))
		if _, err := s.cron.AddFunc(v.Cron, func() {
			s.Runner.RefreshOne(ctx, v)
		}); err != nil {
			// One venue's bad cron spec should not keep the rest from running.
			s.Log.Error("invalid cron spec, venue not scheduled",
				zap.Int64("venue_id", v.ID), zap.String("cron", v.Cron), zap.Error(err))
		}
	}

	s.reauth(ctx)
	if err := s.Runner.RunCycle(ctx); err != nil {
		s.Log.Error("initial cycle failed", zap.Error(err))
	}

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return ctx.Err()
}

func (s *Scheduler) reauth(ctx context.Context) {
	if err := s.Auth.Login(ctx); err != nil {
		// A stale session fails every later call without looking fatal.
		// Hand the process to the supervisor for a clean restart.
		s.Log.Error("session re-auth failed, exiting", zap.Error(err))
		s.Exit(1)
	}
}
