package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/resywatch/internal/resy"
	"github.com/example/resywatch/internal/venues"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Provider is the slice of the Resy API the monitor needs. It is assumed
// authenticated; session refresh happens on an independent schedule.
type Provider interface {
	ListSlots(ctx context.Context, venueID int64, day string, partySize int) ([]resy.Slot, error)
	SlotDetails(ctx context.Context, configID string, partySize int, day string) (resy.SlotDetails, error)
	Book(ctx context.Context, bookToken string, paymentMethodID int64) (resy.Reservation, error)
	User(ctx context.Context) (resy.User, error)
}

// Notifier is fire-and-forget from the monitor's perspective; send errors
// are logged and never fail a booking.
type Notifier interface {
	SendText(ctx context.Context, message string) error
}

type Store interface {
	List(ctx context.Context) ([]venues.Venue, error)
	SaveAll(ctx context.Context, vs []venues.Venue) error
	SaveReservation(ctx context.Context, id int64, details json.RawMessage) error
}

type Status int

const (
	// StatusNoSlots: the provider returned nothing for the checked date.
	StatusNoSlots Status = iota
	// StatusNoMatch: slots existed but none fell inside the venue's window.
	StatusNoMatch
	// StatusBooked: a reservation was committed.
	StatusBooked
	// StatusExhausted: every candidate was tried and all failed.
	StatusExhausted
	// StatusFailed: the refresh itself failed (provider error, bad config).
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNoSlots:
		return "no_slots"
	case StatusNoMatch:
		return "no_match"
	case StatusBooked:
		return "booked"
	case StatusExhausted:
		return "exhausted"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is the result of one venue refresh. Err is set only for
// StatusFailed; the cycle runner logs it and moves on.
type Outcome struct {
	Status   Status
	Attempts int
	Err      error
}

// ErrCycleInFlight is returned when a cycle trigger overlaps a running
// cycle. The second trigger is dropped rather than racing on the save.
var ErrCycleInFlight = errors.New("watch-list cycle already in flight")

// Monitor drives the filter → rank → attempt pipeline for watched venues.
type Monitor struct {
	provider Provider
	notifier Notifier
	store    Store
	log      *zap.Logger

	now func() time.Time

	cycleMu sync.Mutex
}

func New(p Provider, n Notifier, s Store, log *zap.Logger) *Monitor {
	return &Monitor{
		provider: p,
		notifier: n,
		store:    s,
		log:      log,
		now:      time.Now,
	}
}

// RefreshVenue checks one venue for bookable slots and attempts to claim
// the best one. It never propagates errors: every failure is folded into
// the returned Outcome so one venue cannot halt a cycle.
func (m *Monitor) RefreshVenue(ctx context.Context, v *venues.Venue) Outcome {
	day := m.now().AddDate(0, 0, v.IntervalDays-1).Format("2006-01-02")
	log := m.log.With(zap.Int64("venue_id", v.ID), zap.String("venue", v.Name), zap.String("day", day))
	log.Info("checking venue")

	minClock, err := venues.ParseClock(v.MinTime)
	if err != nil {
		log.Error("bad venue window", zap.Error(err))
		return Outcome{Status: StatusFailed, Err: err}
	}
	maxClock, err := venues.ParseClock(v.MaxTime)
	if err != nil {
		log.Error("bad venue window", zap.Error(err))
		return Outcome{Status: StatusFailed, Err: err}
	}

	slots, err := m.provider.ListSlots(ctx, v.ID, day, v.PartySize)
	if err != nil {
		log.Error("listing slots failed", zap.Error(err))
		return Outcome{Status: StatusFailed, Err: err}
	}
	if len(slots) == 0 {
		log.Info("no slots found")
		return Outcome{Status: StatusNoSlots}
	}

	cands := filterSlots(slots, minClock, maxClock)
	if len(cands) == 0 {
		return Outcome{Status: StatusNoMatch}
	}

	// The provider echoes the queried date on each slot; the first
	// candidate's raw date string is what detail requests key off.
	checkedDate := cands[0].Slot.Date.Start
	log.Info("found valid open slots", zap.Int("count", len(cands)), zap.String("date", checkedDate))

	user, err := m.provider.User(ctx)
	if err != nil {
		log.Error("fetching user failed", zap.Error(err))
		return Outcome{Status: StatusFailed, Err: err}
	}
	if len(user.PaymentMethods) == 0 {
		err := errors.New("user has no payment methods on file")
		log.Error("cannot book", zap.Error(err))
		return Outcome{Status: StatusFailed, Err: err}
	}

	ranked := cands
	if v.PreferredTime != "" {
		pref, err := venues.ParseClock(v.PreferredTime)
		if err != nil {
			// Fail open: an unparseable preference degrades to provider order.
			log.Warn("bad preferred time, keeping provider order", zap.Error(err))
		} else {
			ranked = rankSlots(cands, pref)
		}
	}

	return m.attemptBooking(ctx, v, ranked, user, checkedDate, log)
}

// RefreshOne runs a scheduler-triggered refresh for a single venue and
// persists its reservation if one was booked. State stays venue-local so
// independently scheduled venues can interleave safely.
func (m *Monitor) RefreshOne(ctx context.Context, v venues.Venue) Outcome {
	out := m.RefreshVenue(ctx, &v)
	if out.Status == StatusBooked {
		if err := m.store.SaveReservation(ctx, v.ID, v.ReservationDetails); err != nil {
			m.log.Error("persisting reservation failed", zap.Int64("venue_id", v.ID), zap.Error(err))
		}
	}
	return out
}

// RunCycle walks the whole watch-list sequentially and saves it at the
// end. Overlapping triggers are rejected with ErrCycleInFlight instead of
// racing on the shared save.
func (m *Monitor) RunCycle(ctx context.Context) error {
	if !m.cycleMu.TryLock() {
		m.log.Warn("cycle trigger overlapped a running cycle, skipping")
		return ErrCycleInFlight
	}
	defer m.cycleMu.Unlock()

	log := m.log.With(zap.String("cycle_id", uuid.NewString()))
	log.Info("finding reservations")

	vs, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load watch-list: %w", err)
	}

	booked := 0
	for i := range vs {
		out := m.RefreshVenue(ctx, &vs[i])
		if out.Status == StatusBooked {
			booked++
		}
	}

	if err := m.store.SaveAll(ctx, vs); err != nil {
		return fmt.Errorf("save watch-list: %w", err)
	}
	log.Info("finished finding reservations", zap.Int("venues", len(vs)), zap.Int("booked", booked))
	return nil
}
