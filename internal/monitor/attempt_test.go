package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/example/resywatch/internal/resy"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testUser() resy.User {
	return resy.User{PaymentMethods: []resy.PaymentMethod{{ID: 42}}}
}

func TestAttemptBookingShortCircuitsOnFirstSuccess(t *testing.T) {
	cands := candidates(t,
		"2024-05-01 18:00:00",
		"2024-05-01 18:15:00",
		"2024-05-01 18:30:00",
		"2024-05-01 18:45:00",
	)

	bookCalls := 0
	p := &fakeProvider{
		book: func(context.Context, string, int64) (resy.Reservation, error) {
			bookCalls++
			if bookCalls < 3 {
				return resy.Reservation{}, errors.New("slot taken")
			}
			return resy.Reservation{Raw: json.RawMessage(`{"reservation_id":1}`)}, nil
		},
	}
	m := newTestMonitor(p, &fakeNotifier{}, &fakeStore{})

	v := watchedVenue()
	out := m.attemptBooking(context.Background(), &v, cands, testUser(), "2024-05-01 18:00:00", zap.NewNop())

	require.Equal(t, StatusBooked, out.Status)
	require.Equal(t, 3, out.Attempts)
	require.Equal(t, 3, bookCalls, "must never attempt slots after the first success")
	require.True(t, v.Booked())
}

func TestAttemptBookingExhaustsAllCandidates(t *testing.T) {
	cands := candidates(t,
		"2024-05-01 18:00:00",
		"2024-05-01 18:15:00",
		"2024-05-01 18:30:00",
	)

	bookCalls := 0
	p := &fakeProvider{
		book: func(context.Context, string, int64) (resy.Reservation, error) {
			bookCalls++
			return resy.Reservation{}, errors.New("slot taken")
		},
	}
	n := &fakeNotifier{}
	m := newTestMonitor(p, n, &fakeStore{})

	v := watchedVenue()
	out := m.attemptBooking(context.Background(), &v, cands, testUser(), "2024-05-01 18:00:00", zap.NewNop())

	require.Equal(t, StatusExhausted, out.Status)
	require.Equal(t, 3, out.Attempts)
	require.Equal(t, 3, bookCalls)
	require.False(t, v.Booked())
	require.Empty(t, n.sent)
}

func TestAttemptBookingSkipsSlotOnDetailsFailure(t *testing.T) {
	cands := candidates(t,
		"2024-05-01 18:00:00",
		"2024-05-01 18:15:00",
	)

	detailCalls := 0
	p := &fakeProvider{
		slotDetails: func(_ context.Context, configID string, _ int, _ string) (resy.SlotDetails, error) {
			detailCalls++
			if detailCalls == 1 {
				return resy.SlotDetails{}, errors.New("details unavailable")
			}
			return details("bt"), nil
		},
		book: func(context.Context, string, int64) (resy.Reservation, error) {
			return resy.Reservation{Raw: json.RawMessage(`{}`)}, nil
		},
	}
	m := newTestMonitor(p, &fakeNotifier{}, &fakeStore{})

	v := watchedVenue()
	out := m.attemptBooking(context.Background(), &v, cands, testUser(), "2024-05-01 18:00:00", zap.NewNop())

	require.Equal(t, StatusBooked, out.Status)
	require.Equal(t, 2, out.Attempts)
}

func TestAttemptBookingNotifierFailureDoesNotUndoBooking(t *testing.T) {
	cands := candidates(t, "2024-05-01 18:00:00")

	m := newTestMonitor(&fakeProvider{}, &fakeNotifier{err: errors.New("twilio down")}, &fakeStore{})

	v := watchedVenue()
	out := m.attemptBooking(context.Background(), &v, cands, testUser(), "2024-05-01 18:00:00", zap.NewNop())

	require.Equal(t, StatusBooked, out.Status)
	require.True(t, v.Booked())
}

func TestDetailDay(t *testing.T) {
	s := slot("2024-05-01 19:00:00", "cfg", "2024-05-02")

	require.Equal(t, "2024-05-01", detailDay("2024-05-01 19:00", s))
	require.Equal(t, "2024-05-01", detailDay("2024-05-01", s))
	require.Equal(t, "2024-05-02", detailDay("", s), "empty checked date falls back to the slot's shift day")
	require.Equal(t, "2024-05-02", detailDay("   ", s))
}
