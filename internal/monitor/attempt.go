package monitor

import (
	"context"
	"strings"

	"github.com/example/resywatch/internal/resy"
	"github.com/example/resywatch/internal/venues"
	"go.uber.org/zap"
)

// attemptBooking walks the ranked candidates in order and stops at the
// first committed reservation. A single slot's failure (detail fetch or
// commit) is logged and the loop moves to the next candidate; running out
// of candidates is a non-error outcome.
func (m *Monitor) attemptBooking(ctx context.Context, v *venues.Venue, ranked []Candidate, user resy.User, checkedDate string, log *zap.Logger) Outcome {
	for i, c := range ranked {
		log.Info("found time to book", zap.String("slot", c.Slot.Date.Start))

		day := detailDay(checkedDate, c.Slot)
		details, err := m.provider.SlotDetails(ctx, c.Slot.Config.Token, v.PartySize, day)
		if err != nil {
			log.Warn("slot details failed, trying next", zap.String("slot", c.Slot.Date.Start), zap.Error(err))
			continue
		}

		res, err := m.provider.Book(ctx, details.BookToken.Value, user.PaymentMethods[0].ID)
		if err != nil {
			log.Warn("booking failed, trying next", zap.String("slot", c.Slot.Date.Start), zap.Error(err))
			continue
		}

		v.ReservationDetails = res.Raw
		log.Info("successfully booked", zap.String("slot", c.Slot.Date.Start), zap.Int64("reservation_id", res.ReservationID))

		msg := "Booked " + v.Name + " at " + c.Slot.Date.Start
		if err := m.notifier.SendText(ctx, msg); err != nil {
			log.Warn("text notification failed", zap.Error(err))
		}
		return Outcome{Status: StatusBooked, Attempts: i + 1}
	}

	log.Info("exhausted all candidate slots", zap.Int("attempts", len(ranked)))
	return Outcome{Status: StatusExhausted, Attempts: len(ranked)}
}

// detailDay resolves the day parameter for a detail request: the first
// whitespace-delimited token of the checked-date string, or the slot's own
// shift day when the provider did not echo the queried date.
func detailDay(checkedDate string, s resy.Slot) string {
	if fields := strings.Fields(checkedDate); len(fields) > 0 {
		return fields[0]
	}
	return s.Shift.Day
}
