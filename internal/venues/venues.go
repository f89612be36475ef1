package venues

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/resywatch/internal/db"
	"github.com/robfig/cron/v3"
)

// Venue is one watch-list entry: a Resy venue plus the search window used
// when checking it for open slots. ReservationDetails is set once a booking
// succeeds and is the only field the monitor mutates.
type Venue struct {
	ID           int64 // Resy venue id
	Name         string
	PartySize    int
	IntervalDays int

	// Clock times on the checked date, "HH:MM" or "HH:MM:SS".
	MinTime       string
	MaxTime       string
	PreferredTime string // optional

	// Cron spec driving this venue's refresh cadence.
	Cron string

	ReservationDetails json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v Venue) Booked() bool {
	return len(v.ReservationDetails) > 0
}

func (v Venue) Validate() error {
	if v.ID <= 0 {
		return fmt.Errorf("venue id required")
	}
	if v.Name == "" {
		return fmt.Errorf("name required")
	}
	if v.PartySize < 1 {
		return fmt.Errorf("party_size must be >= 1")
	}
	if v.IntervalDays < 1 {
		return fmt.Errorf("interval_days must be >= 1")
	}
	if _, err := ParseClock(v.MinTime); err != nil {
		return fmt.Errorf("min_time: %w", err)
	}
	if _, err := ParseClock(v.MaxTime); err != nil {
		return fmt.Errorf("max_time: %w", err)
	}
	if v.PreferredTime != "" {
		if _, err := ParseClock(v.PreferredTime); err != nil {
			return fmt.Errorf("preferred_time: %w", err)
		}
	}
	if _, err := cron.ParseStandard(v.Cron); err != nil {
		return fmt.Errorf("cron: %w", err)
	}
	return nil
}

// Clock is a time of day without a date.
type Clock struct {
	Hour, Min, Sec int
}

// ParseClock accepts "HH:MM" and "HH:MM:SS".
func ParseClock(s string) (Clock, error) {
	layout := "15:04"
	if len(s) == len("15:04:05") {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid clock time %q (want HH:MM or HH:MM:SS)", s)
	}
	return Clock{Hour: t.Hour(), Min: t.Minute(), Sec: t.Second()}, nil
}

// On combines the clock with a calendar date in that date's location.
func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Min, c.Sec, 0, day.Location())
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

const venueColumns = `id,name,party_size,interval_days,min_time,max_time,preferred_time,cron_spec,reservation,created_at,updated_at`

func (r *Repo) Create(ctx context.Context, v Venue) error {
	err := r.db.Exec(ctx, `
INSERT INTO watched_venues(id,name,party_size,interval_days,min_time,max_time,preferred_time,cron_spec)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		v.ID, v.Name, v.PartySize, v.IntervalDays, v.MinTime, v.MaxTime, v.PreferredTime, v.Cron)
	if err != nil {
		return fmt.Errorf("create venue %d: %w", v.ID, err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	return r.db.Exec(ctx, `DELETE FROM watched_venues WHERE id=$1`, id)
}

func (r *Repo) List(ctx context.Context) ([]Venue, error) {
	rows, err := r.db.Query(ctx, `SELECT `+venueColumns+` FROM watched_venues ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Venue
	for rows.Next() {
		var v Venue
		var reservation []byte
		if err := rows.Scan(
			&v.ID, &v.Name, &v.PartySize, &v.IntervalDays, &v.MinTime, &v.MaxTime,
			&v.PreferredTime, &v.Cron, &reservation, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(reservation) > 0 {
			v.ReservationDetails = json.RawMessage(reservation)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SaveReservation records a successful booking for one venue.
func (r *Repo) SaveReservation(ctx context.Context, id int64, details json.RawMessage) error {
	return r.db.Exec(ctx, `UPDATE watched_venues SET reservation=$2, updated_at=now() WHERE id=$1`, id, []byte(details))
}

// SaveAll writes back the watch-list at the end of a cycle. Only the
// mutable reservation column is persisted.
func (r *Repo) SaveAll(ctx context.Context, vs []Venue) error {
	for _, v := range vs {
		if !v.Booked() {
			continue
		}
		if err := r.SaveReservation(ctx, v.ID, v.ReservationDetails); err != nil {
			return fmt.Errorf("save venue %d: %w", v.ID, err)
		}
	}
	return nil
}
