// Package schedule builds a trainer's upcoming bookings and the
// questionnaire view of a single booking.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SkillsGen/trainers/query"
)

// ErrBookingNotFound is returned by Questionnaires for an unknown booking id.
var ErrBookingNotFound = errors.New("schedule: booking not found")

// Booking is one row of the upcoming-bookings query.
type Booking struct {
	ID         int64     `bun:"id" json:"id"`
	Date       time.Time `bun:"date" json:"date"`
	Notes      string    `bun:"notes" json:"notes"`
	Private    bool      `bun:"private" json:"private"`
	Location   string    `bun:"location" json:"location"`
	DelCode    string    `bun:"delcode" json:"delcode"`
	CourseName string    `bun:"coursename" json:"courseName"`
}

// EnrichedBooking is a Booking plus its delegate count and whether any
// questionnaire has been returned for it.
type EnrichedBooking struct {
	Booking
	DelegateCount     int64 `bun:"delcount" json:"delegateCount"`
	HasQuestionnaires bool  `bun:"has_pcqs" json:"hasQuestionnaires"`
}

// BookingHeader identifies a booking on the questionnaire view.
type BookingHeader struct {
	Date   time.Time `bun:"date" json:"date"`
	Course string    `bun:"course" json:"course"`
}

// BookingPCQs is a booking with its questionnaire responses. Response
// columns are whatever the pcq table holds, in table order.
type BookingPCQs struct {
	Booking   BookingHeader `json:"booking"`
	Responses []query.Row   `json:"responses"`
}

// Service reads schedules through a query.Runner.
type Service struct {
	runner query.Runner
	now    func() time.Time
	loc    *time.Location
	batch  bool
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone that decides where "today" ends.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithBatch computes counts in the listing statement instead of two extra
// round trips per booking.
func WithBatch(batch bool) Option {
	return func(s *Service) { s.batch = batch }
}

// New returns a Service.
func New(runner query.Runner, opts ...Option) *Service {
	s := &Service{runner: runner, now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const upcomingSQL = `
SELECT bookings.id, bookings.date, bookings.notes, bookings.private, bookings.location,
	bookings.delcode, courses.name AS coursename
FROM bookings
INNER JOIN courses ON bookings.course = courses.id
WHERE bookings.trainer = :trainer AND bookings.date >= :from
ORDER BY bookings.date, bookings.id`

const upcomingBatchSQL = `
SELECT bookings.id, bookings.date, bookings.notes, bookings.private, bookings.location,
	bookings.delcode, courses.name AS coursename,
	(SELECT COUNT(delegates.id) FROM delegates WHERE delegates.bookingid = bookings.id) AS delcount,
	EXISTS (SELECT 1 FROM pcq WHERE pcq.bookingid = bookings.id) AS has_pcqs
FROM bookings
INNER JOIN courses ON bookings.course = courses.id
WHERE bookings.trainer = :trainer AND bookings.date >= :from
ORDER BY bookings.date, bookings.id`

// ListUpcoming returns the trainer's bookings dated after today, earliest
// first, each with its delegate count and questionnaire flag.
func (s *Service) ListUpcoming(ctx context.Context, trainerID int64) ([]EnrichedBooking, error) {
	params := query.Params{"trainer": trainerID, "from": s.tomorrow()}

	if s.batch {
		out := make([]EnrichedBooking, 0)
		if err := s.runner.Select(ctx, &out, upcomingBatchSQL, params); err != nil {
			return nil, fmt.Errorf("list upcoming: %w", err)
		}
		return out, nil
	}

	var bookings []Booking
	if err := s.runner.Select(ctx, &bookings, upcomingSQL, params); err != nil {
		return nil, fmt.Errorf("list upcoming: %w", err)
	}

	out := make([]EnrichedBooking, 0, len(bookings))
	for _, b := range bookings {
		eb, err := s.enrich(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, eb)
	}
	return out, nil
}

type countRow struct {
	Count int64 `bun:"delcount"`
}

type existsRow struct {
	Exists bool `bun:"has_pcqs"`
}

// enrich runs the two per-booking queries. A booking deleted in between
// simply counts zero delegates and no questionnaires.
func (s *Service) enrich(ctx context.Context, b Booking) (EnrichedBooking, error) {
	params := query.Params{"booking": b.ID}

	var counts []countRow
	if err := s.runner.Select(ctx, &counts,
		"SELECT COUNT(id) AS delcount FROM delegates WHERE bookingid = :booking", params); err != nil {
		return EnrichedBooking{}, fmt.Errorf("count delegates for booking %d: %w", b.ID, err)
	}

	var exists []existsRow
	if err := s.runner.Select(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM pcq WHERE bookingid = :booking) AS has_pcqs", params); err != nil {
		return EnrichedBooking{}, fmt.Errorf("check questionnaires for booking %d: %w", b.ID, err)
	}

	eb := EnrichedBooking{Booking: b}
	if len(counts) > 0 {
		eb.DelegateCount = counts[0].Count
	}
	if len(exists) > 0 {
		eb.HasQuestionnaires = exists[0].Exists
	}
	return eb, nil
}

// tomorrow is midnight at the start of the next calendar day in s.loc.
// Bookings at or after it are strictly later than today.
func (s *Service) tomorrow() time.Time {
	now := s.now().In(s.loc)
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, s.loc).UTC()
}

const bookingHeaderSQL = `
SELECT bookings.date, courses.name AS course
FROM bookings
INNER JOIN courses ON bookings.course = courses.id
WHERE bookings.id = :booking`

// Questionnaires returns the booking header and every PCQ filed against it.
func (s *Service) Questionnaires(ctx context.Context, bookingID int64) (BookingPCQs, error) {
	params := query.Params{"booking": bookingID}

	var headers []BookingHeader
	if err := s.runner.Select(ctx, &headers, bookingHeaderSQL, params); err != nil {
		return BookingPCQs{}, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	if len(headers) == 0 {
		return BookingPCQs{}, ErrBookingNotFound
	}

	res, err := s.runner.Execute(ctx, "SELECT * FROM pcq WHERE bookingid = :booking ORDER BY id", params)
	if err != nil {
		return BookingPCQs{}, fmt.Errorf("load questionnaires for booking %d: %w", bookingID, err)
	}

	return BookingPCQs{Booking: headers[0], Responses: res.Rows}, nil
}
