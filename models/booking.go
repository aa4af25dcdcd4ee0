package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Booking is a scheduled training engagement for one trainer and one course.
type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Date      time.Time `bun:"date,notnull" json:"date"`
	Notes     string    `bun:"notes" json:"notes"`
	Private   bool      `bun:"private,notnull" json:"private"`
	Location  string    `bun:"location" json:"location"`
	DelCode   string    `bun:"delcode" json:"delcode"`
	CourseID  int64     `bun:"course,notnull" json:"courseID"`
	TrainerID int64     `bun:"trainer,notnull" json:"trainerID"`
}

// Delegate is an attendee registered against a booking.
type Delegate struct {
	bun.BaseModel `bun:"table:delegates,alias:d"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	BookingID int64  `bun:"bookingid,notnull" json:"bookingID"`
	Name      string `bun:"name" json:"name"`
	Email     string `bun:"email" json:"email"`
}
