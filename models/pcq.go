package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PCQ is a post-course questionnaire response. Apart from the booking
// reference its fields are passed through to views untouched.
type PCQ struct {
	bun.BaseModel `bun:"table:pcq,alias:p"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	BookingID     int64     `bun:"bookingid,notnull" json:"bookingID"`
	Delegate      string    `bun:"delegate" json:"delegate"`
	CourseRating  *int      `bun:"course_rating" json:"courseRating,omitempty"`
	TrainerRating *int      `bun:"trainer_rating" json:"trainerRating,omitempty"`
	Comments      *string   `bun:"comments" json:"comments,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}
