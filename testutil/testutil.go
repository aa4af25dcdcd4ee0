// Package testutil opens throwaway stores for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/SkillsGen/trainers/db"
	"github.com/SkillsGen/trainers/query"
)

// OpenEmptyDB opens a private in-memory SQLite database with no tables.
// The database is closed when the test ends.
func OpenEmptyDB(t *testing.T) *bun.DB {
	t.Helper()
	d, err := db.Open("sqlite://:memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// OpenDB is OpenEmptyDB with the application schema applied.
func OpenDB(t *testing.T) *bun.DB {
	t.Helper()
	d := OpenEmptyDB(t)
	if err := db.CreateTables(context.Background(), d); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	return d
}

// Exec runs statement through ex and fails the test on error.
func Exec(t *testing.T, ex query.Runner, statement string, params query.Params) query.Result {
	t.Helper()
	res, err := ex.Execute(context.Background(), statement, params)
	if err != nil {
		t.Fatalf("exec %q: %v", statement, err)
	}
	return res
}

// Fixtures inserts reference rows and returns their generated ids.
type Fixtures struct {
	t  *testing.T
	ex query.Runner
}

// NewFixtures returns a fixture builder writing through ex.
func NewFixtures(t *testing.T, ex query.Runner) *Fixtures {
	return &Fixtures{t: t, ex: ex}
}

// Trainer inserts a trainer with the given password hash.
func (f *Fixtures) Trainer(username, hash string) int64 {
	f.t.Helper()
	return f.id(Exec(f.t, f.ex, "INSERT INTO trainers (username, hash) VALUES (:username, :hash)",
		query.Params{"username": username, "hash": hash}))
}

// Course inserts a course.
func (f *Fixtures) Course(name string) int64 {
	f.t.Helper()
	return f.id(Exec(f.t, f.ex, "INSERT INTO courses (name) VALUES (:name)", query.Params{"name": name}))
}

// Booking inserts a booking for trainer on course at date.
func (f *Fixtures) Booking(trainer, course int64, date time.Time, location string) int64 {
	f.t.Helper()
	return f.id(Exec(f.t, f.ex, `INSERT INTO bookings (date, notes, private, location, delcode, course, trainer)
		VALUES (:date, :notes, :private, :location, :delcode, :course, :trainer)`,
		query.Params{
			"date":     date,
			"notes":    "Bring **laptops**",
			"private":  false,
			"location": location,
			"delcode":  "D-" + location,
			"course":   course,
			"trainer":  trainer,
		}))
}

// Delegates inserts n delegates on booking.
func (f *Fixtures) Delegates(booking int64, n int) {
	f.t.Helper()
	for i := 0; i < n; i++ {
		Exec(f.t, f.ex, "INSERT INTO delegates (bookingid, name) VALUES (:booking, :name)",
			query.Params{"booking": booking, "name": "delegate"})
	}
}

// PCQ inserts one questionnaire response on booking.
func (f *Fixtures) PCQ(booking int64, delegate string, rating int) int64 {
	f.t.Helper()
	return f.id(Exec(f.t, f.ex, `INSERT INTO pcq (bookingid, delegate, course_rating, trainer_rating, comments)
		VALUES (:booking, :delegate, :rating, :rating, :comments)`,
		query.Params{"booking": booking, "delegate": delegate, "rating": rating, "comments": "great"}))
}

func (f *Fixtures) id(res query.Result) int64 {
	f.t.Helper()
	if res.Kind != query.KindID {
		f.t.Fatalf("expected generated id, got %s result", res.Kind)
	}
	return res.ID
}
