package domain

import (
	"time"

	apperrors "github.com/qepting91/review-scraper/internal/errors"
)

const (
	// DefaultTargetCount is how many reviews a run collects when the caller does not say.
	DefaultTargetCount = 5000

	// DateLayout is the accepted format for date window bounds.
	DateLayout = "2006-01-02"
)

// Query is the immutable input to one collection run.
type Query struct {
	AppID       int
	Franchise   string
	Game        string
	TargetCount int
	StartDate   *time.Time
	EndDate     *time.Time
}

// ParseDate parses a yyyy-mm-dd date as a UTC day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperrors.NewInvalidInputError("date %q is not in yyyy-mm-dd format", s)
	}
	return t.UTC(), nil
}

// Validate rejects queries that must never reach the network.
func (q Query) Validate() error {
	if q.AppID <= 0 {
		return apperrors.NewInvalidInputError("app id must be a positive integer, got %d", q.AppID)
	}
	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(*q.EndDate) {
		return apperrors.NewInvalidInputError("start date %s is after end date %s",
			q.StartDate.Format(DateLayout), q.EndDate.Format(DateLayout))
	}
	return nil
}

// HasWindow reports whether either date bound is set.
func (q Query) HasWindow() bool {
	return q.StartDate != nil || q.EndDate != nil
}

// BeforeWindow reports whether ts is strictly before the start day.
func (q Query) BeforeWindow(ts time.Time) bool {
	return q.StartDate != nil && ts.Before(dayStart(*q.StartDate))
}

// AfterWindow reports whether ts is strictly after the end day.
func (q Query) AfterWindow(ts time.Time) bool {
	return q.EndDate != nil && !ts.Before(dayStart(*q.EndDate).AddDate(0, 0, 1))
}

// InWindow reports whether ts falls inside the inclusive date window.
// A query without bounds accepts everything.
func (q Query) InWindow(ts time.Time) bool {
	return !q.BeforeWindow(ts) && !q.AfterWindow(ts)
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
