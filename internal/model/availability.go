package model

import "time"

const MinutesPerDay = 24 * 60

// Availability is a weekly window in which a tutor accepts sessions.
// Minutes are counted from midnight in the application timezone.
type Availability struct {
	ID          int64 `json:"id"`
	TutorID     int64 `json:"tutor_id"`
	Weekday     int   `json:"weekday"`      // 0 = Sunday, 6 = Saturday
	StartMinute int   `json:"start_minute"` // 0-1439
	EndMinute   int   `json:"end_minute"`   // 1-1440
}

// Contains reports whether [start, end) minutes of the same day fit in the window
func (a *Availability) Contains(weekday time.Weekday, startMinute, endMinute int) bool {
	return a.Weekday == int(weekday) && a.StartMinute <= startMinute && endMinute <= a.EndMinute
}

// BlockedDate is a whole day on which a tutor takes no sessions
type BlockedDate struct {
	ID      int64     `json:"id"`
	TutorID int64     `json:"tutor_id"`
	Date    time.Time `json:"date"`
	Reason  string    `json:"reason"`
}

// SameDay compares calendar dates in t's location
func (b *BlockedDate) SameDay(t time.Time) bool {
	y1, m1, d1 := b.Date.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
