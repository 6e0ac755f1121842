package service

import (
	"sort"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
)

const (
	MinSessionDuration = 15 * time.Minute
	MaxSessionDuration = 8 * time.Hour
	slotStep           = 30 * time.Minute
)

// ValidateSessionTimes проверяет границы и длительность сессии
func ValidateSessionTimes(start, end, now time.Time) error {
	if !end.After(start) {
		return invalid("end time must be after start time")
	}

	duration := end.Sub(start)
	if duration < MinSessionDuration || duration > MaxSessionDuration {
		return invalid("session must last between %s and %s", MinSessionDuration, MaxSessionDuration)
	}

	if !start.After(now) {
		return invalid("session must start in the future")
	}

	return nil
}

// ValidateWindows проверяет недельные окна: диапазоны и отсутствие пересечений в пределах дня
func ValidateWindows(windows []*model.Availability) error {
	byDay := make(map[int][]*model.Availability)
	for _, w := range windows {
		if w.Weekday < 0 || w.Weekday > 6 {
			return invalid("weekday must be between 0 and 6")
		}
		if w.StartMinute < 0 || w.EndMinute > model.MinutesPerDay || w.StartMinute >= w.EndMinute {
			return invalid("window must satisfy 0 <= start_minute < end_minute <= %d", model.MinutesPerDay)
		}
		byDay[w.Weekday] = append(byDay[w.Weekday], w)
	}

	for _, day := range byDay {
		sort.Slice(day, func(i, j int) bool { return day[i].StartMinute < day[j].StartMinute })
		for i := 1; i < len(day); i++ {
			if day[i].StartMinute < day[i-1].EndMinute {
				return invalid("availability windows overlap on weekday %d", day[i].Weekday)
			}
		}
	}

	return nil
}

// dayMinutes переводит [start, end) в минуты по настенным часам дня start в loc.
// ok = false, если интервал переходит через полночь.
func dayMinutes(start, end time.Time, loc *time.Location) (weekday time.Weekday, startMin, endMin int, ok bool) {
	local := start.In(loc)
	localEnd := end.In(loc)

	startMin = local.Hour()*60 + local.Minute()
	endMin = localEnd.Hour()*60 + localEnd.Minute()
	if localEnd.Second() > 0 || localEnd.Nanosecond() > 0 {
		endMin++
	}

	y, m, d := local.Date()
	ey, em, ed := localEnd.Date()
	switch {
	case y == ey && m == em && d == ed:
		ok = true
	case localEnd.Equal(time.Date(y, m, d+1, 0, 0, 0, 0, loc)):
		endMin, ok = model.MinutesPerDay, true
	}

	return local.Weekday(), startMin, endMin, ok && endMin <= model.MinutesPerDay
}

// CheckAvailability проверяет, что [start, end) целиком лежит в одном недельном окне
// тьютора и не попадает на заблокированный день
func CheckAvailability(start, end time.Time, loc *time.Location, windows []*model.Availability, blocked []*model.BlockedDate) error {
	localStart := start.In(loc)
	for _, b := range blocked {
		if b.SameDay(localStart) {
			return ErrDateBlocked
		}
	}

	weekday, startMin, endMin, ok := dayMinutes(start, end, loc)
	if !ok {
		return ErrOutsideAvailability
	}

	for _, w := range windows {
		if w.Contains(weekday, startMin, endMin) {
			return nil
		}
	}

	return ErrOutsideAvailability
}

// FindOverlap возвращает первую активную сессию, пересекающуюся с [start, end)
func FindOverlap(sessions []*model.Session, start, end time.Time, excludeID int64) *model.Session {
	for _, s := range sessions {
		if s.ID == excludeID || !s.IsActive() {
			continue
		}
		if s.Overlaps(start, end) {
			return s
		}
	}
	return nil
}

// OpenSlots перечисляет начала свободных слотов длительностью duration в день date (в loc)
// с шагом 30 минут
func OpenSlots(date time.Time, duration time.Duration, now time.Time, loc *time.Location,
	windows []*model.Availability, blocked []*model.BlockedDate, sessions []*model.Session) []time.Time {

	local := date.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	slots := []time.Time{}
	for _, b := range blocked {
		if b.SameDay(midnight) {
			return slots
		}
	}

	weekday := midnight.Weekday()
	y, m, d := midnight.Date()
	for _, w := range windows {
		if w.Weekday != int(weekday) {
			continue
		}

		for minute := w.StartMinute; minute < w.EndMinute; minute += int(slotStep / time.Minute) {
			start := time.Date(y, m, d, minute/60, minute%60, 0, 0, loc)
			end := start.Add(duration)

			// несуществующее время при переводе часов нормализуется в другой час
			_, startMin, endMin, ok := dayMinutes(start, end, loc)
			if !ok || startMin != minute || !w.Contains(weekday, startMin, endMin) {
				continue
			}
			if !start.After(now) {
				continue
			}
			if FindOverlap(sessions, start, end, 0) != nil {
				continue
			}
			slots = append(slots, start)
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots
}
