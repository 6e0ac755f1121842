package service

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWindows(t *testing.T) {
	tests := []struct {
		name    string
		windows []*model.Availability
		wantErr bool
	}{
		{name: "empty", windows: nil},
		{name: "whole day", windows: []*model.Availability{{Weekday: 0, StartMinute: 0, EndMinute: 1440}}},
		{
			name: "touching windows",
			windows: []*model.Availability{
				{Weekday: 1, StartMinute: 600, EndMinute: 720},
				{Weekday: 1, StartMinute: 540, EndMinute: 600},
			},
		},
		{
			name: "same hours on different days",
			windows: []*model.Availability{
				{Weekday: 1, StartMinute: 540, EndMinute: 600},
				{Weekday: 2, StartMinute: 540, EndMinute: 600},
			},
		},
		{
			name: "overlapping windows",
			windows: []*model.Availability{
				{Weekday: 3, StartMinute: 540, EndMinute: 660},
				{Weekday: 3, StartMinute: 600, EndMinute: 720},
			},
			wantErr: true,
		},
		{name: "bad weekday", windows: []*model.Availability{{Weekday: 7, StartMinute: 0, EndMinute: 60}}, wantErr: true},
		{name: "empty window", windows: []*model.Availability{{Weekday: 1, StartMinute: 60, EndMinute: 60}}, wantErr: true},
		{name: "past midnight", windows: []*model.Availability{{Weekday: 1, StartMinute: 1400, EndMinute: 1441}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindows(tt.windows)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCheckAvailability(t *testing.T) {
	windows := []*model.Availability{
		{Weekday: int(time.Tuesday), StartMinute: 9 * 60, EndMinute: 12 * 60},
		{Weekday: int(time.Tuesday), StartMinute: 12 * 60, EndMinute: 14 * 60},
		{Weekday: int(time.Wednesday), StartMinute: 22 * 60, EndMinute: model.MinutesPerDay},
	}

	tests := []struct {
		name       string
		start, end time.Time
		loc        *time.Location
		wantErr    error
	}{
		{name: "inside window", start: tuesday(9, 0), end: tuesday(12, 0), loc: time.UTC},
		{name: "spans two windows", start: tuesday(11, 0), end: tuesday(13, 0), loc: time.UTC, wantErr: ErrOutsideAvailability},
		{name: "before window", start: tuesday(8, 30), end: tuesday(9, 30), loc: time.UTC, wantErr: ErrOutsideAvailability},
		{
			name:  "ends at midnight",
			start: time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			loc:   time.UTC,
		},
		{
			name:    "crosses midnight",
			start:   time.Date(2026, 3, 4, 23, 30, 0, 0, time.UTC),
			end:     time.Date(2026, 3, 5, 0, 30, 0, 0, time.UTC),
			loc:     time.UTC,
			wantErr: ErrOutsideAvailability,
		},
		{
			// 07:00 UTC = 09:00 во вторник в UTC+2
			name:  "evaluated in location",
			start: tuesday(7, 0),
			end:   tuesday(8, 0),
			loc:   time.FixedZone("UTC+2", 2*60*60),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAvailability(tt.start, tt.end, tt.loc, windows, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCheckAvailability_BlockedDate(t *testing.T) {
	windows := []*model.Availability{{Weekday: int(time.Tuesday), StartMinute: 0, EndMinute: model.MinutesPerDay}}
	blocked := []*model.BlockedDate{{Date: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)}}

	err := CheckAvailability(tuesday(10, 0), tuesday(11, 0), time.UTC, windows, blocked)
	assert.ErrorIs(t, err, ErrDateBlocked)
}

func TestFindOverlap(t *testing.T) {
	sessions := []*model.Session{
		{ID: 1, StartTime: tuesday(10, 0), EndTime: tuesday(11, 0), Status: model.SessionStatusConfirmed},
		{ID: 2, StartTime: tuesday(12, 0), EndTime: tuesday(13, 0), Status: model.SessionStatusCancelled},
		{ID: 3, StartTime: tuesday(14, 0), EndTime: tuesday(15, 0), Status: model.SessionStatusCompleted},
	}

	tests := []struct {
		name       string
		start, end time.Time
		excludeID  int64
		wantID     int64
	}{
		{name: "overlap", start: tuesday(10, 30), end: tuesday(11, 30), wantID: 1},
		{name: "touching end", start: tuesday(11, 0), end: tuesday(12, 0)},
		{name: "touching start", start: tuesday(9, 0), end: tuesday(10, 0)},
		{name: "excluded", start: tuesday(10, 0), end: tuesday(11, 0), excludeID: 1},
		{name: "cancelled ignored", start: tuesday(12, 0), end: tuesday(13, 0)},
		{name: "completed ignored", start: tuesday(14, 0), end: tuesday(15, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindOverlap(sessions, tt.start, tt.end, tt.excludeID)
			if tt.wantID == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestOpenSlots(t *testing.T) {
	windows := []*model.Availability{
		{Weekday: int(time.Tuesday), StartMinute: 9 * 60, EndMinute: 12 * 60},
		{Weekday: int(time.Monday), StartMinute: 9 * 60, EndMinute: 12 * 60},
	}
	sessions := []*model.Session{
		{ID: 1, StartTime: tuesday(10, 0), EndTime: tuesday(10, 30), Status: model.SessionStatusPending},
	}

	slots := OpenSlots(tuesday(0, 0), time.Hour, fixedNow, time.UTC, windows, nil, sessions)

	assert.Equal(t, []time.Time{tuesday(9, 0), tuesday(10, 30), tuesday(11, 0)}, slots)
}

func TestOpenSlots_SkipsPastAndBlocked(t *testing.T) {
	windows := []*model.Availability{{Weekday: int(time.Tuesday), StartMinute: 9 * 60, EndMinute: 11 * 60}}

	slots := OpenSlots(tuesday(0, 0), 30*time.Minute, tuesday(9, 45), time.UTC, windows, nil, nil)
	assert.Equal(t, []time.Time{tuesday(10, 0), tuesday(10, 30)}, slots)

	blocked := []*model.BlockedDate{{Date: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)}}
	slots = OpenSlots(tuesday(0, 0), 30*time.Minute, fixedNow, time.UTC, windows, blocked, nil)
	assert.Empty(t, slots)
}

func TestAvailability_DaylightSavingDay(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 2025-03-30: часы переводятся с 02:00 на 03:00
	windows := []*model.Availability{{Weekday: int(time.Sunday), StartMinute: 9 * 60, EndMinute: 10 * 60}}
	at := func(hour, minute int) time.Time {
		return time.Date(2025, 3, 30, hour, minute, 0, 0, berlin)
	}
	now := time.Date(2025, 3, 29, 12, 0, 0, 0, berlin)

	slots := OpenSlots(at(0, 0), time.Hour, now, berlin, windows, nil, nil)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Equal(at(9, 0)), "got %s", slots[0].In(berlin))

	assert.NoError(t, CheckAvailability(at(9, 0), at(10, 0), berlin, windows, nil))
	assert.ErrorIs(t, CheckAvailability(at(10, 0), at(11, 0), berlin, windows, nil), ErrOutsideAvailability)

	night := []*model.Availability{{Weekday: int(time.Sunday), StartMinute: 0, EndMinute: 4 * 60}}
	slots = OpenSlots(at(0, 0), 30*time.Minute, now, berlin, night, nil, nil)
	for _, slot := range slots {
		assert.NotEqual(t, 2, slot.In(berlin).Hour(), "02:xx does not exist on this day")
	}
	assert.Len(t, slots, 6)
}

func TestAvailabilityService(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	avail := newFakeAvailabilityRepo()
	sessions := newFakeSessionRepo()
	tutor := users.addTutor("Math")
	student := users.addStudent()

	svc := NewAvailabilityService(fakeTx{}, users, avail, sessions, time.UTC, testLogger())
	svc.now = func() time.Time { return fixedNow }

	_, err := svc.SetWeekly(ctx, student.ID, nil)
	assert.ErrorIs(t, err, ErrNotATutor)

	_, err = svc.SetWeekly(ctx, tutor.ID, []*model.Availability{
		{Weekday: 2, StartMinute: 540, EndMinute: 600},
		{Weekday: 2, StartMinute: 570, EndMinute: 660},
	})
	assert.ErrorIs(t, err, ErrValidation)

	windows, err := svc.SetWeekly(ctx, tutor.ID, []*model.Availability{{Weekday: 2, StartMinute: 540, EndMinute: 660}})
	require.NoError(t, err)
	assert.Equal(t, tutor.ID, windows[0].TutorID)

	blocked, err := svc.BlockDate(ctx, tutor.ID, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC), " vacation ")
	require.NoError(t, err)
	assert.Equal(t, "vacation", blocked.Reason)

	_, err = svc.BlockDate(ctx, tutor.ID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), "")
	assert.ErrorIs(t, err, ErrDateAlreadyBlocked)

	_, err = svc.BlockDate(ctx, tutor.ID, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "")
	assert.ErrorIs(t, err, ErrValidation)

	schedule, err := svc.GetSchedule(ctx, tutor.ID)
	require.NoError(t, err)
	assert.Len(t, schedule.Windows, 1)
	assert.Len(t, schedule.BlockedDates, 1)

	slots, err := svc.OpenSlots(ctx, tutor.ID, tuesday(0, 0), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{tuesday(9, 0), tuesday(9, 30), tuesday(10, 0)}, slots)

	slots, err = svc.OpenSlots(ctx, tutor.ID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, slots)

	_, err = svc.OpenSlots(ctx, tutor.ID, tuesday(0, 0), 5*time.Minute)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.UnblockDate(ctx, tutor.ID, blocked.ID))
	assert.ErrorIs(t, svc.UnblockDate(ctx, tutor.ID, blocked.ID), ErrBlockedDateNotFound)
}
