package scheduling

import (
	"testing"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
)

func TestCheckWorkingHours(t *testing.T) {
	settings := domain.DefaultSettings(testOrg)
	settings.WorkingHours[6] = domain.TimeWindow{Open: domain.NewClock(10, 0), Close: domain.NewClock(14, 0)}

	tests := []struct {
		name    string
		date    string
		start   string
		end     string
		wantErr bool
	}{
		{name: "inside", date: "2024-03-04", start: "09:00", end: "18:00"},
		{name: "touches close", date: "2024-03-04", start: "17:00", end: "18:00"},
		{name: "starts early", date: "2024-03-04", start: "08:59", end: "10:00", wantErr: true},
		{name: "ends late", date: "2024-03-04", start: "17:00", end: "18:01", wantErr: true},
		{name: "start equals end", date: "2024-03-04", start: "10:00", end: "10:00", wantErr: true},
		{name: "short saturday", date: "2024-03-09", start: "14:00", end: "15:00", wantErr: true},
		{name: "saturday inside", date: "2024-03-09", start: "10:00", end: "14:00"},
		{name: "sunday hidden", date: "2024-03-10", start: "10:00", end: "11:00", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckWorkingHours(settings, domain.MustParseDate(tt.date), domain.MustParseClock(tt.start), domain.MustParseClock(tt.end))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				if err.Kind != domain.KindWorkingHours || err.Field == "" {
					t.Fatalf("err = %+v, want field-level working hours error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckWorkingHours_VisibleDayWithoutHours(t *testing.T) {
	settings := domain.DefaultSettings(testOrg)
	settings.VisibleWeekDays = append(settings.VisibleWeekDays, 7)
	err := CheckWorkingHours(settings, domain.MustParseDate("2024-03-10"), domain.NewClock(10, 0), domain.NewClock(11, 0))
	if err == nil || err.Kind != domain.KindWorkingHours {
		t.Fatalf("err = %v, want working hours violation", err)
	}
}

func TestBreakIndex(t *testing.T) {
	mk := func(day int16, start, end string, active bool) domain.SpecialistBreak {
		return domain.SpecialistBreak{
			DayOfWeek: day,
			BreakType: domain.BreakRest,
			StartTime: domain.MustParseClock(start),
			EndTime:   domain.MustParseClock(end),
			IsActive:  active,
		}
	}
	idx := NewBreakIndex([]domain.SpecialistBreak{
		mk(1, "15:00", "15:15", true),
		mk(1, "12:00", "13:00", true),
		mk(1, "10:00", "10:30", false),
		mk(2, "12:00", "13:00", true),
	})

	if got := len(idx[1]); got != 2 {
		t.Fatalf("monday breaks = %d, want 2 active", got)
	}
	if !idx[1][0].StartTime.Before(idx[1][1].StartTime) {
		t.Fatalf("breaks not ordered by start time")
	}

	tests := []struct {
		name  string
		day   int16
		start string
		end   string
		want  string
	}{
		{name: "lunch", day: 1, start: "12:30", end: "13:30", want: "12:00"},
		{name: "afternoon", day: 1, start: "14:00", end: "15:05", want: "15:00"},
		{name: "adjacent before", day: 1, start: "11:00", end: "12:00"},
		{name: "adjacent after", day: 1, start: "13:00", end: "14:00"},
		{name: "inactive ignored", day: 1, start: "10:00", end: "10:30"},
		{name: "other weekday", day: 3, start: "12:00", end: "13:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := idx.Overlapping(tt.day, domain.MustParseClock(tt.start), domain.MustParseClock(tt.end))
			if tt.want == "" {
				if ok {
					t.Fatalf("unexpected overlap with %s-%s", b.StartTime, b.EndTime)
				}
				return
			}
			if !ok || b.StartTime.String() != tt.want {
				t.Fatalf("overlap = %v %s, want break at %s", ok, b.StartTime, tt.want)
			}
		})
	}
}

func TestFindSlotConflict(t *testing.T) {
	self := row(7, "2024-03-04", "09:00", "10:00", domain.StatusConfirmed)
	cancelled := row(7, "2024-03-04", "10:00", "11:00", domain.StatusCancelled)
	other := row(7, "2024-03-04", "11:00", "12:00", domain.StatusPending)
	existing := []domain.AppointmentSchedule{self, cancelled, other}

	exclude := map[uuid.UUID]struct{}{self.ID: {}}
	if _, ok := FindSlotConflict(existing, domain.NewClock(9, 0), domain.NewClock(11, 0), exclude); ok {
		t.Fatalf("excluded and cancelled rows must not conflict")
	}
	got, ok := FindSlotConflict(existing, domain.NewClock(9, 0), domain.NewClock(11, 1), exclude)
	if !ok || got.ID != other.ID {
		t.Fatalf("conflict = %v %v, want the pending row", ok, got.ID)
	}
	if _, ok := FindSlotConflict(existing, domain.NewClock(9, 30), domain.NewClock(9, 45), nil); !ok {
		t.Fatalf("expected conflict with unexcluded row")
	}
}

func TestCheckHistoryLock(t *testing.T) {
	today := domain.MustParseDate("2024-04-20")
	dates := func(ds ...string) []domain.Date {
		out := make([]domain.Date, 0, len(ds))
		for _, d := range ds {
			out = append(out, domain.MustParseDate(d))
		}
		return out
	}

	tests := []struct {
		name     string
		req      domain.Requester
		dates    []domain.Date
		lockDays int
		want     string
	}{
		{name: "inside window", dates: dates("2024-04-13", "2024-04-30"), lockDays: 7},
		{name: "earliest offender", dates: dates("2024-04-10", "2024-04-02", "2024-04-25"), lockDays: 7, want: "2024-04-02"},
		{name: "override", req: domain.Requester{CanOverrideHistoryLock: true}, dates: dates("2020-01-01"), lockDays: 7},
		{name: "disabled", dates: dates("2020-01-01"), lockDays: 0},
		{name: "no dates", lockDays: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckHistoryLock(tt.req, tt.dates, tt.lockDays, today)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			dErr := requireKind(t, err, domain.KindHistoryLock)
			if dErr.Date.String() != tt.want {
				t.Fatalf("date = %s, want %s", dErr.Date, tt.want)
			}
		})
	}
}
