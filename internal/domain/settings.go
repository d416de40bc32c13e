package domain

import (
	"context"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

type TimeWindow struct {
	Open  Clock `json:"open"`
	Close Clock `json:"close"`
}

// Contains reports whether [start,end) lies fully inside the window.
func (w TimeWindow) Contains(start, end Clock) bool {
	return !start.Before(w.Open) && !end.After(w.Close)
}

type OrganizationSettings struct {
	bun.BaseModel `bun:"table:organization_settings,alias:os"`

	OrganizationID  string               `bun:"organization_id,pk" json:"organizationId"`
	WorkingHours    map[int16]TimeWindow `bun:"working_hours,type:jsonb,notnull" json:"workingHours"`
	VisibleWeekDays []int16              `bun:"visible_week_days,array,notnull" json:"visibleWeekDays"`
	HistoryLockDays int                  `bun:"history_lock_days,notnull" json:"historyLockDays"`
	UpdatedAt       time.Time            `bun:"updated_at,notnull" json:"updatedAt"`
}

func (s *OrganizationSettings) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		s.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// DefaultSettings is what an organization schedules with before it saves its own:
// Monday to Saturday, 09:00 to 18:00, no history lock.
func DefaultSettings(organizationID string) OrganizationSettings {
	hours := make(map[int16]TimeWindow, 6)
	days := []int16{1, 2, 3, 4, 5, 6}
	for _, d := range days {
		hours[d] = TimeWindow{Open: NewClock(9, 0), Close: NewClock(18, 0)}
	}
	return OrganizationSettings{
		OrganizationID:  organizationID,
		WorkingHours:    hours,
		VisibleWeekDays: days,
	}
}

func (s OrganizationSettings) IsVisibleDay(weekday int16) bool {
	for _, d := range s.VisibleWeekDays {
		if d == weekday {
			return true
		}
	}
	return false
}

// NormalizeWeekdays validates, deduplicates and sorts ISO weekday numbers.
func NormalizeWeekdays(days []int16) ([]int16, bool) {
	seen := make(map[int16]struct{}, len(days))
	out := make([]int16, 0, len(days))
	for _, d := range days {
		if d < 1 || d > 7 {
			return nil, false
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, true
}
