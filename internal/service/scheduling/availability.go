package scheduling

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

// CheckWorkingHours verifies that [start,end) on date lies inside the
// organization's configured hours for that weekday.
func CheckWorkingHours(settings domain.OrganizationSettings, date domain.Date, start, end domain.Clock) *domain.Error {
	if !start.Before(end) {
		return workingHoursError("startTime", date, "start time %s must be before end time %s", start, end)
	}
	wd := date.ISOWeekday()
	if !settings.IsVisibleDay(wd) {
		return workingHoursError("appointmentDate", date, "the organization does not schedule on %s (%s)", weekdayName(wd), date)
	}
	window, ok := settings.WorkingHours[wd]
	if !ok {
		return workingHoursError("appointmentDate", date, "no working hours configured for %s", weekdayName(wd))
	}
	if !window.Contains(start, end) {
		return workingHoursError("startTime", date, "%s-%s is outside working hours %s-%s on %s", start, end, window.Open, window.Close, weekdayName(wd))
	}
	return nil
}

// BreakIndex maps ISO weekday to that day's active breaks ordered by start time.
type BreakIndex map[int16][]domain.SpecialistBreak

func NewBreakIndex(breaks []domain.SpecialistBreak) BreakIndex {
	idx := make(BreakIndex)
	for _, b := range breaks {
		if !b.IsActive {
			continue
		}
		idx[b.DayOfWeek] = append(idx[b.DayOfWeek], b)
	}
	for wd := range idx {
		day := idx[wd]
		sort.Slice(day, func(i, j int) bool { return day[i].StartTime.Before(day[j].StartTime) })
	}
	return idx
}

// Overlapping returns the first break on weekday that intersects [start,end).
func (idx BreakIndex) Overlapping(weekday int16, start, end domain.Clock) (domain.SpecialistBreak, bool) {
	for _, b := range idx[weekday] {
		if !b.StartTime.Before(end) {
			break
		}
		if domain.Overlaps(start, end, b.StartTime, b.EndTime) {
			return b, true
		}
	}
	return domain.SpecialistBreak{}, false
}

// FindSlotConflict returns the first active row in existing that intersects
// [start,end), ignoring rows whose id is in exclude.
func FindSlotConflict(existing []domain.AppointmentSchedule, start, end domain.Clock, exclude map[uuid.UUID]struct{}) (domain.AppointmentSchedule, bool) {
	for _, e := range existing {
		if _, skip := exclude[e.ID]; skip {
			continue
		}
		if !e.Status.Active() {
			continue
		}
		if domain.Overlaps(start, end, e.StartTime, e.EndTime) {
			return e, true
		}
	}
	return domain.AppointmentSchedule{}, false
}

// validator runs the three availability checks inside one transaction. Break
// lookups are cached per specialist for the life of the transaction.
type validator struct {
	tx       store.ScheduleTx
	settings domain.OrganizationSettings
	breaks   map[int64]BreakIndex
}

func newValidator(tx store.ScheduleTx, settings domain.OrganizationSettings) *validator {
	return &validator{tx: tx, settings: settings, breaks: make(map[int64]BreakIndex)}
}

// prepareBreaks loads the break index for one specialist across every weekday
// the caller is about to check.
func (v *validator) prepareBreaks(ctx context.Context, organizationID string, specialistID int64, weekdays []int16) error {
	if _, ok := v.breaks[specialistID]; ok {
		return nil
	}
	rows, err := v.tx.ListActiveBreaks(ctx, organizationID, specialistID, weekdays)
	if err != nil {
		return fmt.Errorf("list breaks: %w", err)
	}
	v.breaks[specialistID] = NewBreakIndex(rows)
	return nil
}

// check validates candidate. Inactive statuses are never checked.
// Returned *domain.Error values are business-rule rejections; any other
// error is a storage failure.
func (v *validator) check(ctx context.Context, candidate domain.AppointmentSchedule, exclude map[uuid.UUID]struct{}) error {
	if !candidate.Status.Active() {
		return nil
	}
	date := candidate.AppointmentDate

	if err := CheckWorkingHours(v.settings, date, candidate.StartTime, candidate.EndTime); err != nil {
		return err
	}

	if err := v.prepareBreaks(ctx, candidate.OrganizationID, candidate.SpecialistID, allWeekdays); err != nil {
		return err
	}
	if b, ok := v.breaks[candidate.SpecialistID].Overlapping(date.ISOWeekday(), candidate.StartTime, candidate.EndTime); ok {
		return breakConflictError(date, b)
	}

	existing, err := v.tx.ListActiveOnDate(ctx, candidate.OrganizationID, candidate.SpecialistID, date)
	if err != nil {
		return fmt.Errorf("list appointments: %w", err)
	}
	if other, ok := FindSlotConflict(existing, candidate.StartTime, candidate.EndTime, exclude); ok {
		return slotConflictError(date, other.StartTime, other.EndTime)
	}
	return nil
}

var allWeekdays = []int16{1, 2, 3, 4, 5, 6, 7}

func weekdaysOf(dates []domain.Date) []int16 {
	seen := make(map[int16]struct{}, 7)
	out := make([]int16, 0, 7)
	for _, d := range dates {
		wd := d.ISOWeekday()
		if _, ok := seen[wd]; ok {
			continue
		}
		seen[wd] = struct{}{}
		out = append(out, wd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
