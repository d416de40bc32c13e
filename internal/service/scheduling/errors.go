package scheduling

import (
	"errors"
	"fmt"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

func weekdayName(wd int16) string {
	names := [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	if wd < 1 || wd > 7 {
		return fmt.Sprintf("weekday %d", wd)
	}
	return names[wd]
}

func workingHoursError(field string, date domain.Date, format string, args ...any) *domain.Error {
	d := date
	return &domain.Error{
		Kind:    domain.KindWorkingHours,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Date:    &d,
	}
}

func breakConflictError(date domain.Date, b domain.SpecialistBreak) *domain.Error {
	d := date
	title := b.Title
	if title == "" {
		title = string(b.BreakType)
	}
	return &domain.Error{
		Kind:    domain.KindBreakConflict,
		Message: fmt.Sprintf("overlaps the specialist's break %q (%s-%s) on %s", title, b.StartTime, b.EndTime, date),
		Date:    &d,
	}
}

func slotConflictError(date domain.Date, start, end domain.Clock) *domain.Error {
	d := date
	return &domain.Error{
		Kind:    domain.KindSlotConflict,
		Message: fmt.Sprintf("specialist already has an appointment from %s to %s on %s", start, end, date),
		Date:    &d,
	}
}

// storeError maps storage failures for candidate into the domain taxonomy.
// Unrecognized errors are returned unchanged.
func storeError(err error, candidate *domain.AppointmentSchedule) error {
	if err == nil {
		return nil
	}
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrConflict):
		if candidate != nil {
			e := slotConflictError(candidate.AppointmentDate, candidate.StartTime, candidate.EndTime)
			e.Message = fmt.Sprintf("time slot %s-%s on %s is already booked for this specialist", candidate.StartTime, candidate.EndTime, candidate.AppointmentDate)
			e.Err = err
			return e
		}
		return &domain.Error{Kind: domain.KindSlotConflict, Message: "time slot is already booked for this specialist", Err: err}
	case errors.Is(err, store.ErrInvalidReference):
		return &domain.Error{Kind: domain.KindInvalidReference, Message: "specialist or client does not belong to the organization", Err: err}
	case errors.Is(err, store.ErrInvalidData):
		return &domain.Error{Kind: domain.KindInvalidData, Message: "appointment data violates a storage rule", Err: err}
	case errors.Is(err, store.ErrNotFound):
		return &domain.Error{Kind: domain.KindNotFound, Message: "appointment not found", Err: err}
	}
	return err
}

func conflicting(err error) bool {
	var dErr *domain.Error
	return errors.As(err, &dErr) && dErr.Conflicting()
}
