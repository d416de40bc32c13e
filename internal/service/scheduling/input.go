package scheduling

import (
	"strings"
	"unicode/utf8"

	"slotwise/backend/internal/domain"
)

const (
	maxServiceNameLen = 200
	maxNoteLen        = 2000
)

// RepeatInput asks for a weekly series from the appointment date to UntilDate.
type RepeatInput struct {
	Days          []int16
	UntilDate     domain.Date
	SkipConflicts bool
}

func (r RepeatInput) normalize(anchor domain.Date) (RepeatInput, error) {
	days, ok := domain.NormalizeWeekdays(r.Days)
	if !ok {
		return RepeatInput{}, domain.ValidationError("repeat.days", "weekdays must be between 1 (Monday) and 7 (Sunday)")
	}
	if len(days) == 0 {
		return RepeatInput{}, domain.ValidationError("repeat.days", "at least one weekday is required")
	}
	if r.UntilDate.IsZero() {
		return RepeatInput{}, domain.ValidationError("repeat.untilDate", "untilDate is required")
	}
	if r.UntilDate.Before(anchor) {
		return RepeatInput{}, domain.ValidationError("repeat.untilDate", "untilDate %s is before appointmentDate %s", r.UntilDate, anchor)
	}
	r.Days = days
	return r, nil
}

func validateAccess(a domain.Access) error {
	if strings.TrimSpace(a.OrganizationID) == "" {
		return domain.ValidationError("organizationId", "organization is required")
	}
	return nil
}

func validateRow(row domain.AppointmentSchedule) error {
	if row.SpecialistID <= 0 {
		return domain.ValidationError("specialistId", "specialistId is required")
	}
	if row.ClientID <= 0 {
		return domain.ValidationError("clientId", "clientId is required")
	}
	if row.AppointmentDate.IsZero() || !row.AppointmentDate.IsValid() {
		return domain.ValidationError("appointmentDate", "appointmentDate is required")
	}
	if !row.StartTime.Before(row.EndTime) {
		return domain.ValidationError("endTime", "endTime must be after startTime")
	}
	if durationMinutes(row.StartTime, row.EndTime) < 1 {
		return domain.ValidationError("endTime", "appointment must last at least one minute")
	}
	if row.ServiceName == "" {
		return domain.ValidationError("serviceName", "serviceName is required")
	}
	if utf8.RuneCountInString(row.ServiceName) > maxServiceNameLen {
		return domain.ValidationError("serviceName", "serviceName must be at most %d characters", maxServiceNameLen)
	}
	if utf8.RuneCountInString(row.Note) > maxNoteLen {
		return domain.ValidationError("note", "note must be at most %d characters", maxNoteLen)
	}
	if !row.Status.Valid() {
		return domain.ValidationError("status", "status must be one of pending, confirmed, cancelled, no-show")
	}
	return nil
}

func durationMinutes(start, end domain.Clock) int {
	return end.Minutes() - start.Minutes()
}
