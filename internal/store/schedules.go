package store

import (
	"context"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
)

type ScheduleStore interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx ScheduleTx) error) error
	ListSchedules(ctx context.Context, filter domain.ScheduleFilter) ([]domain.AppointmentSchedule, error)
}

// ScheduleTx is the unit of work every schedule mutation runs in.
type ScheduleTx interface {
	// LockSpecialists serializes writers of the given specialists' calendars
	// until the transaction ends.
	LockSpecialists(ctx context.Context, organizationID string, specialistIDs ...int64) error

	// GetScheduleForUpdate returns ErrNotFound when the id is unknown in the organization.
	GetScheduleForUpdate(ctx context.Context, organizationID string, id uuid.UUID) (domain.AppointmentSchedule, error)
	// ListGroupForUpdate returns the rows of a repeat group ordered by date and
	// start time, optionally only those on or after from.
	ListGroupForUpdate(ctx context.Context, organizationID string, groupKey uuid.UUID, from *domain.Date) ([]domain.AppointmentSchedule, error)
	// ListActiveOnDate returns pending and confirmed rows of one specialist on one date.
	ListActiveOnDate(ctx context.Context, organizationID string, specialistID int64, date domain.Date) ([]domain.AppointmentSchedule, error)
	// ListActiveBreaks returns the specialist's active breaks on the given weekdays.
	ListActiveBreaks(ctx context.Context, organizationID string, specialistID int64, weekdays []int16) ([]domain.SpecialistBreak, error)

	InsertSchedule(ctx context.Context, s domain.AppointmentSchedule) (domain.AppointmentSchedule, error)
	UpdateSchedule(ctx context.Context, s domain.AppointmentSchedule) (domain.AppointmentSchedule, error)
	DeleteSchedules(ctx context.Context, organizationID string, ids []uuid.UUID) (int, error)

	// EnsureGroupRoot promotes the earliest remaining row of a group to root
	// when the group has rows but none of them is root.
	EnsureGroupRoot(ctx context.Context, organizationID string, groupKey uuid.UUID) error

	// DeferOverlapCheck postpones the storage overlap constraint to commit.
	DeferOverlapCheck(ctx context.Context) error
}

type SettingsStore interface {
	GetSettings(ctx context.Context, organizationID string) (domain.OrganizationSettings, error)
	SaveSettings(ctx context.Context, settings domain.OrganizationSettings) (domain.OrganizationSettings, error)
}

type BreakStore interface {
	ListBreaks(ctx context.Context, organizationID string, specialistID int64) ([]domain.SpecialistBreak, error)
	ReplaceBreaks(ctx context.Context, organizationID string, specialistID int64, breaks []domain.SpecialistBreak) ([]domain.SpecialistBreak, error)
}

type DirectoryStore interface {
	ListSpecialists(ctx context.Context, organizationID string, activeOnly bool) ([]domain.Specialist, error)
	ClientNoShowSummary(ctx context.Context, filter domain.NoShowFilter) ([]domain.ClientNoShowSummary, error)
}
