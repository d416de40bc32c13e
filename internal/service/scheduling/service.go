package scheduling

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

const DefaultMaxOccurrences = 300

// maxListDays bounds the range a single list call may cover.
const maxListDays = 366

type SettingsSource interface {
	GetSettings(ctx context.Context, organizationID string) (domain.OrganizationSettings, error)
}

// Notifier receives committed changes. Delivery failures are its own concern.
type Notifier interface {
	Notify(ctx context.Context, event domain.ChangeEvent)
}

type Service struct {
	schedules      store.ScheduleStore
	settings       SettingsSource
	notifier       Notifier
	log            *slog.Logger
	maxOccurrences int
	today          func() domain.Date
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMaxOccurrences(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxOccurrences = n
		}
	}
}

// WithLocation sets the organization-local zone used to decide today's date.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.today = func() domain.Date { return domain.DateOf(time.Now().In(loc)) }
		}
	}
}

// WithToday overrides the date source entirely, mainly for tests.
func WithToday(fn func() domain.Date) Option {
	return func(s *Service) {
		if fn != nil {
			s.today = fn
		}
	}
}

func NewService(schedules store.ScheduleStore, settings SettingsSource, opts ...Option) *Service {
	s := &Service{
		schedules:      schedules,
		settings:       settings,
		notifier:       nopNotifier{},
		log:            slog.Default(),
		maxOccurrences: DefaultMaxOccurrences,
		today:          func() domain.Date { return domain.DateOf(time.Now().UTC()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.ChangeEvent) {}

// Result is what a mutation returns. Item is the anchor row when there is one.
type Result struct {
	Item    *domain.AppointmentSchedule
	Items   []domain.AppointmentSchedule
	Summary domain.BatchSummary
}

// batch accumulates the outcome of a multi-row write inside one transaction.
type batch struct {
	requested int
	items     []domain.AppointmentSchedule
	skipped   []domain.Date
}

func (b *batch) add(row domain.AppointmentSchedule) { b.items = append(b.items, row) }

func (b *batch) skip(date domain.Date) { b.skipped = append(b.skipped, date) }

func (b *batch) summary() domain.BatchSummary {
	skipped := b.skipped
	if skipped == nil {
		skipped = []domain.Date{}
	}
	return domain.BatchSummary{
		Requested:    b.requested,
		Created:      len(b.items),
		SkippedCount: len(skipped),
		SkippedDates: skipped,
	}
}

// inTx runs fn in one transaction and hands its value back only on commit.
func inTx[T any](ctx context.Context, st store.ScheduleStore, fn func(ctx context.Context, tx store.ScheduleTx) (T, error)) (T, error) {
	var out T
	err := st.InTransaction(ctx, func(ctx context.Context, tx store.ScheduleTx) error {
		v, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, storeError(err, nil)
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, filter domain.ScheduleFilter) ([]domain.AppointmentSchedule, error) {
	if filter.OrganizationID == "" {
		return nil, domain.ValidationError("organizationId", "organization is required")
	}
	if filter.DateFrom.IsZero() {
		return nil, domain.ValidationError("dateFrom", "dateFrom is required")
	}
	if filter.DateTo.IsZero() {
		return nil, domain.ValidationError("dateTo", "dateTo is required")
	}
	if filter.DateTo.Before(filter.DateFrom) {
		return nil, domain.ValidationError("dateTo", "dateTo must not be before dateFrom")
	}
	if filter.DateTo.DaysSince(filter.DateFrom.Date) > maxListDays {
		return nil, domain.ValidationError("dateTo", "range must not exceed %d days", maxListDays)
	}
	if filter.SpecialistID != nil && *filter.SpecialistID <= 0 {
		return nil, domain.ValidationError("specialistId", "specialistId must be positive")
	}
	items, err := s.schedules.ListSchedules(ctx, filter)
	if err != nil {
		return nil, storeError(err, nil)
	}
	if items == nil {
		items = []domain.AppointmentSchedule{}
	}
	return items, nil
}

func (s *Service) historyLock(access domain.Access, settings domain.OrganizationSettings, dates ...domain.Date) error {
	return CheckHistoryLock(access.Requester, dates, settings.HistoryLockDays, s.today())
}

func (s *Service) loadSettings(ctx context.Context, organizationID string) (domain.OrganizationSettings, error) {
	settings, err := s.settings.GetSettings(ctx, organizationID)
	if err != nil {
		return domain.OrganizationSettings{}, storeError(err, nil)
	}
	return settings, nil
}

func (s *Service) notify(ctx context.Context, access domain.Access, typ domain.ChangeType, scope domain.Scope, rows []domain.AppointmentSchedule, summary domain.BatchSummary) {
	event := domain.ChangeEvent{
		Type:           typ,
		OrganizationID: access.OrganizationID,
		UserID:         access.UserID,
		Scope:          scope,
		Created:        summary.Created,
		Updated:        summary.Updated,
		Deleted:        summary.Deleted,
		Skipped:        summary.SkippedCount,
	}
	specialists := make(map[int64]struct{})
	dates := make(map[domain.Date]struct{})
	for _, r := range rows {
		event.ScheduleIDs = append(event.ScheduleIDs, r.ID)
		if _, ok := specialists[r.SpecialistID]; !ok {
			specialists[r.SpecialistID] = struct{}{}
			event.SpecialistIDs = append(event.SpecialistIDs, r.SpecialistID)
		}
		if _, ok := dates[r.AppointmentDate]; !ok {
			dates[r.AppointmentDate] = struct{}{}
			event.Dates = append(event.Dates, r.AppointmentDate)
		}
	}
	sort.Slice(event.SpecialistIDs, func(i, j int) bool { return event.SpecialistIDs[i] < event.SpecialistIDs[j] })
	sort.Slice(event.Dates, func(i, j int) bool { return event.Dates[i].Before(event.Dates[j]) })

	// Detached from request cancellation: the change is already committed.
	s.notifier.Notify(context.WithoutCancel(ctx), event)
}
