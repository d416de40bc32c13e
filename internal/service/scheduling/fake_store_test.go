package scheduling

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

var errNoRow = errors.New("no row")

// memStore is a transactional in-memory ScheduleStore. Each transaction works
// on a copy of the rows that replaces the committed set only on success, and
// the overlap rule is enforced on write the way the database constraint is.
type memStore struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]domain.AppointmentSchedule
	breaks []domain.SpecialistBreak

	// insertFn, when set, can fail an insert before it is applied.
	insertFn func(row domain.AppointmentSchedule) error

	breakQueries int
	locks        [][]int64
	commits      int
	// lockOrder records "row" and "specialist" as each kind of lock is taken.
	lockOrder []string
}

func newMemStore(rows ...domain.AppointmentSchedule) *memStore {
	m := &memStore{rows: make(map[uuid.UUID]domain.AppointmentSchedule)}
	for _, r := range rows {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		m.rows[r.ID] = r
	}
	return m
}

func (m *memStore) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{store: m, rows: make(map[uuid.UUID]domain.AppointmentSchedule, len(m.rows))}
	for id, r := range m.rows {
		tx.rows[id] = r
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if tx.deferred {
		for _, r := range tx.rows {
			if overlapping(tx.rows, r) {
				return &store.ConstraintError{Kind: store.ErrConflict, Constraint: "appointment_schedules_no_overlap", Err: errors.New("deferred exclusion violation")}
			}
		}
	}
	m.rows = tx.rows
	m.commits++
	return nil
}

func (m *memStore) ListSchedules(ctx context.Context, filter domain.ScheduleFilter) ([]domain.AppointmentSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AppointmentSchedule
	for _, r := range m.rows {
		if r.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.SpecialistID != nil && r.SpecialistID != *filter.SpecialistID {
			continue
		}
		if r.AppointmentDate.Before(filter.DateFrom) || r.AppointmentDate.After(filter.DateTo) {
			continue
		}
		if filter.RecurringOnly && !r.InSeries() {
			continue
		}
		out = append(out, r)
	}
	sortRows(out)
	return out, nil
}

// all returns committed rows ordered by date and start time.
func (m *memStore) all() []domain.AppointmentSchedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AppointmentSchedule, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sortRows(out)
	return out
}

func (m *memStore) get(id uuid.UUID) (domain.AppointmentSchedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return r, ok
}

func sortRows(rows []domain.AppointmentSchedule) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].AppointmentDate.Equal(rows[j].AppointmentDate) {
			return rows[i].AppointmentDate.Before(rows[j].AppointmentDate)
		}
		return rows[i].StartTime.Before(rows[j].StartTime)
	})
}

func overlapping(rows map[uuid.UUID]domain.AppointmentSchedule, c domain.AppointmentSchedule) bool {
	if !c.Status.Active() {
		return false
	}
	for id, r := range rows {
		if id == c.ID || !r.Status.Active() {
			continue
		}
		if r.OrganizationID == c.OrganizationID && r.SpecialistID == c.SpecialistID &&
			r.AppointmentDate.Equal(c.AppointmentDate) &&
			domain.Overlaps(c.StartTime, c.EndTime, r.StartTime, r.EndTime) {
			return true
		}
	}
	return false
}

type memTx struct {
	store    *memStore
	rows     map[uuid.UUID]domain.AppointmentSchedule
	deferred bool
}

func (t *memTx) LockSpecialists(ctx context.Context, organizationID string, specialistIDs ...int64) error {
	t.store.locks = append(t.store.locks, append([]int64(nil), specialistIDs...))
	t.store.lockOrder = append(t.store.lockOrder, "specialist")
	return nil
}

func (t *memTx) GetScheduleForUpdate(ctx context.Context, organizationID string, id uuid.UUID) (domain.AppointmentSchedule, error) {
	t.store.lockOrder = append(t.store.lockOrder, "row")
	r, ok := t.rows[id]
	if !ok || r.OrganizationID != organizationID {
		return domain.AppointmentSchedule{}, &store.ConstraintError{Kind: store.ErrNotFound, Err: errNoRow}
	}
	return r, nil
}

func (t *memTx) ListGroupForUpdate(ctx context.Context, organizationID string, groupKey uuid.UUID, from *domain.Date) ([]domain.AppointmentSchedule, error) {
	var out []domain.AppointmentSchedule
	for _, r := range t.rows {
		if r.OrganizationID != organizationID || r.RepeatGroupKey == nil || *r.RepeatGroupKey != groupKey {
			continue
		}
		if from != nil && r.AppointmentDate.Before(*from) {
			continue
		}
		out = append(out, r)
	}
	sortRows(out)
	return out, nil
}

func (t *memTx) ListActiveOnDate(ctx context.Context, organizationID string, specialistID int64, date domain.Date) ([]domain.AppointmentSchedule, error) {
	var out []domain.AppointmentSchedule
	for _, r := range t.rows {
		if r.OrganizationID == organizationID && r.SpecialistID == specialistID &&
			r.AppointmentDate.Equal(date) && r.Status.Active() {
			out = append(out, r)
		}
	}
	sortRows(out)
	return out, nil
}

func (t *memTx) ListActiveBreaks(ctx context.Context, organizationID string, specialistID int64, weekdays []int16) ([]domain.SpecialistBreak, error) {
	t.store.breakQueries++
	want := make(map[int16]bool, len(weekdays))
	for _, wd := range weekdays {
		want[wd] = true
	}
	var out []domain.SpecialistBreak
	for _, b := range t.store.breaks {
		if b.OrganizationID == organizationID && b.SpecialistID == specialistID && b.IsActive && want[b.DayOfWeek] {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *memTx) InsertSchedule(ctx context.Context, s domain.AppointmentSchedule) (domain.AppointmentSchedule, error) {
	if t.store.insertFn != nil {
		if err := t.store.insertFn(s); err != nil {
			return domain.AppointmentSchedule{}, err
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if _, exists := t.rows[s.ID]; exists {
		return domain.AppointmentSchedule{}, &store.ConstraintError{Kind: store.ErrConflict, Constraint: "appointment_schedules_pkey", Err: errors.New("duplicate key")}
	}
	if !t.deferred && overlapping(t.rows, s) {
		return domain.AppointmentSchedule{}, &store.ConstraintError{Kind: store.ErrConflict, Constraint: "appointment_schedules_no_overlap", Err: errors.New("exclusion violation")}
	}
	t.rows[s.ID] = s
	return s, nil
}

func (t *memTx) UpdateSchedule(ctx context.Context, s domain.AppointmentSchedule) (domain.AppointmentSchedule, error) {
	if _, ok := t.rows[s.ID]; !ok {
		return domain.AppointmentSchedule{}, &store.ConstraintError{Kind: store.ErrNotFound, Err: errNoRow}
	}
	if !t.deferred && overlapping(t.rows, s) {
		return domain.AppointmentSchedule{}, &store.ConstraintError{Kind: store.ErrConflict, Constraint: "appointment_schedules_no_overlap", Err: errors.New("exclusion violation")}
	}
	t.rows[s.ID] = s
	return s, nil
}

func (t *memTx) DeleteSchedules(ctx context.Context, organizationID string, ids []uuid.UUID) (int, error) {
	n := 0
	for _, id := range ids {
		if r, ok := t.rows[id]; ok && r.OrganizationID == organizationID {
			delete(t.rows, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) EnsureGroupRoot(ctx context.Context, organizationID string, groupKey uuid.UUID) error {
	group, _ := t.ListGroupForUpdate(ctx, organizationID, groupKey, nil)
	if len(group) == 0 {
		return nil
	}
	for _, r := range group {
		if r.IsRepeatRoot {
			return nil
		}
	}
	first := group[0]
	first.IsRepeatRoot = true
	t.rows[first.ID] = first
	return nil
}

func (t *memTx) DeferOverlapCheck(ctx context.Context) error {
	t.deferred = true
	return nil
}

type fakeSettings struct {
	getFn func(ctx context.Context, organizationID string) (domain.OrganizationSettings, error)
}

func (f fakeSettings) GetSettings(ctx context.Context, organizationID string) (domain.OrganizationSettings, error) {
	if f.getFn == nil {
		return domain.DefaultSettings(organizationID), nil
	}
	return f.getFn(ctx, organizationID)
}

type recordingNotifier struct {
	events []domain.ChangeEvent
}

func (r *recordingNotifier) Notify(ctx context.Context, event domain.ChangeEvent) {
	r.events = append(r.events, event)
}
