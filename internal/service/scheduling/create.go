package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

type CreateInput struct {
	Access          domain.Access
	SpecialistID    int64
	ClientID        int64
	AppointmentDate domain.Date
	StartTime       domain.Clock
	EndTime         domain.Clock
	ServiceName     string
	Note            string
	Status          domain.ScheduleStatus
	Repeat          *RepeatInput

	// IdempotencyKey makes retries of a single create resolve to the same row id.
	IdempotencyKey string
}

func (in CreateInput) template() domain.AppointmentSchedule {
	status := in.Status
	if status == "" {
		status = domain.StatusPending
	}
	return domain.AppointmentSchedule{
		OrganizationID:  in.Access.OrganizationID,
		SpecialistID:    in.SpecialistID,
		ClientID:        in.ClientID,
		AppointmentDate: in.AppointmentDate,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		DurationMinutes: durationMinutes(in.StartTime, in.EndTime),
		ServiceName:     strings.TrimSpace(in.ServiceName),
		Note:            strings.TrimSpace(in.Note),
		Status:          status,
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Result, error) {
	if err := validateAccess(in.Access); err != nil {
		return Result{}, err
	}
	tmpl := in.template()
	if err := validateRow(tmpl); err != nil {
		return Result{}, err
	}

	if in.Repeat != nil {
		return s.createSeries(ctx, in.Access, tmpl, *in.Repeat)
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return Result{}, domain.ValidationError("idempotencyKey", "idempotencyKey too long")
		}
		tmpl.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("slotwise:create_schedule:"+in.Access.OrganizationID+":"+key))
	}

	settings, err := s.loadSettings(ctx, in.Access.OrganizationID)
	if err != nil {
		return Result{}, err
	}
	if err := s.historyLock(in.Access, settings, tmpl.AppointmentDate); err != nil {
		return Result{}, err
	}

	row, err := inTx(ctx, s.schedules, func(ctx context.Context, tx store.ScheduleTx) (domain.AppointmentSchedule, error) {
		// Row locks are taken before specialist locks on every write path.
		if existing, found, err := idempotentReplay(ctx, tx, tmpl); found || err != nil {
			return existing, err
		}
		if err := tx.LockSpecialists(ctx, tmpl.OrganizationID, tmpl.SpecialistID); err != nil {
			return domain.AppointmentSchedule{}, fmt.Errorf("lock specialist: %w", err)
		}
		// A concurrent create with the same key may have committed while we waited.
		if existing, found, err := idempotentReplay(ctx, tx, tmpl); found || err != nil {
			return existing, err
		}
		if err := newValidator(tx, settings).check(ctx, tmpl, nil); err != nil {
			return domain.AppointmentSchedule{}, err
		}
		row, err := tx.InsertSchedule(ctx, tmpl)
		if err != nil {
			return domain.AppointmentSchedule{}, storeError(err, &tmpl)
		}
		return row, nil
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Item:    &row,
		Items:   []domain.AppointmentSchedule{row},
		Summary: domain.BatchSummary{Requested: 1, Created: 1, SkippedDates: []domain.Date{}},
	}
	s.notify(ctx, in.Access, domain.ChangeScheduleCreated, domain.ScopeSingle, res.Items, res.Summary)
	return res, nil
}

// expand turns a repeat request into occurrence dates, enforcing the cap
// before anything is materialized.
func (s *Service) expand(anchor domain.Date, r RepeatInput) ([]domain.Date, error) {
	n, err := domain.CountWeekly(anchor, r.UntilDate, r.Days)
	if err != nil {
		return nil, domain.ValidationError("repeat.untilDate", "%v", err)
	}
	if n > s.maxOccurrences {
		return nil, domain.ValidationError("repeat.untilDate", "series would create %d occurrences; at most %d are allowed", n, s.maxOccurrences)
	}
	dates, err := domain.ExpandWeekly(anchor, r.UntilDate, r.Days)
	if err != nil {
		return nil, domain.ValidationError("repeat.untilDate", "%v", err)
	}
	return dates, nil
}

func (s *Service) createSeries(ctx context.Context, access domain.Access, tmpl domain.AppointmentSchedule, repeat RepeatInput) (Result, error) {
	repeat, err := repeat.normalize(tmpl.AppointmentDate)
	if err != nil {
		return Result{}, err
	}
	dates, err := s.expand(tmpl.AppointmentDate, repeat)
	if err != nil {
		return Result{}, err
	}
	if len(dates) == 0 {
		e := nothingCreated(batch{})
		e.Message = fmt.Sprintf("no occurrences between %s and %s on the selected weekdays", tmpl.AppointmentDate, repeat.UntilDate)
		return Result{}, e
	}

	settings, err := s.loadSettings(ctx, access.OrganizationID)
	if err != nil {
		return Result{}, err
	}
	if err := s.historyLock(access, settings, dates...); err != nil {
		return Result{}, err
	}

	groupKey, err := uuid.NewV7()
	if err != nil {
		return Result{}, fmt.Errorf("generate repeat group key: %w", err)
	}
	tmpl.SetRepeat(groupKey, repeat.UntilDate, repeat.Days, tmpl.AppointmentDate, false)

	b, err := inTx(ctx, s.schedules, func(ctx context.Context, tx store.ScheduleTx) (batch, error) {
		if err := tx.LockSpecialists(ctx, tmpl.OrganizationID, tmpl.SpecialistID); err != nil {
			return batch{}, fmt.Errorf("lock specialist: %w", err)
		}
		v := newValidator(tx, settings)
		if err := v.prepareBreaks(ctx, tmpl.OrganizationID, tmpl.SpecialistID, weekdaysOf(dates)); err != nil {
			return batch{}, err
		}
		b, err := insertOccurrences(ctx, tx, v, tmpl, dates, repeat.SkipConflicts, false)
		if err != nil {
			return batch{}, err
		}
		if len(b.items) == 0 {
			return batch{}, nothingCreated(b)
		}
		return b, nil
	})
	if err != nil {
		return Result{}, err
	}

	if len(b.skipped) > 0 {
		s.log.InfoContext(ctx, "recurring create skipped conflicting occurrences",
			"organization_id", access.OrganizationID,
			"repeat_group_key", groupKey.String(),
			"created", len(b.items),
			"skipped", len(b.skipped),
		)
	}

	res := Result{Items: b.items, Summary: b.summary()}
	root := b.items[0]
	res.Item = &root
	s.notify(ctx, access, domain.ChangeScheduleCreated, domain.ScopeAll, res.Items, res.Summary)
	return res, nil
}

// nothingCreated reports a series create that produced no rows.
func nothingCreated(b batch) *domain.Error {
	sum := b.summary()
	return &domain.Error{
		Kind:    domain.KindSlotConflict,
		Message: fmt.Sprintf("none of the %d requested occurrences could be scheduled", b.requested),
		Summary: &sum,
	}
}

// idempotentReplay returns the row already stored under tmpl's
// deterministic id. found is false when tmpl has no id or no such row exists.
func idempotentReplay(ctx context.Context, tx store.ScheduleTx, tmpl domain.AppointmentSchedule) (domain.AppointmentSchedule, bool, error) {
	if tmpl.ID == uuid.Nil {
		return domain.AppointmentSchedule{}, false, nil
	}
	existing, err := tx.GetScheduleForUpdate(ctx, tmpl.OrganizationID, tmpl.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.AppointmentSchedule{}, false, nil
	case err != nil:
		return domain.AppointmentSchedule{}, false, fmt.Errorf("load idempotent row: %w", err)
	}
	if !sameBooking(existing, tmpl) {
		return domain.AppointmentSchedule{}, true, &domain.Error{
			Kind:    domain.KindSlotConflict,
			Field:   "idempotencyKey",
			Message: "idempotencyKey was already used for a different appointment",
		}
	}
	return existing, true, nil
}

// insertOccurrences writes one row per date in order. When hasRoot is false
// the first row that is actually created becomes the series root. With skip
// set, per-occurrence conflicts are recorded instead of aborting.
func insertOccurrences(ctx context.Context, tx store.ScheduleTx, v *validator, tmpl domain.AppointmentSchedule, dates []domain.Date, skip, hasRoot bool) (batch, error) {
	b := batch{requested: len(dates)}
	for _, date := range dates {
		candidate := tmpl
		candidate.ID = uuid.Nil
		candidate.CreatedAt, candidate.UpdatedAt = time.Time{}, time.Time{}
		candidate.AppointmentDate = date
		candidate.RepeatDays = append([]int16(nil), tmpl.RepeatDays...)
		candidate.IsRepeatRoot = !hasRoot && len(b.items) == 0

		if err := v.check(ctx, candidate, nil); err != nil {
			if skip && conflicting(err) {
				b.skip(date)
				continue
			}
			return b, err
		}

		row, err := tx.InsertSchedule(ctx, candidate)
		if err != nil {
			err = storeError(err, &candidate)
			if skip && conflicting(err) {
				b.skip(date)
				continue
			}
			return b, err
		}
		b.add(row)
	}
	return b, nil
}

// sameBooking reports whether a replayed create describes the stored row.
func sameBooking(a, b domain.AppointmentSchedule) bool {
	return a.SpecialistID == b.SpecialistID &&
		a.ClientID == b.ClientID &&
		a.AppointmentDate.Equal(b.AppointmentDate) &&
		a.StartTime == b.StartTime &&
		a.EndTime == b.EndTime &&
		a.ServiceName == b.ServiceName &&
		a.Note == b.Note &&
		a.Status == b.Status
}
