package scheduling

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

// UpdateInput is a partial update: nil fields keep their stored value.
type UpdateInput struct {
	Access domain.Access
	ID     uuid.UUID
	Scope  domain.Scope

	SpecialistID    *int64
	ClientID        *int64
	AppointmentDate *domain.Date
	StartTime       *domain.Clock
	EndTime         *domain.Clock
	ServiceName     *string
	Note            *string
	Status          *domain.ScheduleStatus

	// Repeat turns a standalone row into the root of a new weekly series.
	Repeat *RepeatInput
}

// apply returns row with the requested fields changed. The date is only
// replaced when withDate is set.
func (in UpdateInput) apply(row domain.AppointmentSchedule, withDate bool) domain.AppointmentSchedule {
	out := row
	out.RepeatDays = append([]int16(nil), row.RepeatDays...)
	if in.SpecialistID != nil {
		out.SpecialistID = *in.SpecialistID
	}
	if in.ClientID != nil {
		out.ClientID = *in.ClientID
	}
	if withDate && in.AppointmentDate != nil {
		out.AppointmentDate = *in.AppointmentDate
	}
	if in.StartTime != nil {
		out.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		out.EndTime = *in.EndTime
	}
	if in.ServiceName != nil {
		out.ServiceName = strings.TrimSpace(*in.ServiceName)
	}
	if in.Note != nil {
		out.Note = strings.TrimSpace(*in.Note)
	}
	if in.Status != nil {
		out.Status = *in.Status
	}
	out.DurationMinutes = durationMinutes(out.StartTime, out.EndTime)
	return out
}

func (s *Service) Update(ctx context.Context, in UpdateInput) (Result, error) {
	if err := validateAccess(in.Access); err != nil {
		return Result{}, err
	}
	if in.ID == uuid.Nil {
		return Result{}, domain.ValidationError("id", "id is required")
	}
	scope, ok := domain.ParseScope(string(in.Scope))
	if !ok {
		return Result{}, domain.ValidationError("scope", "scope must be one of single, future, all")
	}
	in.Scope = scope
	if in.Repeat != nil && scope != domain.ScopeSingle {
		return Result{}, domain.ValidationError("repeat", "recurrence can only be enabled with scope=single")
	}
	if in.Status != nil && !in.Status.Valid() {
		return Result{}, domain.ValidationError("status", "status must be one of pending, confirmed, cancelled, no-show")
	}

	settings, err := s.loadSettings(ctx, in.Access.OrganizationID)
	if err != nil {
		return Result{}, err
	}

	var (
		res  Result
		kind = domain.ChangeScheduleUpdated
	)
	switch {
	case in.Repeat != nil:
		res, err = s.convertToSeries(ctx, in, settings)
		kind = domain.ChangeScheduleCreated
	case scope == domain.ScopeSingle:
		res, err = s.updateSingle(ctx, in, settings)
	default:
		res, err = s.updateBulk(ctx, in, settings)
	}
	if err != nil {
		return Result{}, err
	}
	s.notify(ctx, in.Access, kind, scope, res.Items, res.Summary)
	return res, nil
}

func (s *Service) updateSingle(ctx context.Context, in UpdateInput, settings domain.OrganizationSettings) (Result, error) {
	row, err := inTx(ctx, s.schedules, func(ctx context.Context, tx store.ScheduleTx) (domain.AppointmentSchedule, error) {
		target, err := ResolveScope(ctx, tx, in.Access.OrganizationID, in.ID, domain.ScopeSingle)
		if err != nil {
			return domain.AppointmentSchedule{}, err
		}
		original := target.Anchor
		edited := in.apply(original, true)
		if err := validateRow(edited); err != nil {
			return domain.AppointmentSchedule{}, err
		}
		if err := s.historyLock(in.Access, settings, original.AppointmentDate, edited.AppointmentDate); err != nil {
			return domain.AppointmentSchedule{}, err
		}
		if err := tx.LockSpecialists(ctx, edited.OrganizationID, original.SpecialistID, edited.SpecialistID); err != nil {
			return domain.AppointmentSchedule{}, fmt.Errorf("lock specialists: %w", err)
		}
		exclude := map[uuid.UUID]struct{}{original.ID: {}}
		if err := newValidator(tx, settings).check(ctx, edited, exclude); err != nil {
			return domain.AppointmentSchedule{}, err
		}
		row, err := tx.UpdateSchedule(ctx, edited)
		if err != nil {
			return domain.AppointmentSchedule{}, storeError(err, &edited)
		}
		return row, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Item:    &row,
		Items:   []domain.AppointmentSchedule{row},
		Summary: domain.BatchSummary{Requested: 1, Updated: 1, SkippedDates: []domain.Date{}},
	}, nil
}

func (s *Service) updateBulk(ctx context.Context, in UpdateInput, settings domain.OrganizationSettings) (Result, error) {
	rows, err := inTx(ctx, s.schedules, func(ctx context.Context, tx store.ScheduleTx) ([]domain.AppointmentSchedule, error) {
		target, err := ResolveScope(ctx, tx, in.Access.OrganizationID, in.ID, in.Scope)
		if err != nil {
			return nil, err
		}
		applyDate := len(target.Items) == 1 && in.AppointmentDate != nil

		lockDates := target.Dates()
		if applyDate {
			lockDates = append(lockDates, *in.AppointmentDate)
		}
		if err := s.historyLock(in.Access, settings, lockDates...); err != nil {
			return nil, err
		}

		edited := make([]domain.AppointmentSchedule, 0, len(target.Items))
		specialists := make([]int64, 0, 2)
		exclude := make(map[uuid.UUID]struct{}, len(target.Items))
		for _, row := range target.Items {
			e := in.apply(row, applyDate)
			if err := validateRow(e); err != nil {
				return nil, err
			}
			edited = append(edited, e)
			specialists = append(specialists, row.SpecialistID, e.SpecialistID)
			exclude[row.ID] = struct{}{}
		}

		if err := tx.LockSpecialists(ctx, in.Access.OrganizationID, specialists...); err != nil {
			return nil, fmt.Errorf("lock specialists: %w", err)
		}
		if err := tx.DeferOverlapCheck(ctx); err != nil {
			return nil, fmt.Errorf("defer overlap check: %w", err)
		}

		v := newValidator(tx, settings)
		for i, e := range edited {
			if err := v.check(ctx, e, exclude); err != nil {
				return nil, err
			}
			if other, ok := overlapsAny(e, edited[:i]); ok {
				return nil, slotConflictError(e.AppointmentDate, other.StartTime, other.EndTime)
			}
		}

		out := make([]domain.AppointmentSchedule, 0, len(edited))
		for i := range edited {
			row, err := tx.UpdateSchedule(ctx, edited[i])
			if err != nil {
				return nil, storeError(err, &edited[i])
			}
			out = append(out, row)
		}
		return out, nil
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Items:   rows,
		Summary: domain.BatchSummary{Requested: len(rows), Updated: len(rows), SkippedDates: []domain.Date{}},
	}
	for i := range rows {
		if rows[i].ID == in.ID {
			res.Item = &rows[i]
			break
		}
	}
	return res, nil
}

// overlapsAny reports an active row in others that collides with candidate
// on the same specialist and date.
func overlapsAny(candidate domain.AppointmentSchedule, others []domain.AppointmentSchedule) (domain.AppointmentSchedule, bool) {
	if !candidate.Status.Active() {
		return domain.AppointmentSchedule{}, false
	}
	for _, o := range others {
		if o.SpecialistID != candidate.SpecialistID || !o.AppointmentDate.Equal(candidate.AppointmentDate) {
			continue
		}
		if o.Status.Active() && domain.Overlaps(candidate.StartTime, candidate.EndTime, o.StartTime, o.EndTime) {
			return o, true
		}
	}
	return domain.AppointmentSchedule{}, false
}

// convertToSeries rewrites a standalone row as the root of a new weekly
// series and inserts the remaining occurrences.
func (s *Service) convertToSeries(ctx context.Context, in UpdateInput, settings domain.OrganizationSettings) (Result, error) {
	type outcome struct {
		root  domain.AppointmentSchedule
		batch batch
	}
	var (
		groupKey uuid.UUID
		skip     bool
	)
	o, err := inTx(ctx, s.schedules, func(ctx context.Context, tx store.ScheduleTx) (outcome, error) {
		target, err := ResolveScope(ctx, tx, in.Access.OrganizationID, in.ID, domain.ScopeSingle)
		if err != nil {
			return outcome{}, err
		}
		original := target.Anchor
		if original.InSeries() {
			return outcome{}, domain.ValidationError("repeat", "appointment already belongs to a recurring series")
		}
		edited := in.apply(original, true)
		if err := validateRow(edited); err != nil {
			return outcome{}, err
		}

		repeat, err := in.Repeat.normalize(edited.AppointmentDate)
		if err != nil {
			return outcome{}, err
		}
		skip = repeat.SkipConflicts
		dates, err := s.expand(edited.AppointmentDate, repeat)
		if err != nil {
			return outcome{}, err
		}
		dates = domain.WithAnchor(dates, edited.AppointmentDate)
		if len(dates) > s.maxOccurrences {
			return outcome{}, domain.ValidationError("repeat.untilDate", "series would create %d occurrences; at most %d are allowed", len(dates), s.maxOccurrences)
		}
		if err := s.historyLock(in.Access, settings, append([]domain.Date{original.AppointmentDate}, dates...)...); err != nil {
			return outcome{}, err
		}

		if err := tx.LockSpecialists(ctx, edited.OrganizationID, original.SpecialistID, edited.SpecialistID); err != nil {
			return outcome{}, fmt.Errorf("lock specialists: %w", err)
		}

		groupKey, err = uuid.NewV7()
		if err != nil {
			return outcome{}, fmt.Errorf("generate repeat group key: %w", err)
		}
		edited.SetRepeat(groupKey, repeat.UntilDate, repeat.Days, edited.AppointmentDate, true)

		v := newValidator(tx, settings)
		if err := v.prepareBreaks(ctx, edited.OrganizationID, edited.SpecialistID, weekdaysOf(dates)); err != nil {
			return outcome{}, err
		}
		if err := v.check(ctx, edited, map[uuid.UUID]struct{}{original.ID: {}}); err != nil {
			return outcome{}, err
		}
		root, err := tx.UpdateSchedule(ctx, edited)
		if err != nil {
			return outcome{}, storeError(err, &edited)
		}

		rest := make([]domain.Date, 0, len(dates)-1)
		for _, d := range dates {
			if !d.Equal(edited.AppointmentDate) {
				rest = append(rest, d)
			}
		}
		tmpl := edited
		tmpl.IsRepeatRoot = false
		b, err := insertOccurrences(ctx, tx, v, tmpl, rest, repeat.SkipConflicts, true)
		if err != nil {
			return outcome{}, err
		}
		return outcome{root: root, batch: b}, nil
	})
	if err != nil {
		return Result{}, err
	}

	if skip && len(o.batch.skipped) > 0 {
		s.log.InfoContext(ctx, "series conversion skipped conflicting occurrences",
			"organization_id", in.Access.OrganizationID,
			"repeat_group_key", groupKey.String(),
			"created", len(o.batch.items),
			"skipped", len(o.batch.skipped),
		)
	}

	items := append([]domain.AppointmentSchedule{o.root}, o.batch.items...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].AppointmentDate.Before(items[j].AppointmentDate) })
	summary := o.batch.summary()
	summary.Requested++
	summary.Updated = 1
	root := o.root
	return Result{Item: &root, Items: items, Summary: summary}, nil
}
