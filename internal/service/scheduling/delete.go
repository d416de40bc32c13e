package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

type DeleteInput struct {
	Access domain.Access
	ID     uuid.UUID
	Scope  domain.Scope
}

func (s *Service) Delete(ctx context.Context, in DeleteInput) (Result, error) {
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

	settings, err := s.loadSettings(ctx, in.Access.OrganizationID)
	if err != nil {
		return Result{}, err
	}

	type outcome struct {
		rows    []domain.AppointmentSchedule
		deleted int
	}
	o, err := inTx(ctx, s.schedules, func(ctx context.Context, tx store.ScheduleTx) (outcome, error) {
		target, err := ResolveScope(ctx, tx, in.Access.OrganizationID, in.ID, scope)
		if err != nil {
			return outcome{}, err
		}
		if err := s.historyLock(in.Access, settings, target.Dates()...); err != nil {
			return outcome{}, err
		}

		specialists := make([]int64, 0, 1)
		for _, it := range target.Items {
			specialists = append(specialists, it.SpecialistID)
		}
		if err := tx.LockSpecialists(ctx, in.Access.OrganizationID, specialists...); err != nil {
			return outcome{}, fmt.Errorf("lock specialists: %w", err)
		}

		n, err := tx.DeleteSchedules(ctx, in.Access.OrganizationID, target.IDs())
		if err != nil {
			return outcome{}, storeError(err, nil)
		}
		if target.Anchor.InSeries() {
			if err := tx.EnsureGroupRoot(ctx, in.Access.OrganizationID, *target.Anchor.RepeatGroupKey); err != nil {
				return outcome{}, fmt.Errorf("promote series root: %w", err)
			}
		}
		return outcome{rows: target.Items, deleted: n}, nil
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Items:   o.rows,
		Summary: domain.BatchSummary{Requested: len(o.rows), Deleted: o.deleted, SkippedDates: []domain.Date{}},
	}
	s.notify(ctx, in.Access, domain.ChangeScheduleDeleted, scope, o.rows, res.Summary)
	return res, nil
}
