package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

const overlapConstraint = "appointment_schedules_no_overlap"

var activeStatuses = []string{string(domain.StatusPending), string(domain.StatusConfirmed)}

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

type scheduleTx struct {
	tx bun.Tx
}

// maxTxAttempts bounds how often a transaction aborted by a deadlock or a
// serialization failure is run again.
const maxTxAttempts = 3

func (r *ScheduleRepo) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		// Deferred constraint violations only surface on commit.
		err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return fn(ctx, scheduleTx{tx: tx})
		})
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return translateError(err)
}

func (r *ScheduleRepo) ListSchedules(ctx context.Context, filter domain.ScheduleFilter) ([]domain.AppointmentSchedule, error) {
	var rows []domain.AppointmentSchedule
	q := r.db.NewSelect().
		Model(&rows).
		Where("s.organization_id = ?", filter.OrganizationID).
		Where("s.appointment_date >= ?", filter.DateFrom).
		Where("s.appointment_date <= ?", filter.DateTo)
	if filter.SpecialistID != nil {
		q = q.Where("s.specialist_id = ?", *filter.SpecialistID)
	}
	if filter.RecurringOnly {
		q = q.Where("s.repeat_group_key IS NOT NULL")
	}
	if filter.VIPOnly {
		q = q.Join("JOIN clients AS c ON c.organization_id = s.organization_id AND c.id = s.client_id").
			Where("c.is_vip")
	}
	err := q.OrderExpr("s.appointment_date ASC, s.start_time ASC, s.specialist_id ASC").Scan(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}

// lockKeys returns one advisory lock key per distinct specialist, in
// ascending id order so concurrent writers always lock in the same order.
func lockKeys(organizationID string, specialistIDs []int64) []string {
	ids := append([]int64(nil), specialistIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	keys := make([]string, 0, len(ids))
	var prev int64
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		prev = id
		keys = append(keys, fmt.Sprintf("slotwise:specialist:%s:%d", organizationID, id))
	}
	return keys
}

func lockSpecialists(ctx context.Context, tx bun.Tx, organizationID string, specialistIDs ...int64) error {
	for _, key := range lockKeys(organizationID, specialistIDs) {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (t scheduleTx) LockSpecialists(ctx context.Context, organizationID string, specialistIDs ...int64) error {
	return lockSpecialists(ctx, t.tx, organizationID, specialistIDs...)
}

func (t scheduleTx) GetScheduleForUpdate(ctx context.Context, organizationID string, id uuid.UUID) (domain.AppointmentSchedule, error) {
	var row domain.AppointmentSchedule
	err := t.tx.NewSelect().
		Model(&row).
		Where("s.organization_id = ?", organizationID).
		Where("s.id = ?", id).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.AppointmentSchedule{}, translateError(err)
	}
	return row, nil
}

func (t scheduleTx) ListGroupForUpdate(ctx context.Context, organizationID string, groupKey uuid.UUID, from *domain.Date) ([]domain.AppointmentSchedule, error) {
	var rows []domain.AppointmentSchedule
	q := t.tx.NewSelect().
		Model(&rows).
		Where("s.organization_id = ?", organizationID).
		Where("s.repeat_group_key = ?", groupKey)
	if from != nil {
		q = q.Where("s.appointment_date >= ?", *from)
	}
	err := q.OrderExpr("s.appointment_date ASC, s.start_time ASC").
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}

func (t scheduleTx) ListActiveOnDate(ctx context.Context, organizationID string, specialistID int64, date domain.Date) ([]domain.AppointmentSchedule, error) {
	var rows []domain.AppointmentSchedule
	err := t.tx.NewSelect().
		Model(&rows).
		Where("s.organization_id = ?", organizationID).
		Where("s.specialist_id = ?", specialistID).
		Where("s.appointment_date = ?", date).
		Where("s.status IN (?)", bun.In(activeStatuses)).
		OrderExpr("s.start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}

func (t scheduleTx) ListActiveBreaks(ctx context.Context, organizationID string, specialistID int64, weekdays []int16) ([]domain.SpecialistBreak, error) {
	if len(weekdays) == 0 {
		return nil, nil
	}
	var rows []domain.SpecialistBreak
	err := t.tx.NewSelect().
		Model(&rows).
		Where("b.organization_id = ?", organizationID).
		Where("b.specialist_id = ?", specialistID).
		Where("b.is_active").
		Where("b.day_of_week IN (?)", bun.In(weekdays)).
		OrderExpr("b.day_of_week ASC, b.start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}

// withSavepoint runs fn so that a failing statement rolls back only itself
// and the surrounding transaction stays usable.
func (t scheduleTx) withSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, err := t.tx.NewRaw("SAVEPOINT schedule_write").Exec(ctx); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := t.tx.NewRaw("ROLLBACK TO SAVEPOINT schedule_write").Exec(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	_, err := t.tx.NewRaw("RELEASE SAVEPOINT schedule_write").Exec(ctx)
	return err
}

func (t scheduleTx) InsertSchedule(ctx context.Context, s domain.AppointmentSchedule) (domain.AppointmentSchedule, error) {
	m := s
	err := t.withSavepoint(ctx, func(ctx context.Context) error {
		_, err := t.tx.NewInsert().Model(&m).Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return domain.AppointmentSchedule{}, translateError(err)
	}
	return m, nil
}

func (t scheduleTx) UpdateSchedule(ctx context.Context, s domain.AppointmentSchedule) (domain.AppointmentSchedule, error) {
	m := s
	var affected int64
	err := t.withSavepoint(ctx, func(ctx context.Context) error {
		res, err := t.tx.NewUpdate().
			Model(&m).
			ExcludeColumn("id", "organization_id", "created_at").
			Where("s.id = ?", s.ID).
			Where("s.organization_id = ?", s.OrganizationID).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return domain.AppointmentSchedule{}, translateError(err)
	}
	if affected == 0 {
		return domain.AppointmentSchedule{}, store.ErrNotFound
	}
	return m, nil
}

func (t scheduleTx) DeleteSchedules(ctx context.Context, organizationID string, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := t.tx.NewDelete().
		Model((*domain.AppointmentSchedule)(nil)).
		Where("organization_id = ?", organizationID).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, translateError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (t scheduleTx) EnsureGroupRoot(ctx context.Context, organizationID string, groupKey uuid.UUID) error {
	_, err := t.tx.NewRaw(`
		UPDATE appointment_schedules
		SET is_repeat_root = true, updated_at = now()
		WHERE id = (
			SELECT id FROM appointment_schedules
			WHERE organization_id = ? AND repeat_group_key = ?
			ORDER BY appointment_date ASC, start_time ASC, id ASC
			LIMIT 1
		)
		AND NOT EXISTS (
			SELECT 1 FROM appointment_schedules
			WHERE organization_id = ? AND repeat_group_key = ? AND is_repeat_root
		)`,
		organizationID, groupKey, organizationID, groupKey,
	).Exec(ctx)
	return translateError(err)
}

func (t scheduleTx) DeferOverlapCheck(ctx context.Context) error {
	_, err := t.tx.NewRaw("SET CONSTRAINTS " + overlapConstraint + " DEFERRED").Exec(ctx)
	return translateError(err)
}
