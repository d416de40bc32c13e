package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"slotwise/backend/internal/domain"
)

type BreakRepo struct {
	db *bun.DB
}

func NewBreakRepo(db *bun.DB) *BreakRepo {
	return &BreakRepo{db: db}
}

func (r *BreakRepo) ListBreaks(ctx context.Context, organizationID string, specialistID int64) ([]domain.SpecialistBreak, error) {
	var rows []domain.SpecialistBreak
	err := r.db.NewSelect().
		Model(&rows).
		Where("b.organization_id = ?", organizationID).
		Where("b.specialist_id = ?", specialistID).
		OrderExpr("b.day_of_week ASC, b.start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}

// ReplaceBreaks swaps the specialist's whole break list in one transaction,
// holding the same lock schedule writers take for that specialist.
func (r *BreakRepo) ReplaceBreaks(ctx context.Context, organizationID string, specialistID int64, breaks []domain.SpecialistBreak) ([]domain.SpecialistBreak, error) {
	out := make([]domain.SpecialistBreak, len(breaks))
	copy(out, breaks)
	for i := range out {
		out[i].OrganizationID = organizationID
		out[i].SpecialistID = specialistID
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockSpecialists(ctx, tx, organizationID, specialistID); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*domain.SpecialistBreak)(nil)).
			Where("organization_id = ?", organizationID).
			Where("specialist_id = ?", specialistID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if len(out) == 0 {
			return nil
		}
		_, err = tx.NewInsert().Model(&out).Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return nil, translateError(err)
	}
	return out, nil
}
