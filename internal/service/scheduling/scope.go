package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

// Resolution is the set of persisted rows one update or delete applies to.
type Resolution struct {
	Scope       domain.Scope
	IsRecurring bool
	Anchor      domain.AppointmentSchedule
	Items       []domain.AppointmentSchedule
}

// Dates returns the stored date of every resolved row.
func (r Resolution) Dates() []domain.Date {
	out := make([]domain.Date, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, it.AppointmentDate)
	}
	return out
}

func (r Resolution) IDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, it.ID)
	}
	return out
}

// ResolveScope loads the anchor row and, for future and all, the rest of its
// repeat group. Rows are locked for the rest of the transaction.
func ResolveScope(ctx context.Context, tx store.ScheduleTx, organizationID string, anchorID uuid.UUID, scope domain.Scope) (Resolution, error) {
	anchor, err := tx.GetScheduleForUpdate(ctx, organizationID, anchorID)
	if err != nil {
		return Resolution{}, storeError(err, nil)
	}
	res := Resolution{Scope: scope, IsRecurring: anchor.InSeries(), Anchor: anchor}

	switch scope {
	case domain.ScopeSingle, "":
		res.Scope = domain.ScopeSingle
		res.Items = []domain.AppointmentSchedule{anchor}
		return res, nil
	case domain.ScopeFuture, domain.ScopeAll:
	default:
		return Resolution{}, domain.ValidationError("scope", "scope must be one of single, future, all")
	}

	if !anchor.InSeries() {
		return Resolution{}, domain.NotFoundError("appointment %s is not part of a recurring series", anchorID)
	}
	var from *domain.Date
	if scope == domain.ScopeFuture {
		d := anchor.AppointmentDate
		from = &d
	}
	items, err := tx.ListGroupForUpdate(ctx, organizationID, *anchor.RepeatGroupKey, from)
	if err != nil {
		return Resolution{}, fmt.Errorf("list repeat group: %w", err)
	}
	if len(items) == 0 {
		return Resolution{}, domain.NotFoundError("no appointments found for scope %s", scope)
	}
	res.Items = items
	return res, nil
}
