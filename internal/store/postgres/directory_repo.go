package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"slotwise/backend/internal/domain"
)

type DirectoryRepo struct {
	db *bun.DB
}

func NewDirectoryRepo(db *bun.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

func (r *DirectoryRepo) ListSpecialists(ctx context.Context, organizationID string, activeOnly bool) ([]domain.Specialist, error) {
	var rows []domain.Specialist
	q := r.db.NewSelect().
		Model(&rows).
		Where("sp.organization_id = ?", organizationID)
	if activeOnly {
		q = q.Where("sp.is_active")
	}
	if err := q.OrderExpr("sp.name ASC, sp.id ASC").Scan(ctx); err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}

// ClientNoShowSummary counts appointments and no-shows per client. Clients
// without a no-show in the range are omitted.
func (r *DirectoryRepo) ClientNoShowSummary(ctx context.Context, filter domain.NoShowFilter) ([]domain.ClientNoShowSummary, error) {
	rows := make([]domain.ClientNoShowSummary, 0)
	q := r.db.NewSelect().
		TableExpr("clients AS c").
		ColumnExpr("c.id AS client_id").
		ColumnExpr("c.name AS client_name").
		ColumnExpr("c.is_vip AS is_vip").
		ColumnExpr("count(s.id) AS appointment_count").
		ColumnExpr("count(s.id) FILTER (WHERE s.status = ?) AS no_show_count", string(domain.StatusNoShow)).
		ColumnExpr("max(s.appointment_date) FILTER (WHERE s.status = ?) AS last_no_show_date", string(domain.StatusNoShow)).
		Join("JOIN appointment_schedules AS s ON s.organization_id = c.organization_id AND s.client_id = c.id").
		Where("c.organization_id = ?", filter.OrganizationID)
	if filter.ClientID != nil {
		q = q.Where("c.id = ?", *filter.ClientID)
	}
	if filter.DateFrom != nil {
		q = q.Where("s.appointment_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		q = q.Where("s.appointment_date <= ?", *filter.DateTo)
	}
	err := q.GroupExpr("c.id, c.name, c.is_vip").
		Having("count(s.id) FILTER (WHERE s.status = ?) > 0", string(domain.StatusNoShow)).
		OrderExpr("no_show_count DESC, c.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}
