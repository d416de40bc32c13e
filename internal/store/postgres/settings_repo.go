package postgres

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

type SettingsRepo struct {
	db *bun.DB
}

func NewSettingsRepo(db *bun.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// GetSettings returns the stored settings, or the defaults when the
// organization has never saved any.
func (r *SettingsRepo) GetSettings(ctx context.Context, organizationID string) (domain.OrganizationSettings, error) {
	var row domain.OrganizationSettings
	err := r.db.NewSelect().
		Model(&row).
		Where("os.organization_id = ?", organizationID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		err = translateError(err)
		if errors.Is(err, store.ErrNotFound) {
			return domain.DefaultSettings(organizationID), nil
		}
		return domain.OrganizationSettings{}, err
	}
	if row.WorkingHours == nil {
		row.WorkingHours = map[int16]domain.TimeWindow{}
	}
	return row, nil
}

func (r *SettingsRepo) SaveSettings(ctx context.Context, settings domain.OrganizationSettings) (domain.OrganizationSettings, error) {
	m := settings
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (organization_id) DO UPDATE").
		Set("working_hours = EXCLUDED.working_hours").
		Set("visible_week_days = EXCLUDED.visible_week_days").
		Set("history_lock_days = EXCLUDED.history_lock_days").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.OrganizationSettings{}, translateError(err)
	}
	return m, nil
}
