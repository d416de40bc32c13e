package organization

import (
	"context"
	"fmt"
	"log/slog"

	"slotwise/backend/internal/domain"
)

// SettingsPatch updates only the fields that are set.
type SettingsPatch struct {
	WorkingHours    map[int16]domain.TimeWindow `json:"workingHours"`
	VisibleWeekDays []int16                     `json:"visibleWeekDays"`
	HistoryLockDays *int                        `json:"historyLockDays"`
}

const maxHistoryLockDays = 3650

func (s *Service) GetSettings(ctx context.Context, access domain.Access) (domain.OrganizationSettings, error) {
	if err := requireOrganization(access); err != nil {
		return domain.OrganizationSettings{}, err
	}
	settings, err := s.settings.GetSettings(ctx, access.OrganizationID)
	if err != nil {
		return domain.OrganizationSettings{}, storeError(err, "settings")
	}
	return settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, access domain.Access, patch SettingsPatch) (domain.OrganizationSettings, error) {
	current, err := s.GetSettings(ctx, access)
	if err != nil {
		return domain.OrganizationSettings{}, err
	}

	next := current
	next.OrganizationID = access.OrganizationID
	if patch.WorkingHours != nil {
		hours := make(map[int16]domain.TimeWindow, len(patch.WorkingHours))
		for day, w := range patch.WorkingHours {
			if day < 1 || day > 7 {
				return domain.OrganizationSettings{}, domain.ValidationError("workingHours", "weekday %d must be between 1 and 7", day)
			}
			if !w.Open.Before(w.Close) {
				return domain.OrganizationSettings{}, domain.ValidationError(fmt.Sprintf("workingHours.%d", day), "close must be after open")
			}
			hours[day] = w
		}
		next.WorkingHours = hours
	}
	if patch.VisibleWeekDays != nil {
		days, ok := domain.NormalizeWeekdays(patch.VisibleWeekDays)
		if !ok {
			return domain.OrganizationSettings{}, domain.ValidationError("visibleWeekDays", "weekdays must be between 1 and 7")
		}
		next.VisibleWeekDays = days
	}
	if patch.HistoryLockDays != nil {
		d := *patch.HistoryLockDays
		if d < 0 || d > maxHistoryLockDays {
			return domain.OrganizationSettings{}, domain.ValidationError("historyLockDays", "historyLockDays must be between 0 and %d", maxHistoryLockDays)
		}
		next.HistoryLockDays = d
	}

	saved, err := s.settings.SaveSettings(ctx, next)
	if err != nil {
		return domain.OrganizationSettings{}, storeError(err, "settings")
	}

	s.log.Info("organization settings updated",
		slog.String("organization_id", access.OrganizationID),
		slog.String("user_id", access.UserID),
		slog.Int("history_lock_days", saved.HistoryLockDays),
	)
	s.notify(ctx, domain.ChangeEvent{
		Type:           domain.ChangeSettingsUpdated,
		OrganizationID: access.OrganizationID,
		UserID:         access.UserID,
		Updated:        1,
	})
	return saved, nil
}
