package scheduling

import (
	"fmt"

	"slotwise/backend/internal/domain"
)

// CheckHistoryLock rejects dates strictly before today minus lockDays unless
// the requester can override the lock. A non-positive lockDays disables it.
func CheckHistoryLock(req domain.Requester, dates []domain.Date, lockDays int, today domain.Date) error {
	if req.CanOverrideHistoryLock || lockDays <= 0 || len(dates) == 0 {
		return nil
	}
	threshold := today.AddDays(-lockDays)

	var earliest *domain.Date
	for i := range dates {
		d := dates[i]
		if !d.Before(threshold) {
			continue
		}
		if earliest == nil || d.Before(*earliest) {
			earliest = &d
		}
	}
	if earliest == nil {
		return nil
	}
	return &domain.Error{
		Kind:    domain.KindHistoryLock,
		Field:   "appointmentDate",
		Message: fmt.Sprintf("appointments before %s are locked (%d day history window); %s cannot be changed", threshold, lockDays, *earliest),
		Date:    earliest,
	}
}
