package organization

import (
	"context"

	"slotwise/backend/internal/domain"
)

func (s *Service) ListSpecialists(ctx context.Context, access domain.Access, activeOnly bool) ([]domain.Specialist, error) {
	if err := requireOrganization(access); err != nil {
		return nil, err
	}
	rows, err := s.directory.ListSpecialists(ctx, access.OrganizationID, activeOnly)
	if err != nil {
		return nil, storeError(err, "specialist")
	}
	return rows, nil
}

func (s *Service) ClientNoShowSummary(ctx context.Context, access domain.Access, filter domain.NoShowFilter) ([]domain.ClientNoShowSummary, error) {
	if err := requireOrganization(access); err != nil {
		return nil, err
	}
	filter.OrganizationID = access.OrganizationID
	if filter.ClientID != nil && *filter.ClientID <= 0 {
		return nil, domain.ValidationError("clientId", "clientId must be a positive integer")
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, domain.ValidationError("dateTo", "dateTo must not be before dateFrom")
	}
	rows, err := s.directory.ClientNoShowSummary(ctx, filter)
	if err != nil {
		return nil, storeError(err, "client")
	}
	return rows, nil
}
