// Package organization manages the per-organization data the scheduling
// engine reads: working hours, specialist breaks and the directory.
package organization

import (
	"context"
	"errors"
	"log/slog"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

type Notifier interface {
	Notify(ctx context.Context, event domain.ChangeEvent)
}

type Service struct {
	settings  store.SettingsStore
	breaks    store.BreakStore
	directory store.DirectoryStore
	notifier  Notifier
	log       *slog.Logger
}

func NewService(settings store.SettingsStore, breaks store.BreakStore, directory store.DirectoryStore, notifier Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		settings:  settings,
		breaks:    breaks,
		directory: directory,
		notifier:  notifier,
		log:       log.With(slog.String("component", "organization_service")),
	}
}

func (s *Service) notify(ctx context.Context, event domain.ChangeEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(context.WithoutCancel(ctx), event)
}

func requireOrganization(access domain.Access) error {
	if access.OrganizationID == "" {
		return domain.ValidationError("organizationId", "organization is required")
	}
	return nil
}

// storeError maps storage failures into the domain taxonomy. Missing-schema
// and unknown failures pass through for the transport to report as 500.
func storeError(err error, subject string) error {
	if err == nil {
		return nil
	}
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrConflict):
		return &domain.Error{Kind: domain.KindBreakConflict, Message: subject + " duplicates an existing slot", Err: err}
	case errors.Is(err, store.ErrInvalidReference):
		return &domain.Error{Kind: domain.KindInvalidReference, Field: "specialistId", Message: "specialist does not belong to the organization", Err: err}
	case errors.Is(err, store.ErrInvalidData):
		return &domain.Error{Kind: domain.KindInvalidData, Message: subject + " violates a storage rule", Err: err}
	case errors.Is(err, store.ErrNotFound):
		return &domain.Error{Kind: domain.KindNotFound, Message: subject + " not found", Err: err}
	}
	return err
}
