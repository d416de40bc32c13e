package domain

import "github.com/google/uuid"

type ChangeType string

const (
	ChangeScheduleCreated ChangeType = "schedule.created"
	ChangeScheduleUpdated ChangeType = "schedule.updated"
	ChangeScheduleDeleted ChangeType = "schedule.deleted"
	ChangeBreaksReplaced  ChangeType = "breaks.replaced"
	ChangeSettingsUpdated ChangeType = "settings.updated"
)

// ChangeEvent summarizes one committed mutation for observers.
type ChangeEvent struct {
	Type           ChangeType  `json:"type"`
	OrganizationID string      `json:"organizationId"`
	UserID         string      `json:"userId"`
	Scope          Scope       `json:"scope,omitempty"`
	ScheduleIDs    []uuid.UUID `json:"scheduleIds,omitempty"`
	SpecialistIDs  []int64     `json:"specialistIds,omitempty"`
	Dates          []Date      `json:"dates,omitempty"`
	Created        int         `json:"created,omitempty"`
	Updated        int         `json:"updated,omitempty"`
	Deleted        int         `json:"deleted,omitempty"`
	Skipped        int         `json:"skipped,omitempty"`
}
