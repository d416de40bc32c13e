package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BreakType string

const (
	BreakLunch    BreakType = "lunch"
	BreakRest     BreakType = "rest"
	BreakMeeting  BreakType = "meeting"
	BreakPersonal BreakType = "personal"
	BreakOther    BreakType = "other"
)

func (t BreakType) Valid() bool {
	switch t {
	case BreakLunch, BreakRest, BreakMeeting, BreakPersonal, BreakOther:
		return true
	}
	return false
}

// SpecialistBreak is a weekly block during which a specialist takes no appointments.
type SpecialistBreak struct {
	bun.BaseModel `bun:"table:specialist_breaks,alias:b"`

	ID             uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	OrganizationID string    `bun:"organization_id,notnull" json:"organizationId"`
	SpecialistID   int64     `bun:"specialist_id,notnull" json:"specialistId"`
	DayOfWeek      int16     `bun:"day_of_week,notnull" json:"dayOfWeek"`
	BreakType      BreakType `bun:"break_type,notnull" json:"breakType"`
	Title          string    `bun:"title,notnull" json:"title"`
	Note           string    `bun:"note,notnull" json:"note"`
	StartTime      Clock     `bun:"start_time,type:time,notnull" json:"startTime"`
	EndTime        Clock     `bun:"end_time,type:time,notnull" json:"endTime"`
	IsActive       bool      `bun:"is_active,notnull" json:"isActive"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt      time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

func (b *SpecialistBreak) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}
