package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ScheduleStatus string

const (
	StatusPending   ScheduleStatus = "pending"
	StatusConfirmed ScheduleStatus = "confirmed"
	StatusCancelled ScheduleStatus = "cancelled"
	StatusNoShow    ScheduleStatus = "no-show"
)

func (s ScheduleStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Active reports whether rows with this status occupy the specialist's time.
func (s ScheduleStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

type RepeatType string

const (
	RepeatWeekly RepeatType = "weekly"
)

type Scope string

const (
	ScopeSingle Scope = "single"
	ScopeFuture Scope = "future"
	ScopeAll    Scope = "all"
)

func ParseScope(s string) (Scope, bool) {
	switch Scope(s) {
	case "", ScopeSingle:
		return ScopeSingle, true
	case ScopeFuture:
		return ScopeFuture, true
	case ScopeAll:
		return ScopeAll, true
	}
	return "", false
}

type AppointmentSchedule struct {
	bun.BaseModel `bun:"table:appointment_schedules,alias:s"`

	ID              uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	OrganizationID  string         `bun:"organization_id,notnull" json:"organizationId"`
	SpecialistID    int64          `bun:"specialist_id,notnull" json:"specialistId"`
	ClientID        int64          `bun:"client_id,notnull" json:"clientId"`
	AppointmentDate Date           `bun:"appointment_date,type:date,notnull" json:"appointmentDate"`
	StartTime       Clock          `bun:"start_time,type:time,notnull" json:"startTime"`
	EndTime         Clock          `bun:"end_time,type:time,notnull" json:"endTime"`
	DurationMinutes int            `bun:"duration_minutes,notnull" json:"durationMinutes"`
	ServiceName     string         `bun:"service_name,notnull" json:"serviceName"`
	Note            string         `bun:"note,notnull" json:"note"`
	Status          ScheduleStatus `bun:"status,notnull" json:"status"`

	RepeatGroupKey   *uuid.UUID  `bun:"repeat_group_key,type:uuid" json:"repeatGroupKey"`
	RepeatType       *RepeatType `bun:"repeat_type" json:"repeatType"`
	RepeatUntilDate  *Date       `bun:"repeat_until_date,type:date" json:"repeatUntilDate"`
	RepeatDays       []int16     `bun:"repeat_days,array" json:"repeatDays"`
	RepeatAnchorDate *Date       `bun:"repeat_anchor_date,type:date" json:"repeatAnchorDate"`
	IsRepeatRoot     bool        `bun:"is_repeat_root,notnull" json:"isRepeatRoot"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

func (a *AppointmentSchedule) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// InSeries reports whether the row belongs to a repeat group.
func (a AppointmentSchedule) InSeries() bool {
	return a.RepeatGroupKey != nil
}

// ClearRepeat detaches the row from any repeat group.
func (a *AppointmentSchedule) ClearRepeat() {
	a.RepeatGroupKey = nil
	a.RepeatType = nil
	a.RepeatUntilDate = nil
	a.RepeatDays = nil
	a.RepeatAnchorDate = nil
	a.IsRepeatRoot = false
}

// SetRepeat attaches the row to the weekly series identified by key.
func (a *AppointmentSchedule) SetRepeat(key uuid.UUID, until Date, days []int16, anchor Date, root bool) {
	k := key
	rt := RepeatWeekly
	u := until
	an := anchor
	a.RepeatGroupKey = &k
	a.RepeatType = &rt
	a.RepeatUntilDate = &u
	a.RepeatDays = append([]int16(nil), days...)
	a.RepeatAnchorDate = &an
	a.IsRepeatRoot = root
}

type ScheduleFilter struct {
	OrganizationID string
	SpecialistID   *int64
	DateFrom       Date
	DateTo         Date
	VIPOnly        bool
	RecurringOnly  bool
}

type Specialist struct {
	bun.BaseModel `bun:"table:specialists,alias:sp"`

	ID             int64  `bun:"id,pk,autoincrement" json:"id"`
	OrganizationID string `bun:"organization_id,notnull" json:"organizationId"`
	Name           string `bun:"name,notnull" json:"name"`
	IsActive       bool   `bun:"is_active,notnull" json:"isActive"`
}

type ClientNoShowSummary struct {
	ClientID         int64  `bun:"client_id" json:"clientId"`
	ClientName       string `bun:"client_name" json:"clientName"`
	IsVIP            bool   `bun:"is_vip" json:"isVip"`
	AppointmentCount int    `bun:"appointment_count" json:"appointmentCount"`
	NoShowCount      int    `bun:"no_show_count" json:"noShowCount"`
	LastNoShowDate   *Date  `bun:"last_no_show_date" json:"lastNoShowDate"`
}

type NoShowFilter struct {
	OrganizationID string
	ClientID       *int64
	DateFrom       *Date
	DateTo         *Date
}
