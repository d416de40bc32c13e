package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"slotwise/backend/internal/authorize"
	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/service/scheduling"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type repeatRequest struct {
	Days          []int16     `json:"days"`
	UntilDate     domain.Date `json:"untilDate"`
	SkipConflicts bool        `json:"skipConflicts"`
}

func (r *repeatRequest) input() *scheduling.RepeatInput {
	if r == nil {
		return nil
	}
	return &scheduling.RepeatInput{Days: r.Days, UntilDate: r.UntilDate, SkipConflicts: r.SkipConflicts}
}

type createScheduleRequest struct {
	SpecialistID    int64                 `json:"specialistId"`
	ClientID        int64                 `json:"clientId"`
	AppointmentDate domain.Date           `json:"appointmentDate"`
	StartTime       domain.Clock          `json:"startTime"`
	EndTime         domain.Clock          `json:"endTime"`
	ServiceName     string                `json:"serviceName"`
	Note            string                `json:"note"`
	Status          domain.ScheduleStatus `json:"status"`
	Repeat          *repeatRequest        `json:"repeat"`
}

type updateScheduleRequest struct {
	SpecialistID    *int64                 `json:"specialistId"`
	ClientID        *int64                 `json:"clientId"`
	AppointmentDate *domain.Date           `json:"appointmentDate"`
	StartTime       *domain.Clock          `json:"startTime"`
	EndTime         *domain.Clock          `json:"endTime"`
	ServiceName     *string                `json:"serviceName"`
	Note            *string                `json:"note"`
	Status          *domain.ScheduleStatus `json:"status"`
	Repeat          *repeatRequest         `json:"repeat"`
}

type mutationResponse struct {
	Item    *domain.AppointmentSchedule  `json:"item"`
	Items   []domain.AppointmentSchedule `json:"items"`
	Summary domain.BatchSummary          `json:"summary"`
}

func newMutationResponse(res scheduling.Result) mutationResponse {
	items := res.Items
	if items == nil {
		items = []domain.AppointmentSchedule{}
	}
	return mutationResponse{Item: res.Item, Items: items, Summary: res.Summary}
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

func newItems[T any](items []T) itemsResponse[T] {
	if items == nil {
		items = []T{}
	}
	return itemsResponse[T]{Items: items}
}

func (h *handler) listSchedules(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, authorize.ReadSchedules)
	if !ok {
		return
	}
	filter, err := scheduleFilter(r, access.OrganizationID)
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	items, err := h.schedules.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	writeJSON(w, http.StatusOK, newItems(items))
}

func scheduleFilter(r *http.Request, organizationID string) (domain.ScheduleFilter, error) {
	q := r.URL.Query()
	f := domain.ScheduleFilter{OrganizationID: organizationID}

	var err error
	if f.SpecialistID, err = queryInt64(q, "specialistId"); err != nil {
		return f, err
	}
	if f.DateFrom, err = requiredDate(q, "dateFrom"); err != nil {
		return f, err
	}
	if f.DateTo, err = requiredDate(q, "dateTo"); err != nil {
		return f, err
	}
	if f.VIPOnly, err = queryBool(q, "vipOnly"); err != nil {
		return f, err
	}
	if f.RecurringOnly, err = queryBool(q, "recurringOnly"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *handler) createSchedule(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, authorize.WriteSchedules)
	if !ok {
		return
	}
	var req createScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, access, err)
		return
	}

	res, err := h.schedules.Create(r.Context(), scheduling.CreateInput{
		Access:          access,
		SpecialistID:    req.SpecialistID,
		ClientID:        req.ClientID,
		AppointmentDate: req.AppointmentDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		ServiceName:     req.ServiceName,
		Note:            req.Note,
		Status:          req.Status,
		Repeat:          req.Repeat.input(),
		IdempotencyKey:  strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey)),
	})
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	writeJSON(w, http.StatusCreated, newMutationResponse(res))
}

func (h *handler) updateSchedule(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, authorize.WriteSchedules)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, access, pathError("id"))
		return
	}
	var req updateScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, access, err)
		return
	}

	res, err := h.schedules.Update(r.Context(), scheduling.UpdateInput{
		Access:          access,
		ID:              id,
		Scope:           domain.Scope(r.URL.Query().Get("scope")),
		SpecialistID:    req.SpecialistID,
		ClientID:        req.ClientID,
		AppointmentDate: req.AppointmentDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		ServiceName:     req.ServiceName,
		Note:            req.Note,
		Status:          req.Status,
		Repeat:          req.Repeat.input(),
	})
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	writeJSON(w, http.StatusOK, newMutationResponse(res))
}

func (h *handler) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, authorize.WriteSchedules)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, access, pathError("id"))
		return
	}

	res, err := h.schedules.Delete(r.Context(), scheduling.DeleteInput{
		Access: access,
		ID:     id,
		Scope:  domain.Scope(r.URL.Query().Get("scope")),
	})
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.BatchSummary{"summary": res.Summary})
}
