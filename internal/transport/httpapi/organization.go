package httpapi

import (
	"net/http"

	"slotwise/backend/internal/authorize"
	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/service/organization"
)

type replaceBreaksRequest struct {
	SpecialistID int64                     `json:"specialistId"`
	Breaks       []organization.BreakInput `json:"breaks"`
}

type itemResponse[T any] struct {
	Item T `json:"item"`
}

func (h *handler) listBreaks(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, authorize.ReadBreaks)
	if !ok {
		return
	}
	specialistID, err := requiredInt64(r.URL.Query(), "specialistId")
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	items, err := h.org.ListBreaks(r.Context(), access, specialistID)
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *handler) replaceBreaks(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, authorize.WriteBreaks)
	if !ok {
		return
	}
	var req replaceBreaksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, access, err)
		return
	}
	items, err := h.org.ReplaceBreaks(r.Context(), access, req.SpecialistID, req.Breaks)
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, authorize.ReadSettings)
	if !ok {
		return
	}
	s, err := h.org.GetSettings(r.Context(), access)
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse[domain.OrganizationSettings]{Item: s})
}

func (h *handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, authorize.WriteSettings)
	if !ok {
		return
	}
	var patch organization.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.fail(w, r, access, err)
		return
	}
	s, err := h.org.UpdateSettings(r.Context(), access, patch)
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse[domain.OrganizationSettings]{Item: s})
}

func (h *handler) listSpecialists(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, authorize.ReadDirectory)
	if !ok {
		return
	}
	activeOnly, err := queryBool(r.URL.Query(), "activeOnly")
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	items, err := h.org.ListSpecialists(r.Context(), access, activeOnly)
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	writeJSON(w, http.StatusOK, newItems(items))
}

func (h *handler) clientNoShowSummary(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, authorize.ReadDirectory)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := domain.NoShowFilter{OrganizationID: access.OrganizationID}
	var err error
	if filter.ClientID, err = queryInt64(q, "clientId"); err == nil {
		if filter.DateFrom, err = queryDate(q, "dateFrom"); err == nil {
			filter.DateTo, err = queryDate(q, "dateTo")
		}
	}
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	items, err := h.org.ClientNoShowSummary(r.Context(), access, filter)
	if err != nil {
		h.fail(w, r, access, err)
		return
	}
	writeJSON(w, http.StatusOK, newItems(items))
}
