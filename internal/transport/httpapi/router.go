// Package httpapi exposes the scheduling engine over JSON HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"slotwise/backend/internal/authorize"
	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/service/organization"
	"slotwise/backend/internal/service/scheduling"
)

type ScheduleService interface {
	List(ctx context.Context, filter domain.ScheduleFilter) ([]domain.AppointmentSchedule, error)
	Create(ctx context.Context, in scheduling.CreateInput) (scheduling.Result, error)
	Update(ctx context.Context, in scheduling.UpdateInput) (scheduling.Result, error)
	Delete(ctx context.Context, in scheduling.DeleteInput) (scheduling.Result, error)
}

type OrganizationService interface {
	ListBreaks(ctx context.Context, access domain.Access, specialistID int64) ([]domain.SpecialistBreak, error)
	ReplaceBreaks(ctx context.Context, access domain.Access, specialistID int64, inputs []organization.BreakInput) ([]domain.SpecialistBreak, error)
	GetSettings(ctx context.Context, access domain.Access) (domain.OrganizationSettings, error)
	UpdateSettings(ctx context.Context, access domain.Access, patch organization.SettingsPatch) (domain.OrganizationSettings, error)
	ListSpecialists(ctx context.Context, access domain.Access, activeOnly bool) ([]domain.Specialist, error)
	ClientNoShowSummary(ctx context.Context, access domain.Access, filter domain.NoShowFilter) ([]domain.ClientNoShowSummary, error)
}

type AccessResolver interface {
	RequireAccess(r *http.Request, perm authorize.Permission) (domain.Access, error)
}

// Subscriber attaches a WebSocket connection to an organization's change stream.
type Subscriber interface {
	Serve(w http.ResponseWriter, r *http.Request, organizationID string)
}

type Deps struct {
	Schedules    ScheduleService
	Organization OrganizationService
	Access       AccessResolver
	Subscriber   Subscriber

	// Ready reports whether dependencies are reachable; nil means always ready.
	Ready func(ctx context.Context) error

	Log            *slog.Logger
	RequestTimeout time.Duration
}

type handler struct {
	schedules ScheduleService
	org       OrganizationService
	access    AccessResolver
	sub       Subscriber
	ready     func(ctx context.Context) error
	log       *slog.Logger
}

func NewRouter(d Deps) *mux.Router {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http"))
	h := &handler{
		schedules: d.Schedules,
		org:       d.Organization,
		access:    d.Access,
		sub:       d.Subscriber,
		ready:     d.Ready,
		log:       log,
	}

	r := mux.NewRouter()
	r.Use(requestLogging(log))
	r.Use(recovery(log))

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	if h.sub != nil {
		r.HandleFunc("/ws", h.subscribe).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	api.Use(requestTimeout(d.RequestTimeout))

	api.HandleFunc("/schedules", h.listSchedules).Methods(http.MethodGet)
	api.HandleFunc("/schedules", h.createSchedule).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}", h.updateSchedule).Methods(http.MethodPatch)
	api.HandleFunc("/schedules/{id}", h.deleteSchedule).Methods(http.MethodDelete)

	api.HandleFunc("/breaks", h.listBreaks).Methods(http.MethodGet)
	api.HandleFunc("/breaks", h.replaceBreaks).Methods(http.MethodPut)

	api.HandleFunc("/settings", h.getSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.updateSettings).Methods(http.MethodPatch)

	api.HandleFunc("/specialists", h.listSpecialists).Methods(http.MethodGet)
	api.HandleFunc("/client-no-show-summary", h.clientNoShowSummary).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorBody(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: "route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorBody(w, http.StatusMethodNotAllowed, errorResponse{Error: "method_not_allowed", Message: "method not allowed"})
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			loggerFrom(r.Context(), h.log).Warn("readiness check failed", slog.Any("err", err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) subscribe(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, authorize.ReadSchedules)
	if !ok {
		return
	}
	h.sub.Serve(w, r, access.OrganizationID)
}

// authorize resolves the caller and writes the failure response itself.
func (h *handler) authorize(w http.ResponseWriter, r *http.Request, perm authorize.Permission) (domain.Access, bool) {
	access, err := h.access.RequireAccess(r, perm)
	if err != nil {
		writeError(w, r, h.log, err)
		return domain.Access{}, false
	}
	return access, true
}

// fail logs with the caller's organization attached.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, access domain.Access, err error) {
	log := loggerFrom(r.Context(), h.log).With(
		slog.String("organization_id", access.OrganizationID),
		slog.String("user_id", access.UserID),
	)
	writeError(w, r, log, err)
}
