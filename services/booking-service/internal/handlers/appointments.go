package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/validation"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/workflow"
)

type AppointmentStore interface {
	List(ctx context.Context) ([]model.Appointment, error)
	ListRecent(ctx context.Context) ([]model.Appointment, error)
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type Booker interface {
	Submit(ctx context.Context, form model.Form) (workflow.Outcome, error)
}

// CancelNotifier is told about every successful cancellation.
type CancelNotifier interface {
	Cancelled(ctx context.Context, appointmentID string)
}

type AppointmentHandler struct {
	store  AppointmentStore
	booker Booker
	notify CancelNotifier
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

func NewAppointmentHandler(store AppointmentStore, booker Booker, notify CancelNotifier, logger *slog.Logger, loc *time.Location) *AppointmentHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AppointmentHandler{
		store:  store,
		booker: booker,
		notify: notify,
		logger: logger,
		now:    time.Now,
		loc:    loc,
	}
}

// Register mounts the public API on mux.
func (h *AppointmentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/shop", h.Shop)
	mux.HandleFunc("GET /api/v1/slots", h.Slots)
	mux.HandleFunc("POST /api/v1/appointments", h.Create)
	mux.HandleFunc("GET /api/v1/appointments", h.List)
	mux.HandleFunc("GET /api/v1/appointments/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/appointments/{id}", h.Delete)
}

type appointmentItem struct {
	ID           string            `json:"id"`
	ClientName   string            `json:"clientName"`
	Date         string            `json:"date"`
	Time         string            `json:"time"`
	Service      model.ServiceKind `json:"service"`
	CreatedAt    string            `json:"createdAt"`
	DateLabel    string            `json:"dateLabel"`
	TimeLabel    string            `json:"timeLabel"`
	ServiceLabel string            `json:"serviceLabel"`
	Past         bool              `json:"past"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type slotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

func (h *AppointmentHandler) Shop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Info())
}

func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Field: "date", Message: "date is required"})
		return
	}

	appts, err := h.store.List(r.Context())
	if err != nil {
		h.storageError(w, "failed to load booked slots", err)
		return
	}
	var booked []string
	for _, a := range appts {
		if a.Date == date {
			booked = append(booked, validation.CanonicalTime(a.Time))
		}
	}

	open := availability.OpenSlots(date, catalog.BookableTimes(), booked, h.now().In(h.loc), catalog.ClosedDays()...)
	writeJSON(w, http.StatusOK, slotsResponse{Date: date, Slots: open})
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form model.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: "invalid json body"})
		return
	}

	out, err := h.booker.Submit(r.Context(), form)
	var verr *workflow.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation", Field: verr.Field, Message: verr.Message})
		return
	case errors.Is(err, workflow.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "conflict", Message: workflow.MsgConflict})
		return
	case err != nil:
		h.logger.Error("booking failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "persistence", Message: workflow.MsgPersistence})
		return
	}

	writeJSON(w, http.StatusCreated, h.item(*out.Appointment))
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	appts, err := h.store.ListRecent(r.Context())
	if err != nil {
		h.storageError(w, "Não foi possível carregar os agendamentos.", err)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, h.item(a))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	appt, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.storageError(w, "failed to load appointment", err)
		return
	}
	if appt == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: storage.ErrNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.item(*appt))
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.store.Delete(r.Context(), id); err != nil {
		h.storageError(w, "Não foi possível cancelar o agendamento.", err)
		return
	}
	if h.notify != nil {
		h.notify.Cancelled(r.Context(), id)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *AppointmentHandler) item(a model.Appointment) appointmentItem {
	return appointmentItem{
		ID:           a.ID,
		ClientName:   a.ClientName,
		Date:         a.Date,
		Time:         a.Time,
		Service:      a.Service,
		CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
		DateLabel:    validation.FormatDate(a.Date),
		TimeLabel:    validation.FormatTime(a.Time),
		ServiceLabel: catalog.ServiceLabel(a.Service),
		Past:         !validation.IsFutureDateTimeAt(a.Date, a.Time, h.now().In(h.loc)),
	}
}

func (h *AppointmentHandler) storageError(w http.ResponseWriter, msg string, err error) {
	code := "storage"
	if errors.Is(err, storage.ErrCorrupt) {
		code = "corrupt"
	}
	h.logger.Error("appointment storage error", "code", code, "err", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
