// Package controller maps the engine's operations 1:1 onto HTTP/JSON
// endpoints. It owns no business rules: payloads are decoded and validated,
// typed errors become status codes, and everything else is delegated to the
// services. Authentication lives in front of this server; instructor and
// student ids arrive as opaque strings.
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/projectdefense/scheduler/internal/model"
	scherrors "github.com/projectdefense/scheduler/internal/scheduling/errors"
	"github.com/projectdefense/scheduler/internal/service"
	"go.uber.org/zap"
)

type Handlers struct {
	rooms        *service.RoomService
	availability *service.AvailabilityService
	booking      *service.BookingService
	enforcement  *service.EnforcementService
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewHandlers(
	rooms *service.RoomService,
	availability *service.AvailabilityService,
	booking *service.BookingService,
	enforcement *service.EnforcementService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		rooms:        rooms,
		availability: availability,
		booking:      booking,
		enforcement:  enforcement,
		validate:     validator.New(),
		logger:       logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError translates the engine's typed errors into HTTP statuses. The
// sentinel text is what the client sees; wrapped context stays in the logs.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	for _, mapping := range []struct {
		sentinel error
		status   int
	}{
		{scherrors.ErrValidation, http.StatusBadRequest},
		{scherrors.ErrNotFound, http.StatusNotFound},
		{scherrors.ErrConflict, http.StatusConflict},
		{scherrors.ErrSlotUnavailable, http.StatusConflict},
		{scherrors.ErrTargetUnavailable, http.StatusConflict},
		{scherrors.ErrHasPastSlots, http.StatusConflict},
		{scherrors.ErrStorageConflict, http.StatusConflict},
		{scherrors.ErrStudentBanned, http.StatusForbidden},
		{scherrors.ErrNotOwner, http.StatusForbidden},
		{scherrors.ErrNotHolder, http.StatusForbidden},
		{scherrors.ErrNoOccupant, http.StatusUnprocessableEntity},
	} {
		if errors.Is(err, mapping.sentinel) {
			status = mapping.status
			message = mapping.sentinel.Error()
			break
		}
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func (h *Handlers) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return scherrors.ErrValidation
	}
	if err := h.validate.Struct(dst); err != nil {
		return scherrors.ErrValidation
	}
	return nil
}

func parseID(params httprouter.Params, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(params.ByName(name))
	if err != nil {
		return uuid.Nil, scherrors.ErrValidation
	}
	return id, nil
}

// --- rooms ---

type roomRequest struct {
	Name   string  `json:"name" validate:"required,min=1,max=100"`
	Number *string `json:"number" validate:"omitempty,max=20"`
}

func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req roomRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), req.Name, req.Number)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *Handlers) UpdateRoom(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req roomRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	room, err := h.rooms.UpdateRoom(r.Context(), id, req.Name, req.Number)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *Handlers) DeleteRoom(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.rooms.DeleteRoom(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- availabilities ---

type createAvailabilityRequest struct {
	InstructorID        string `json:"instructor_id" validate:"required"`
	RoomID              string `json:"room_id" validate:"required,uuid"`
	FromDate            string `json:"from_date" validate:"required,datetime=2006-01-02"`
	ToDate              string `json:"to_date" validate:"required,datetime=2006-01-02"`
	StartTime           string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime             string `json:"end_time" validate:"required,datetime=15:04"`
	SlotDurationMinutes int    `json:"slot_duration_minutes" validate:"required,min=1,max=480"`
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

func parseMinute(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (h *Handlers) CreateAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createAvailabilityRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	roomID, _ := uuid.Parse(req.RoomID)
	fromDate, _ := parseDate(req.FromDate)
	toDate, _ := parseDate(req.ToDate)
	startMinute, _ := parseMinute(req.StartTime)
	endMinute, _ := parseMinute(req.EndTime)

	availability, err := h.availability.CreateAvailability(r.Context(), service.CreateAvailabilityInput{
		InstructorID:        req.InstructorID,
		RoomID:              roomID,
		FromDate:            fromDate,
		ToDate:              toDate,
		StartMinute:         startMinute,
		EndMinute:           endMinute,
		SlotDurationMinutes: req.SlotDurationMinutes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, availability)
}

func (h *Handlers) ListAvailabilities(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	instructorID := r.URL.Query().Get("instructor_id")
	if instructorID == "" {
		h.writeError(w, scherrors.ErrValidation)
		return
	}

	availabilities, err := h.availability.ListAvailabilities(r.Context(), instructorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilities)
}

type actorRequest struct {
	InstructorID string `json:"instructor_id" validate:"required"`
}

func (h *Handlers) DeleteAvailability(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req actorRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.availability.DeleteAvailability(r.Context(), id, req.InstructorID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- slots ---

func (h *Handlers) ListOpenSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	slots, err := h.booking.ListOpenSlots(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *Handlers) GetStudentActiveSlot(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	slot, err := h.booking.GetStudentActiveSlot(r.Context(), params.ByName("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if slot == nil {
		h.writeError(w, scherrors.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

type studentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

func (h *Handlers) BookSlot(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req studentRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	slot, err := h.booking.Book(r.Context(), id, req.StudentID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req studentRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.booking.CancelBooking(r.Context(), id, req.StudentID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handlers) FreeSlot(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req actorRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.booking.FreeSlot(r.Context(), id, req.InstructorID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type reassignRequest struct {
	OldSlotID    string `json:"old_slot_id" validate:"required,uuid"`
	NewSlotID    string `json:"new_slot_id" validate:"required,uuid"`
	InstructorID string `json:"instructor_id" validate:"required"`
}

func (h *Handlers) ReassignSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req reassignRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	oldID, _ := uuid.Parse(req.OldSlotID)
	newID, _ := uuid.Parse(req.NewSlotID)

	if err := h.booking.Reassign(r.Context(), oldID, newID, req.InstructorID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handlers) ListInstructorSchedule(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		h.writeError(w, scherrors.ErrValidation)
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		h.writeError(w, scherrors.ErrValidation)
		return
	}

	slots, err := h.booking.ListInstructorSchedule(r.Context(), params.ByName("id"), from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// --- blocked periods ---

type createBlockedPeriodRequest struct {
	InstructorID string    `json:"instructor_id" validate:"required"`
	RoomID       *string   `json:"room_id" validate:"omitempty,uuid"`
	FromUTC      time.Time `json:"from_utc" validate:"required"`
	ToUTC        time.Time `json:"to_utc" validate:"required"`
	Reason       *string   `json:"reason" validate:"omitempty,max=500"`
}

type blockedPeriodResponse struct {
	Period        *model.BlockedPeriod `json:"period"`
	CanceledSlots []uuid.UUID          `json:"canceled_slot_ids"`
}

func (h *Handlers) CreateBlockedPeriod(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createBlockedPeriodRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	var roomID *uuid.UUID
	if req.RoomID != nil {
		id, _ := uuid.Parse(*req.RoomID)
		roomID = &id
	}

	period, canceled, err := h.enforcement.CreateBlockedPeriod(r.Context(), service.CreateBlockedPeriodInput{
		InstructorID: req.InstructorID,
		RoomID:       roomID,
		FromUTC:      req.FromUTC,
		ToUTC:        req.ToUTC,
		Reason:       req.Reason,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, blockedPeriodResponse{Period: period, CanceledSlots: canceled})
}

func (h *Handlers) ListBlockedPeriods(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	instructorID := r.URL.Query().Get("instructor_id")
	if instructorID == "" {
		h.writeError(w, scherrors.ErrValidation)
		return
	}

	periods, err := h.enforcement.ListBlockedPeriods(r.Context(), instructorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

// --- bans ---

type upsertBanRequest struct {
	StudentID string     `json:"student_id" validate:"required"`
	Reason    *string    `json:"reason" validate:"omitempty,max=500"`
	UntilUTC  *time.Time `json:"until_utc"`
}

type banResponse struct {
	Ban        *model.StudentBan `json:"ban"`
	FreedSlots []uuid.UUID       `json:"freed_slot_ids"`
}

func (h *Handlers) UpsertBan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req upsertBanRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	ban, freed, err := h.enforcement.UpsertBan(r.Context(), req.StudentID, req.Reason, req.UntilUTC)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, banResponse{Ban: ban, FreedSlots: freed})
}

func (h *Handlers) ListBans(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bans, err := h.enforcement.ListBans(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bans)
}
