package controller_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/projectdefense/scheduler/internal/controller"
	"github.com/projectdefense/scheduler/internal/model"
	"github.com/projectdefense/scheduler/internal/service"
	"github.com/projectdefense/scheduler/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type api struct {
	router http.Handler
	roomID uuid.UUID
}

// newAPI stands up the full router over an in-memory store with the clock
// frozen at 2024-01-10 08:00 UTC and one room created.
func newAPI(t *testing.T) *api {
	t.Helper()

	store := storetest.New()
	clock := fixedClock{now: time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)}
	logger := zap.NewNop()

	handlers := controller.NewHandlers(
		service.NewRoomService(store, logger),
		service.NewAvailabilityService(store, clock, time.UTC, logger),
		service.NewBookingService(store, clock, logger),
		service.NewEnforcementService(store, clock, logger),
		logger,
	)
	a := &api{router: controller.NewRouter(handlers)}

	resp := a.do(t, http.MethodPost, "/api/rooms", map[string]any{"name": "Lecture Hall"})
	require.Equal(t, http.StatusCreated, resp.Code)

	var room model.Room
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &room))
	a.roomID = room.ID

	return a
}

func (a *api) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// addAvailability creates a 2024-01-11 09:00-11:00 availability with 60-minute
// slots and returns the two generated slots, earliest first.
func (a *api) addAvailability(t *testing.T) []*model.Slot {
	t.Helper()

	resp := a.do(t, http.MethodPost, "/api/availabilities", map[string]any{
		"instructor_id":         "instructor-1",
		"room_id":               a.roomID.String(),
		"from_date":             "2024-01-11",
		"to_date":               "2024-01-11",
		"start_time":            "09:00",
		"end_time":              "11:00",
		"slot_duration_minutes": 60,
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	return a.openSlots(t)
}

func (a *api) openSlots(t *testing.T) []*model.Slot {
	t.Helper()

	resp := a.do(t, http.MethodGet, "/api/open-slots", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var slots []*model.Slot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &slots))
	return slots
}

func TestRoomEndpoints(t *testing.T) {
	a := newAPI(t)

	resp := a.do(t, http.MethodPost, "/api/rooms", map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = a.do(t, http.MethodGet, "/api/rooms", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var rooms []*model.Room
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rooms))
	assert.Len(t, rooms, 1)

	resp = a.do(t, http.MethodPut, "/api/rooms/"+a.roomID.String(), map[string]any{"name": "Main Hall"})
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = a.do(t, http.MethodPut, "/api/rooms/not-a-uuid", map[string]any{"name": "Main Hall"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = a.do(t, http.MethodDelete, "/api/rooms/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = a.do(t, http.MethodDelete, "/api/rooms/"+a.roomID.String(), nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func TestAvailabilityEndpoints(t *testing.T) {
	a := newAPI(t)
	slots := a.addAvailability(t)
	require.Len(t, slots, 2)

	// Overlapping definition for the same instructor and room.
	resp := a.do(t, http.MethodPost, "/api/availabilities", map[string]any{
		"instructor_id":         "instructor-1",
		"room_id":               a.roomID.String(),
		"from_date":             "2024-01-11",
		"to_date":               "2024-01-11",
		"start_time":            "10:00",
		"end_time":              "12:00",
		"slot_duration_minutes": 60,
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = a.do(t, http.MethodPost, "/api/availabilities", map[string]any{
		"instructor_id":         "instructor-1",
		"room_id":               a.roomID.String(),
		"from_date":             "11.01.2024",
		"to_date":               "2024-01-11",
		"start_time":            "09:00",
		"end_time":              "11:00",
		"slot_duration_minutes": 60,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code, "malformed date must fail validation")

	resp = a.do(t, http.MethodGet, "/api/availabilities?instructor_id=instructor-1", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var availabilities []*model.Availability
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &availabilities))
	require.Len(t, availabilities, 1)

	resp = a.do(t, http.MethodGet, "/api/availabilities", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	path := "/api/availabilities/" + availabilities[0].ID.String()
	resp = a.do(t, http.MethodDelete, path, map[string]any{"instructor_id": "instructor-2"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = a.do(t, http.MethodDelete, path, map[string]any{"instructor_id": "instructor-1"})
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, a.openSlots(t))
}

func TestBookingEndpoints(t *testing.T) {
	a := newAPI(t)
	slots := a.addAvailability(t)

	slotPath := func(id uuid.UUID, action string) string {
		return fmt.Sprintf("/api/slots/%s/%s", id, action)
	}

	resp := a.do(t, http.MethodPost, slotPath(slots[0].ID, "book"), map[string]any{"student_id": "student-1"})
	require.Equal(t, http.StatusOK, resp.Code)
	var booked model.Slot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &booked))
	require.NotNil(t, booked.StudentID)
	assert.Equal(t, "student-1", *booked.StudentID)

	resp = a.do(t, http.MethodPost, slotPath(slots[0].ID, "book"), map[string]any{"student_id": "student-2"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = a.do(t, http.MethodGet, "/api/students/student-1/active-slot", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = a.do(t, http.MethodGet, "/api/students/student-2/active-slot", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = a.do(t, http.MethodPost, slotPath(slots[0].ID, "cancel"), map[string]any{"student_id": "student-2"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = a.do(t, http.MethodPost, slotPath(slots[1].ID, "free"), map[string]any{"instructor_id": "instructor-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = a.do(t, http.MethodPost, "/api/reassign", map[string]any{
		"old_slot_id":   slots[0].ID.String(),
		"new_slot_id":   slots[1].ID.String(),
		"instructor_id": "instructor-1",
	})
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = a.do(t, http.MethodPost, "/api/reassign", map[string]any{
		"old_slot_id":   "not-a-uuid",
		"new_slot_id":   slots[1].ID.String(),
		"instructor_id": "instructor-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = a.do(t, http.MethodPost, slotPath(slots[1].ID, "cancel"), map[string]any{"student_id": "student-1"})
	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func TestScheduleEndpoint(t *testing.T) {
	a := newAPI(t)
	a.addAvailability(t)

	resp := a.do(t, http.MethodGet,
		"/api/instructors/instructor-1/schedule?from=2024-01-11T00:00:00Z&to=2024-01-12T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var slots []*model.Slot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &slots))
	assert.Len(t, slots, 2)

	resp = a.do(t, http.MethodGet, "/api/instructors/instructor-1/schedule?from=bad", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestBanEndpoints(t *testing.T) {
	a := newAPI(t)
	slots := a.addAvailability(t)

	resp := a.do(t, http.MethodPost, fmt.Sprintf("/api/slots/%s/book", slots[0].ID), map[string]any{"student_id": "student-1"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = a.do(t, http.MethodPost, "/api/bans", map[string]any{"student_id": "student-1", "reason": "no-shows"})
	require.Equal(t, http.StatusCreated, resp.Code)
	var ban struct {
		FreedSlots []uuid.UUID `json:"freed_slot_ids"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ban))
	require.Len(t, ban.FreedSlots, 1)
	assert.Equal(t, slots[0].ID, ban.FreedSlots[0])

	resp = a.do(t, http.MethodPost, fmt.Sprintf("/api/slots/%s/book", slots[1].ID), map[string]any{"student_id": "student-1"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = a.do(t, http.MethodGet, "/api/bans", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var bans []*model.StudentBan
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &bans))
	assert.Len(t, bans, 1)
}

func TestBlockedPeriodEndpoints(t *testing.T) {
	a := newAPI(t)
	slots := a.addAvailability(t)

	resp := a.do(t, http.MethodPost, "/api/blocked-periods", map[string]any{
		"instructor_id": "instructor-1",
		"from_utc":      slots[0].StartUTC.Format(time.RFC3339),
		"to_utc":        slots[0].EndUTC.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	var block struct {
		CanceledSlots []uuid.UUID `json:"canceled_slot_ids"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &block))
	require.Len(t, block.CanceledSlots, 1)
	assert.Equal(t, slots[0].ID, block.CanceledSlots[0])

	assert.Len(t, a.openSlots(t), 1)

	resp = a.do(t, http.MethodGet, "/api/blocked-periods?instructor_id=instructor-1", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = a.do(t, http.MethodGet, "/api/blocked-periods", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
