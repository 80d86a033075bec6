package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/projectdefense/scheduler/internal/model"
	"github.com/projectdefense/scheduler/internal/service"
	"github.com/projectdefense/scheduler/internal/storetest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testClock is a settable Clock; tests advance it to move slots into the past.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

type fixture struct {
	store        *storetest.Store
	clock        *testClock
	rooms        *service.RoomService
	availability *service.AvailabilityService
	booking      *service.BookingService
	enforcement  *service.EnforcementService

	roomID uuid.UUID
}

// newFixture builds the services over an in-memory store with the clock frozen
// at 2024-01-10 08:00 UTC and one room already in the catalog.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := storetest.New()
	clock := &testClock{now: time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)}
	logger := zap.NewNop()

	f := &fixture{
		store:        store,
		clock:        clock,
		rooms:        service.NewRoomService(store, logger),
		availability: service.NewAvailabilityService(store, clock, time.UTC, logger),
		booking:      service.NewBookingService(store, clock, logger),
		enforcement:  service.NewEnforcementService(store, clock, logger),
	}

	room, err := f.rooms.CreateRoom(context.Background(), "Lecture Hall", nil)
	require.NoError(t, err)
	f.roomID = room.ID

	return f
}

// addAvailability creates a one-day availability on 2024-01-11 from 09:00 to
// 11:00 with 60-minute slots, yielding two future slots.
func (f *fixture) addAvailability(t *testing.T) *model.Availability {
	t.Helper()

	a, err := f.availability.CreateAvailability(context.Background(), service.CreateAvailabilityInput{
		InstructorID:        "instructor-1",
		RoomID:              f.roomID,
		FromDate:            time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		ToDate:              time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		StartMinute:         9 * 60,
		EndMinute:           11 * 60,
		SlotDurationMinutes: 60,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) openSlots(t *testing.T) []*model.Slot {
	t.Helper()

	slots, err := f.booking.ListOpenSlots(context.Background())
	require.NoError(t, err)
	return slots
}
