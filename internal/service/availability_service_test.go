package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	scherrors "github.com/projectdefense/scheduler/internal/scheduling/errors"
	"github.com/projectdefense/scheduler/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.addAvailability(t)
	assert.Equal(t, "instructor-1", a.InstructorID)

	slots := f.openSlots(t)
	require.Len(t, slots, 2)
	assert.Equal(t, time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC), slots[0].StartUTC)
	assert.Equal(t, time.Date(2024, 1, 11, 10, 0, 0, 0, time.UTC), slots[1].StartUTC)
	require.NotNil(t, slots[0].Availability)
	assert.Equal(t, a.ID, slots[0].Availability.ID)
	require.NotNil(t, slots[0].Availability.Room)
	assert.Equal(t, "Lecture Hall", slots[0].Availability.Room.Name)

	listed, err := f.availability.ListAvailabilities(ctx, "instructor-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, a.ID, listed[0].ID)
}

func TestCreateAvailability_RoomMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.availability.CreateAvailability(context.Background(), service.CreateAvailabilityInput{
		InstructorID:        "instructor-1",
		RoomID:              uuid.New(),
		FromDate:            time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		ToDate:              time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		StartMinute:         9 * 60,
		EndMinute:           10 * 60,
		SlotDurationMinutes: 60,
	})
	assert.ErrorIs(t, err, scherrors.ErrNotFound)
}

func TestCreateAvailability_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.availability.CreateAvailability(context.Background(), service.CreateAvailabilityInput{
		InstructorID:        "instructor-1",
		RoomID:              f.roomID,
		FromDate:            time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		ToDate:              time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		StartMinute:         9 * 60,
		EndMinute:           10 * 60,
		SlotDurationMinutes: 0,
	})
	assert.ErrorIs(t, err, scherrors.ErrValidation)
	assert.Empty(t, f.openSlots(t), "nothing may be written on a validation failure")
}

func TestCreateAvailability_OverlapRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addAvailability(t)

	// Same instructor and room, shared dates, intersecting daily window.
	_, err := f.availability.CreateAvailability(ctx, service.CreateAvailabilityInput{
		InstructorID:        "instructor-1",
		RoomID:              f.roomID,
		FromDate:            time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		ToDate:              time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		StartMinute:         10 * 60,
		EndMinute:           12 * 60,
		SlotDurationMinutes: 60,
	})
	assert.ErrorIs(t, err, scherrors.ErrConflict)
	assert.Len(t, f.openSlots(t), 2, "a rejected definition must not add slots")

	// A disjoint daily window on the same dates is fine.
	_, err = f.availability.CreateAvailability(ctx, service.CreateAvailabilityInput{
		InstructorID:        "instructor-1",
		RoomID:              f.roomID,
		FromDate:            time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		ToDate:              time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		StartMinute:         14 * 60,
		EndMinute:           15 * 60,
		SlotDurationMinutes: 60,
	})
	require.NoError(t, err)

	// Another instructor may share the room and window.
	_, err = f.availability.CreateAvailability(ctx, service.CreateAvailabilityInput{
		InstructorID:        "instructor-2",
		RoomID:              f.roomID,
		FromDate:            time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		ToDate:              time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		StartMinute:         9 * 60,
		EndMinute:           11 * 60,
		SlotDurationMinutes: 60,
	})
	require.NoError(t, err)
}

func TestCreateAvailability_SkipsBlockedPeriods(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.enforcement.CreateBlockedPeriod(ctx, service.CreateBlockedPeriodInput{
		InstructorID: "instructor-1",
		FromUTC:      time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC),
		ToUTC:        time.Date(2024, 1, 11, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	f.addAvailability(t)

	// The 09:00 slot falls inside the block and is never generated.
	slots := f.openSlots(t)
	require.Len(t, slots, 1)
	assert.Equal(t, time.Date(2024, 1, 11, 10, 0, 0, 0, time.UTC), slots[0].StartUTC)
}

func TestDeleteAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAvailability(t)

	require.NoError(t, f.availability.DeleteAvailability(ctx, a.ID, "instructor-1"))
	assert.Empty(t, f.openSlots(t), "deleting an availability removes its slots")

	err := f.availability.DeleteAvailability(ctx, a.ID, "instructor-1")
	assert.ErrorIs(t, err, scherrors.ErrNotFound)
}

func TestDeleteAvailability_NotOwner(t *testing.T) {
	f := newFixture(t)
	a := f.addAvailability(t)

	err := f.availability.DeleteAvailability(context.Background(), a.ID, "instructor-2")
	assert.ErrorIs(t, err, scherrors.ErrNotOwner)
	assert.Len(t, f.openSlots(t), 2)
}

func TestDeleteAvailability_StartedSlots(t *testing.T) {
	f := newFixture(t)
	a := f.addAvailability(t)

	// Past the first slot's start: history must stay on record.
	f.clock.now = time.Date(2024, 1, 11, 9, 30, 0, 0, time.UTC)

	err := f.availability.DeleteAvailability(context.Background(), a.ID, "instructor-1")
	assert.ErrorIs(t, err, scherrors.ErrHasPastSlots)
}
