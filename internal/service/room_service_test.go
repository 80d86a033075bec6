package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	scherrors "github.com/projectdefense/scheduler/internal/scheduling/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.rooms.CreateRoom(ctx, "Annex", strptr("101"))
	require.NoError(t, err)
	assert.Equal(t, "Annex 101", room.Label())

	rooms, err := f.rooms.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	updated, err := f.rooms.UpdateRoom(ctx, room.ID, "Annex East", nil)
	require.NoError(t, err)
	assert.Equal(t, "Annex East", updated.Label())

	got, err := f.rooms.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annex East", got.Name)

	require.NoError(t, f.rooms.DeleteRoom(ctx, room.ID))

	_, err = f.rooms.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, scherrors.ErrNotFound)
}

func TestRoomValidationAndMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.rooms.CreateRoom(ctx, "", nil)
	assert.ErrorIs(t, err, scherrors.ErrValidation)

	_, err = f.rooms.UpdateRoom(ctx, uuid.New(), "Annex", nil)
	assert.ErrorIs(t, err, scherrors.ErrNotFound)

	err = f.rooms.DeleteRoom(ctx, uuid.New())
	assert.ErrorIs(t, err, scherrors.ErrNotFound)
}

func TestDeleteRoom_Referenced(t *testing.T) {
	f := newFixture(t)
	f.addAvailability(t)

	err := f.rooms.DeleteRoom(context.Background(), f.roomID)
	assert.ErrorIs(t, err, scherrors.ErrConflict)
}
