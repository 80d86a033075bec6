package service_test

import (
	"context"
	"testing"
	"time"

	scherrors "github.com/projectdefense/scheduler/internal/scheduling/errors"
	"github.com/projectdefense/scheduler/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestUpsertBan_FreesHeldSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addAvailability(t)
	slots := f.openSlots(t)

	_, err := f.booking.Book(ctx, slots[0].ID, "student-1")
	require.NoError(t, err)

	ban, freed, err := f.enforcement.UpsertBan(ctx, "student-1", strptr("no-shows"), nil)
	require.NoError(t, err)
	require.NotNil(t, ban)
	require.Len(t, freed, 1)
	assert.Equal(t, slots[0].ID, freed[0])

	banned, err := f.enforcement.IsBanned(ctx, "student-1")
	require.NoError(t, err)
	assert.True(t, banned)

	assert.Len(t, f.openSlots(t), 2, "freed slots return to the open pool")

	active, err := f.booking.GetStudentActiveSlot(ctx, "student-1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestUpsertBan_UpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _, err := f.enforcement.UpsertBan(ctx, "student-1", strptr("first"), nil)
	require.NoError(t, err)

	until := f.clock.now.Add(48 * time.Hour)
	second, _, err := f.enforcement.UpsertBan(ctx, "student-1", strptr("second"), &until)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-banning updates the existing record")

	bans, err := f.enforcement.ListBans(ctx)
	require.NoError(t, err)
	require.Len(t, bans, 1)
	require.NotNil(t, bans[0].Reason)
	assert.Equal(t, "second", *bans[0].Reason)
	require.NotNil(t, bans[0].UntilUTC)
	assert.True(t, bans[0].UntilUTC.Equal(until))
}

func TestUpsertBan_Validation(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.enforcement.UpsertBan(context.Background(), "", nil, nil)
	assert.ErrorIs(t, err, scherrors.ErrValidation)
}

func TestIsBanned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	banned, err := f.enforcement.IsBanned(ctx, "student-1")
	require.NoError(t, err)
	assert.False(t, banned, "no record means not banned")

	until := f.clock.now.Add(-time.Hour)
	_, _, err = f.enforcement.UpsertBan(ctx, "student-1", nil, &until)
	require.NoError(t, err)

	banned, err = f.enforcement.IsBanned(ctx, "student-1")
	require.NoError(t, err)
	assert.False(t, banned, "an expired ban is inactive even before the sweeper runs")
}

func TestDeleteExpiredBans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expired := f.clock.now.Add(-time.Hour)
	_, _, err := f.enforcement.UpsertBan(ctx, "student-1", nil, &expired)
	require.NoError(t, err)
	_, _, err = f.enforcement.UpsertBan(ctx, "student-2", nil, nil)
	require.NoError(t, err)

	removed, err := f.enforcement.DeleteExpiredBans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	bans, err := f.enforcement.ListBans(ctx)
	require.NoError(t, err)
	require.Len(t, bans, 1)
	assert.Equal(t, "student-2", bans[0].StudentID, "indefinite bans never expire")
}

func TestCreateBlockedPeriod_CancelsOverlappingSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addAvailability(t)
	slots := f.openSlots(t)

	_, err := f.booking.Book(ctx, slots[0].ID, "student-1")
	require.NoError(t, err)

	period, canceled, err := f.enforcement.CreateBlockedPeriod(ctx, service.CreateBlockedPeriodInput{
		InstructorID: "instructor-1",
		FromUTC:      slots[0].StartUTC,
		ToUTC:        slots[0].EndUTC,
		Reason:       strptr("maintenance"),
	})
	require.NoError(t, err)
	require.NotNil(t, period)
	require.Len(t, canceled, 1)
	assert.Equal(t, slots[0].ID, canceled[0])

	// The canceled slot is gone for good and its occupant is vacated.
	open := f.openSlots(t)
	require.Len(t, open, 1)
	assert.Equal(t, slots[1].ID, open[0].ID)

	active, err := f.booking.GetStudentActiveSlot(ctx, "student-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	periods, err := f.enforcement.ListBlockedPeriods(ctx, "instructor-1")
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, period.ID, periods[0].ID)
}

func TestCreateBlockedPeriod_RoomScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addAvailability(t)
	slots := f.openSlots(t)

	otherRoom, err := f.rooms.CreateRoom(ctx, "Annex", nil)
	require.NoError(t, err)

	// A block on a room the availability does not use touches nothing.
	_, canceled, err := f.enforcement.CreateBlockedPeriod(ctx, service.CreateBlockedPeriodInput{
		InstructorID: "instructor-1",
		RoomID:       &otherRoom.ID,
		FromUTC:      slots[0].StartUTC,
		ToUTC:        slots[1].EndUTC,
	})
	require.NoError(t, err)
	assert.Empty(t, canceled)
	assert.Len(t, f.openSlots(t), 2)
}

func TestCreateBlockedPeriod_OtherInstructorUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addAvailability(t)
	slots := f.openSlots(t)

	_, canceled, err := f.enforcement.CreateBlockedPeriod(ctx, service.CreateBlockedPeriodInput{
		InstructorID: "instructor-2",
		FromUTC:      slots[0].StartUTC,
		ToUTC:        slots[1].EndUTC,
	})
	require.NoError(t, err)
	assert.Empty(t, canceled)
	assert.Len(t, f.openSlots(t), 2)
}

func TestCreateBlockedPeriod_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.now

	_, _, err := f.enforcement.CreateBlockedPeriod(ctx, service.CreateBlockedPeriodInput{
		InstructorID: "",
		FromUTC:      now,
		ToUTC:        now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, scherrors.ErrValidation)

	_, _, err = f.enforcement.CreateBlockedPeriod(ctx, service.CreateBlockedPeriodInput{
		InstructorID: "instructor-1",
		FromUTC:      now.Add(time.Hour),
		ToUTC:        now,
	})
	assert.ErrorIs(t, err, scherrors.ErrValidation)
}
