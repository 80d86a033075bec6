package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/projectdefense/scheduler/internal/model"
)

// Store is the storage collaborator the engine runs against. Every mutating
// operation in the services is a single read-check-write unit executed inside
// InTx, so the backing store decides how to make it atomic.
type Store interface {
	Rooms() RoomStore
	Availabilities() AvailabilityStore
	Slots() SlotStore
	BlockedPeriods() BlockedPeriodStore
	Bans() BanStore

	// InTx runs fn against a view of the store bound to one transaction.
	// If fn returns an error the transaction is rolled back and no partial
	// state remains.
	InTx(ctx context.Context, fn func(Store) error) error
}

type RoomStore interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error)
	List(ctx context.Context) ([]*model.Room, error)
	Update(ctx context.Context, room *model.Room) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ReferencedByAvailability reports whether any availability points at the room.
	ReferencedByAvailability(ctx context.Context, id uuid.UUID) (bool, error)
}

type AvailabilityStore interface {
	Create(ctx context.Context, availability *model.Availability) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Availability, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]*model.Availability, error)
	ListByInstructorRoom(ctx context.Context, instructorID string, roomID uuid.UUID) ([]*model.Availability, error)
	// Delete removes the availability and cascades to its slots.
	Delete(ctx context.Context, id uuid.UUID) error
}

type SlotStore interface {
	CreateBatch(ctx context.Context, slots []*model.Slot) error
	// GetByID returns the slot with its parent availability joined, or nil
	// when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	// ListOpen returns bookable slots starting after now, ascending by start.
	ListOpen(ctx context.Context, now time.Time) ([]*model.Slot, error)
	// ListByInstructor returns the instructor's non-canceled slots ending
	// after from and starting before to, ascending by start.
	ListByInstructor(ctx context.Context, instructorID string, from, to time.Time) ([]*model.Slot, error)
	// ActiveByStudent returns the student's held, non-canceled slot ending
	// after now, or nil when there is none.
	ActiveByStudent(ctx context.Context, studentID string, now time.Time) (*model.Slot, error)
	HasStartedSlots(ctx context.Context, availabilityID uuid.UUID, now time.Time) (bool, error)
	// Claim sets the occupant if and only if the slot is still open and in
	// the future; a lost race reports ErrSlotUnavailable.
	Claim(ctx context.Context, slotID uuid.UUID, studentID string, now time.Time) error
	// Release clears the occupant if and only if the given student still
	// holds the slot; a lost race reports ErrStorageConflict.
	Release(ctx context.Context, slotID uuid.UUID, studentID string) error
	// CancelOverlapping cancels and vacates every not-yet-canceled slot of
	// the period's instructor (and room, if set) whose interval overlaps the
	// period. Returns the ids of the affected slots.
	CancelOverlapping(ctx context.Context, period *model.BlockedPeriod) ([]uuid.UUID, error)
	// FreeAllForStudent vacates the student's future non-canceled slots
	// without canceling them. Returns the ids of the affected slots.
	FreeAllForStudent(ctx context.Context, studentID string, now time.Time) ([]uuid.UUID, error)
}

type BlockedPeriodStore interface {
	Create(ctx context.Context, period *model.BlockedPeriod) error
	ListByInstructor(ctx context.Context, instructorID string) ([]*model.BlockedPeriod, error)
}

type BanStore interface {
	// GetByStudent returns nil when the student has no ban record.
	GetByStudent(ctx context.Context, studentID string) (*model.StudentBan, error)
	// Upsert inserts the ban or, for an already-banned student, updates
	// reason and until in place.
	Upsert(ctx context.Context, ban *model.StudentBan) error
	List(ctx context.Context) ([]*model.StudentBan, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
