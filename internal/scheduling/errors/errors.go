// Package errors defines the typed failures the scheduling engine reports.
// Services wrap these sentinels with context; transport layers map them onto
// user-facing responses and never see free-form text from the core.
package errors

import "errors"

var (
	// ErrValidation covers malformed input ranges and durations, rejected
	// before any mutation.
	ErrValidation = errors.New("invalid input")

	// ErrConflict is returned when a new availability overlaps an existing
	// one for the same instructor and room, or a referenced record blocks
	// the operation.
	ErrConflict = errors.New("conflicting record exists")

	ErrNotFound = errors.New("record not found")

	// ErrSlotUnavailable means the slot cannot be booked right now: absent,
	// occupied, canceled, blocked or already started.
	ErrSlotUnavailable = errors.New("slot is not available")

	ErrStudentBanned = errors.New("student is banned")

	// ErrNotOwner: the acting instructor does not own the slot's availability.
	ErrNotOwner = errors.New("availability does not belong to instructor")

	// ErrNotHolder: the acting student does not hold the slot.
	ErrNotHolder = errors.New("slot is not held by this student")

	// ErrNoOccupant: a reassignment source with nobody to move.
	ErrNoOccupant = errors.New("slot has no student to reassign")

	// ErrTargetUnavailable: a reassignment target that is not open.
	ErrTargetUnavailable = errors.New("target slot is not available")

	// ErrHasPastSlots blocks deletion of an availability that already has
	// slots with a start time in the past.
	ErrHasPastSlots = errors.New("availability has slots in the past")

	// ErrStorageConflict signals a lost race against a concurrent
	// transaction; the caller may retry.
	ErrStorageConflict = errors.New("concurrent modification, retry")
)
