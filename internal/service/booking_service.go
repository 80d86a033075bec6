package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/projectdefense/scheduler/internal/model"
	scherrors "github.com/projectdefense/scheduler/internal/scheduling/errors"
	"go.uber.org/zap"
)

// BookingService owns the slot ledger: who holds which slot and under what
// conditions occupancy changes. Every mutation runs as one transaction against
// the store; claim and release writes are guarded so a concurrent transaction
// loses with a typed error instead of corrupting state.
type BookingService struct {
	store  Store
	clock  Clock
	logger *zap.Logger
}

func NewBookingService(store Store, clock Clock, logger *zap.Logger) *BookingService {
	return &BookingService{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// Book gives the slot to the student. The slot must be open and in the future
// and the student must not be banned. A student holds at most one active slot:
// if another future slot is already held it is freed in the same transaction,
// so booking doubles as rebooking.
func (s *BookingService) Book(ctx context.Context, slotID uuid.UUID, studentID string) (*model.Slot, error) {
	now := s.clock.Now()

	var booked *model.Slot
	var freedID *uuid.UUID
	err := s.store.InTx(ctx, func(tx Store) error {
		ban, err := tx.Bans().GetByStudent(ctx, studentID)
		if err != nil {
			return fmt.Errorf("get ban: %w", err)
		}
		if ban != nil && ban.ActiveAt(now) {
			return fmt.Errorf("student %s: %w", studentID, scherrors.ErrStudentBanned)
		}

		slot, err := tx.Slots().GetByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}
		if slot == nil || !slot.IsBookable(now) {
			return fmt.Errorf("slot %s: %w", slotID, scherrors.ErrSlotUnavailable)
		}

		existing, err := tx.Slots().ActiveByStudent(ctx, studentID, now)
		if err != nil {
			return fmt.Errorf("get active slot: %w", err)
		}
		if existing != nil && existing.ID != slotID {
			if err := tx.Slots().Release(ctx, existing.ID, studentID); err != nil {
				return fmt.Errorf("release previous slot: %w", err)
			}
			freedID = &existing.ID
		}

		if err := tx.Slots().Claim(ctx, slotID, studentID, now); err != nil {
			return fmt.Errorf("claim slot: %w", err)
		}

		slot.StudentID = &studentID
		booked = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("slot_id", slotID.String()),
		zap.String("student_id", studentID),
		zap.Time("start_utc", booked.StartUTC),
	}
	if freedID != nil {
		fields = append(fields, zap.String("freed_slot_id", freedID.String()))
	}
	s.logger.Info("Slot booked", fields...)

	return booked, nil
}

// CancelBooking releases the slot on the student's own request. The slot stays
// bookable for others; only block and availability deletion retire a slot for
// good.
func (s *BookingService) CancelBooking(ctx context.Context, slotID uuid.UUID, studentID string) error {
	now := s.clock.Now()

	err := s.store.InTx(ctx, func(tx Store) error {
		slot, err := tx.Slots().GetByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}
		if slot == nil {
			return fmt.Errorf("slot %s: %w", slotID, scherrors.ErrNotFound)
		}
		if !slot.HeldBy(studentID) || slot.IsCanceled || slot.Ended(now) {
			return fmt.Errorf("slot %s: %w", slotID, scherrors.ErrNotHolder)
		}

		if err := tx.Slots().Release(ctx, slotID, studentID); err != nil {
			return fmt.Errorf("release slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Booking canceled by student",
		zap.String("slot_id", slotID.String()),
		zap.String("student_id", studentID),
	)

	return nil
}

// FreeSlot releases the occupant on behalf of the instructor owning the
// slot's availability. Slots that already ended cannot be freed; the booking
// stays on record for whoever held it.
func (s *BookingService) FreeSlot(ctx context.Context, slotID uuid.UUID, instructorID string) error {
	now := s.clock.Now()

	var freedStudent string
	err := s.store.InTx(ctx, func(tx Store) error {
		slot, err := tx.Slots().GetByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}
		if slot == nil {
			return fmt.Errorf("slot %s: %w", slotID, scherrors.ErrNotFound)
		}
		if slot.Availability == nil || slot.Availability.InstructorID != instructorID {
			return fmt.Errorf("slot %s: %w", slotID, scherrors.ErrNotOwner)
		}
		if slot.StudentID == nil {
			return fmt.Errorf("slot %s: %w", slotID, scherrors.ErrNoOccupant)
		}
		if slot.IsCanceled || slot.Ended(now) {
			return fmt.Errorf("slot %s: %w", slotID, scherrors.ErrSlotUnavailable)
		}

		freedStudent = *slot.StudentID
		if err := tx.Slots().Release(ctx, slotID, freedStudent); err != nil {
			return fmt.Errorf("release slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Slot freed by instructor",
		zap.String("slot_id", slotID.String()),
		zap.String("instructor_id", instructorID),
		zap.String("student_id", freedStudent),
	)

	return nil
}

// Reassign moves the occupant of oldSlotID onto newSlotID in one transaction.
// The instructor must own the source slot's availability, the source must be
// held and the target open; on any failure the source is left untouched.
func (s *BookingService) Reassign(ctx context.Context, oldSlotID, newSlotID uuid.UUID, instructorID string) error {
	now := s.clock.Now()

	var movedStudent string
	err := s.store.InTx(ctx, func(tx Store) error {
		oldSlot, err := tx.Slots().GetByID(ctx, oldSlotID)
		if err != nil {
			return fmt.Errorf("get old slot: %w", err)
		}
		if oldSlot == nil {
			return fmt.Errorf("slot %s: %w", oldSlotID, scherrors.ErrNotFound)
		}
		if oldSlot.Availability == nil || oldSlot.Availability.InstructorID != instructorID {
			return fmt.Errorf("slot %s: %w", oldSlotID, scherrors.ErrNotOwner)
		}
		if oldSlot.StudentID == nil {
			return fmt.Errorf("slot %s: %w", oldSlotID, scherrors.ErrNoOccupant)
		}

		newSlot, err := tx.Slots().GetByID(ctx, newSlotID)
		if err != nil {
			return fmt.Errorf("get new slot: %w", err)
		}
		if newSlot == nil || !newSlot.IsBookable(now) {
			return fmt.Errorf("slot %s: %w", newSlotID, scherrors.ErrTargetUnavailable)
		}

		movedStudent = *oldSlot.StudentID
		if err := tx.Slots().Claim(ctx, newSlotID, movedStudent, now); err != nil {
			if errors.Is(err, scherrors.ErrSlotUnavailable) {
				return fmt.Errorf("slot %s: %w", newSlotID, scherrors.ErrTargetUnavailable)
			}
			return fmt.Errorf("claim new slot: %w", err)
		}
		if err := tx.Slots().Release(ctx, oldSlotID, movedStudent); err != nil {
			return fmt.Errorf("release old slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Reservation reassigned",
		zap.String("old_slot_id", oldSlotID.String()),
		zap.String("new_slot_id", newSlotID.String()),
		zap.String("instructor_id", instructorID),
		zap.String("student_id", movedStudent),
	)

	return nil
}

// ListOpenSlots returns every bookable slot starting after now, ascending by
// start time.
func (s *BookingService) ListOpenSlots(ctx context.Context) ([]*model.Slot, error) {
	return s.store.Slots().ListOpen(ctx, s.clock.Now())
}

// GetStudentActiveSlot returns the student's current held slot, or nil when
// the student holds none.
func (s *BookingService) GetStudentActiveSlot(ctx context.Context, studentID string) (*model.Slot, error) {
	return s.store.Slots().ActiveByStudent(ctx, studentID, s.clock.Now())
}

// ListInstructorSchedule returns the instructor's non-canceled slots in the
// window, ascending by start time.
func (s *BookingService) ListInstructorSchedule(ctx context.Context, instructorID string, from, to time.Time) ([]*model.Slot, error) {
	if from.After(to) {
		return nil, fmt.Errorf("from must not be after to: %w", scherrors.ErrValidation)
	}
	return s.store.Slots().ListByInstructor(ctx, instructorID, from, to)
}
