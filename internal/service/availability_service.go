package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/projectdefense/scheduler/internal/model"
	scherrors "github.com/projectdefense/scheduler/internal/scheduling/errors"
	"github.com/projectdefense/scheduler/internal/timerange"
	"go.uber.org/zap"
)

// AvailabilityService validates availability definitions and expands them into
// slot records.
//
// Local-to-UTC conversion uses the location the service was constructed with
// and happens once, at expansion time. Generated slots store absolute instants
// and are never re-derived, so a timezone change on the host only affects
// availabilities created after it.
type AvailabilityService struct {
	store  Store
	clock  Clock
	loc    *time.Location
	logger *zap.Logger
}

func NewAvailabilityService(store Store, clock Clock, loc *time.Location, logger *zap.Logger) *AvailabilityService {
	if loc == nil {
		loc = time.Local
	}
	return &AvailabilityService{
		store:  store,
		clock:  clock,
		loc:    loc,
		logger: logger,
	}
}

type CreateAvailabilityInput struct {
	InstructorID        string
	RoomID              uuid.UUID
	FromDate            time.Time // date only
	ToDate              time.Time // date only, inclusive
	StartMinute         int
	EndMinute           int
	SlotDurationMinutes int
}

// CreateAvailability checks the definition against the instructor's existing
// availabilities for the room, then generates and persists its slots. Slots
// falling inside a blocked period of the instructor are skipped. Nothing is
// written when validation or the overlap check fails.
func (s *AvailabilityService) CreateAvailability(ctx context.Context, input CreateAvailabilityInput) (*model.Availability, error) {
	if err := validateAvailabilityInput(input); err != nil {
		return nil, err
	}

	availability := &model.Availability{
		ID:                  uuid.New(),
		InstructorID:        input.InstructorID,
		RoomID:              input.RoomID,
		FromDate:            input.FromDate,
		ToDate:              input.ToDate,
		StartMinute:         input.StartMinute,
		EndMinute:           input.EndMinute,
		SlotDurationMinutes: input.SlotDurationMinutes,
	}

	var slotCount int
	err := s.store.InTx(ctx, func(tx Store) error {
		room, err := tx.Rooms().GetByID(ctx, input.RoomID)
		if err != nil {
			return fmt.Errorf("get room: %w", err)
		}
		if room == nil {
			return fmt.Errorf("room %s: %w", input.RoomID, scherrors.ErrNotFound)
		}

		existing, err := tx.Availabilities().ListByInstructorRoom(ctx, input.InstructorID, input.RoomID)
		if err != nil {
			return fmt.Errorf("list availabilities: %w", err)
		}
		if hasOverlappingAvailability(input, existing) {
			return fmt.Errorf("instructor %s room %s: %w", input.InstructorID, input.RoomID, scherrors.ErrConflict)
		}

		if err := tx.Availabilities().Create(ctx, availability); err != nil {
			return fmt.Errorf("create availability: %w", err)
		}

		blocks, err := tx.BlockedPeriods().ListByInstructor(ctx, input.InstructorID)
		if err != nil {
			return fmt.Errorf("list blocked periods: %w", err)
		}

		slots := expandSlots(availability, blocks, s.loc)
		if err := tx.Slots().CreateBatch(ctx, slots); err != nil {
			return fmt.Errorf("create slots: %w", err)
		}
		slotCount = len(slots)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Availability created",
		zap.String("availability_id", availability.ID.String()),
		zap.String("instructor_id", input.InstructorID),
		zap.String("room_id", input.RoomID.String()),
		zap.Int("slots_generated", slotCount),
	)

	return availability, nil
}

// DeleteAvailability removes the availability and all its slots. Allowed only
// while none of the slots has started yet.
func (s *AvailabilityService) DeleteAvailability(ctx context.Context, availabilityID uuid.UUID, instructorID string) error {
	err := s.store.InTx(ctx, func(tx Store) error {
		availability, err := tx.Availabilities().GetByID(ctx, availabilityID)
		if err != nil {
			return fmt.Errorf("get availability: %w", err)
		}
		if availability == nil {
			return fmt.Errorf("availability %s: %w", availabilityID, scherrors.ErrNotFound)
		}
		if availability.InstructorID != instructorID {
			return fmt.Errorf("availability %s: %w", availabilityID, scherrors.ErrNotOwner)
		}

		started, err := tx.Slots().HasStartedSlots(ctx, availabilityID, s.clock.Now())
		if err != nil {
			return fmt.Errorf("check started slots: %w", err)
		}
		if started {
			return fmt.Errorf("availability %s: %w", availabilityID, scherrors.ErrHasPastSlots)
		}

		if err := tx.Availabilities().Delete(ctx, availabilityID); err != nil {
			return fmt.Errorf("delete availability: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Availability deleted",
		zap.String("availability_id", availabilityID.String()),
		zap.String("instructor_id", instructorID),
	)

	return nil
}

// ListAvailabilities returns the instructor's availability definitions.
func (s *AvailabilityService) ListAvailabilities(ctx context.Context, instructorID string) ([]*model.Availability, error) {
	return s.store.Availabilities().ListByInstructor(ctx, instructorID)
}

func validateAvailabilityInput(input CreateAvailabilityInput) error {
	if input.InstructorID == "" {
		return fmt.Errorf("instructor id is required: %w", scherrors.ErrValidation)
	}
	if input.FromDate.After(input.ToDate) {
		return fmt.Errorf("from date must not be after to date: %w", scherrors.ErrValidation)
	}
	if input.StartMinute >= input.EndMinute {
		return fmt.Errorf("start time must be before end time: %w", scherrors.ErrValidation)
	}
	if input.StartMinute < 0 || input.EndMinute > 24*60 {
		return fmt.Errorf("daily window must fit within one day: %w", scherrors.ErrValidation)
	}
	if input.SlotDurationMinutes < model.MinSlotDurationMinutes || input.SlotDurationMinutes > model.MaxSlotDurationMinutes {
		return fmt.Errorf("slot duration must be between %d and %d minutes: %w",
			model.MinSlotDurationMinutes, model.MaxSlotDurationMinutes, scherrors.ErrValidation)
	}
	return nil
}

// hasOverlappingAvailability reports whether any existing availability for the
// same instructor and room overlaps the proposed one on both the inclusive
// date range and the half-open daily window.
func hasOverlappingAvailability(input CreateAvailabilityInput, existing []*model.Availability) bool {
	for _, a := range existing {
		if a.InstructorID != input.InstructorID || a.RoomID != input.RoomID {
			continue
		}
		if timerange.DatesOverlap(a.FromDate, a.ToDate, input.FromDate, input.ToDate) &&
			timerange.MinutesOverlap(a.StartMinute, a.EndMinute, input.StartMinute, input.EndMinute) {
			return true
		}
	}
	return false
}

// expandSlots walks every date of the availability and cuts the daily window
// into slots of the configured duration. A remainder shorter than one duration
// is dropped. Slots overlapping a blocked period of the instructor whose room
// is unset or matches are skipped.
func expandSlots(a *model.Availability, blocks []*model.BlockedPeriod, loc *time.Location) []*model.Slot {
	duration := time.Duration(a.SlotDurationMinutes) * time.Minute

	var slots []*model.Slot
	for date := range timerange.EachDate(a.FromDate, a.ToDate) {
		dayEnd := timerange.CombineLocal(date, a.EndMinute, loc)
		cursor := timerange.CombineLocal(date, a.StartMinute, loc)

		for !cursor.Add(duration).After(dayEnd) {
			end := cursor.Add(duration)
			if !intervalBlocked(a, cursor, end, blocks) {
				slots = append(slots, &model.Slot{
					ID:             uuid.New(),
					AvailabilityID: a.ID,
					StartUTC:       cursor,
					EndUTC:         end,
				})
			}
			cursor = end
		}
	}
	return slots
}

func intervalBlocked(a *model.Availability, start, end time.Time, blocks []*model.BlockedPeriod) bool {
	for _, b := range blocks {
		if b.InstructorID != a.InstructorID || !b.AppliesToRoom(a.RoomID) {
			continue
		}
		if timerange.Overlaps(start, end, b.FromUTC, b.ToUTC) {
			return true
		}
	}
	return false
}
