package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/projectdefense/scheduler/internal/model"
	scherrors "github.com/projectdefense/scheduler/internal/scheduling/errors"
	"go.uber.org/zap"
)

// EnforcementService applies bans and blocked periods, including their
// retroactive cascades over the slot ledger. Banning frees the student's
// future slots back into the open pool; blocking cancels overlapping slots
// for good. Both cascades return the affected slot ids.
type EnforcementService struct {
	store  Store
	clock  Clock
	logger *zap.Logger
}

func NewEnforcementService(store Store, clock Clock, logger *zap.Logger) *EnforcementService {
	return &EnforcementService{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// IsBanned reports whether the student is banned at the current instant.
func (s *EnforcementService) IsBanned(ctx context.Context, studentID string) (bool, error) {
	ban, err := s.store.Bans().GetByStudent(ctx, studentID)
	if err != nil {
		return false, fmt.Errorf("get ban: %w", err)
	}
	return ban != nil && ban.ActiveAt(s.clock.Now()), nil
}

// UpsertBan bans the student or, when already banned, updates reason and
// until in place. The student's future held slots are freed in the same
// transaction; the freed slot ids are returned.
func (s *EnforcementService) UpsertBan(ctx context.Context, studentID string, reason *string, until *time.Time) (*model.StudentBan, []uuid.UUID, error) {
	if studentID == "" {
		return nil, nil, fmt.Errorf("student id is required: %w", scherrors.ErrValidation)
	}

	ban := &model.StudentBan{
		ID:        uuid.New(),
		StudentID: studentID,
		Reason:    reason,
		UntilUTC:  until,
	}

	var freed []uuid.UUID
	err := s.store.InTx(ctx, func(tx Store) error {
		if err := tx.Bans().Upsert(ctx, ban); err != nil {
			return fmt.Errorf("upsert ban: %w", err)
		}

		var err error
		freed, err = tx.Slots().FreeAllForStudent(ctx, studentID, s.clock.Now())
		if err != nil {
			return fmt.Errorf("free student slots: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Student banned",
		zap.String("student_id", studentID),
		zap.Timep("until_utc", until),
		zap.Int("slots_freed", len(freed)),
	)

	return ban, freed, nil
}

type CreateBlockedPeriodInput struct {
	InstructorID string
	RoomID       *uuid.UUID // nil = all rooms
	FromUTC      time.Time
	ToUTC        time.Time
	Reason       *string
}

// CreateBlockedPeriod records the block and cancels every overlapping,
// not-yet-canceled slot of the instructor (and room, when set) in the same
// transaction. Canceled slot ids are returned. Future expansions consult the
// stored period as well.
func (s *EnforcementService) CreateBlockedPeriod(ctx context.Context, input CreateBlockedPeriodInput) (*model.BlockedPeriod, []uuid.UUID, error) {
	if input.InstructorID == "" {
		return nil, nil, fmt.Errorf("instructor id is required: %w", scherrors.ErrValidation)
	}
	if !input.FromUTC.Before(input.ToUTC) {
		return nil, nil, fmt.Errorf("block end must be after start: %w", scherrors.ErrValidation)
	}

	period := &model.BlockedPeriod{
		ID:           uuid.New(),
		InstructorID: input.InstructorID,
		RoomID:       input.RoomID,
		FromUTC:      input.FromUTC,
		ToUTC:        input.ToUTC,
		Reason:       input.Reason,
	}

	var canceled []uuid.UUID
	err := s.store.InTx(ctx, func(tx Store) error {
		if err := tx.BlockedPeriods().Create(ctx, period); err != nil {
			return fmt.Errorf("create blocked period: %w", err)
		}

		var err error
		canceled, err = tx.Slots().CancelOverlapping(ctx, period)
		if err != nil {
			return fmt.Errorf("cancel overlapping slots: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Blocked period created",
		zap.String("blocked_period_id", period.ID.String()),
		zap.String("instructor_id", input.InstructorID),
		zap.Time("from_utc", input.FromUTC),
		zap.Time("to_utc", input.ToUTC),
		zap.Int("slots_canceled", len(canceled)),
	)

	return period, canceled, nil
}

// ListBans returns every ban record. ActiveAt on the records distinguishes
// live bans from expired ones left for the sweeper.
func (s *EnforcementService) ListBans(ctx context.Context) ([]*model.StudentBan, error) {
	return s.store.Bans().List(ctx)
}

// ListBlockedPeriods returns the instructor's blocked periods.
func (s *EnforcementService) ListBlockedPeriods(ctx context.Context, instructorID string) ([]*model.BlockedPeriod, error) {
	return s.store.BlockedPeriods().ListByInstructor(ctx, instructorID)
}

// DeleteExpiredBans removes ban records whose until instant has passed.
// Hygiene only: IsBanned already treats them as inactive.
func (s *EnforcementService) DeleteExpiredBans(ctx context.Context) (int64, error) {
	removed, err := s.store.Bans().DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("delete expired bans: %w", err)
	}
	if removed > 0 {
		s.logger.Info("Expired bans removed", zap.Int64("count", removed))
	}
	return removed, nil
}
