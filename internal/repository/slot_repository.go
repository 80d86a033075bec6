package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/projectdefense/scheduler/internal/model"
	"github.com/projectdefense/scheduler/internal/repository/base"
	scherrors "github.com/projectdefense/scheduler/internal/scheduling/errors"
)

type SlotRepository struct {
	db base.DBTX
}

func NewSlotRepository(db base.DBTX) *SlotRepository {
	return &SlotRepository{db: db}
}

// slotColumns selects a slot with its availability and room joined. Listings
// built on it order by (start_utc, id): ties on start have no semantic order,
// the id just keeps the order stable across reads.
const slotColumns = `
	SELECT s.id, s.availability_id, s.start_utc, s.end_utc, s.student_id, s.is_canceled, s.is_blocked, s.created_at,
	       a.id, a.instructor_id, a.room_id, a.from_date, a.to_date, a.start_minute, a.end_minute, a.slot_duration_minutes, a.created_at,
	       r.id, r.name, r.number, r.created_at
	FROM slots s
	JOIN availabilities a ON a.id = s.availability_id
	JOIN rooms r ON r.id = a.room_id
`

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var s model.Slot
	var a model.Availability
	var room model.Room
	err := row.Scan(
		&s.ID,
		&s.AvailabilityID,
		&s.StartUTC,
		&s.EndUTC,
		&s.StudentID,
		&s.IsCanceled,
		&s.IsBlocked,
		&s.CreatedAt,
		&a.ID,
		&a.InstructorID,
		&a.RoomID,
		&a.FromDate,
		&a.ToDate,
		&a.StartMinute,
		&a.EndMinute,
		&a.SlotDurationMinutes,
		&a.CreatedAt,
		&room.ID,
		&room.Name,
		&room.Number,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Room = &room
	s.Availability = &a
	return &s, nil
}

func (r *SlotRepository) querySlots(ctx context.Context, query string, args ...any) ([]*model.Slot, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

func (r *SlotRepository) CreateBatch(ctx context.Context, slots []*model.Slot) error {
	query := `
		INSERT INTO slots (id, availability_id, start_utc, end_utc, student_id, is_canceled, is_blocked)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, slot := range slots {
		_, err := r.db.Exec(
			ctx, query,
			slot.ID,
			slot.AvailabilityID,
			slot.StartUTC,
			slot.EndUTC,
			slot.StudentID,
			slot.IsCanceled,
			slot.IsBlocked,
		)
		if err != nil {
			return fmt.Errorf("create slot: %w", err)
		}
	}

	return nil
}

func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	slot, err := scanSlot(r.db.QueryRow(ctx, slotColumns+` WHERE s.id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

func (r *SlotRepository) ListOpen(ctx context.Context, now time.Time) ([]*model.Slot, error) {
	query := slotColumns + `
		WHERE s.student_id IS NULL
		  AND NOT s.is_canceled
		  AND NOT s.is_blocked
		  AND s.start_utc > $1
		ORDER BY s.start_utc, s.id
	`
	return r.querySlots(ctx, query, now)
}

func (r *SlotRepository) ListByInstructor(ctx context.Context, instructorID string, from, to time.Time) ([]*model.Slot, error) {
	query := slotColumns + `
		WHERE a.instructor_id = $1
		  AND NOT s.is_canceled
		  AND s.end_utc > $2
		  AND s.start_utc < $3
		ORDER BY s.start_utc, s.id
	`
	return r.querySlots(ctx, query, instructorID, from, to)
}

func (r *SlotRepository) ActiveByStudent(ctx context.Context, studentID string, now time.Time) (*model.Slot, error) {
	query := slotColumns + `
		WHERE s.student_id = $1
		  AND NOT s.is_canceled
		  AND s.end_utc > $2
		ORDER BY s.start_utc, s.id
		LIMIT 1
	`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, studentID, now))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active slot: %w", err)
	}

	return slot, nil
}

func (r *SlotRepository) HasStartedSlots(ctx context.Context, availabilityID uuid.UUID, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM slots
			WHERE availability_id = $1 AND start_utc < $2
		)
	`

	var started bool
	err := r.db.QueryRow(ctx, query, availabilityID, now).Scan(&started)
	if err != nil {
		return false, fmt.Errorf("check started slots: %w", err)
	}

	return started, nil
}

// Claim is the exclusivity point of the ledger: the occupant is set only if
// the slot is still open and in the future at write time, so two concurrent
// claims cannot both succeed.
func (r *SlotRepository) Claim(ctx context.Context, slotID uuid.UUID, studentID string, now time.Time) error {
	query := `
		UPDATE slots
		SET student_id = $1
		WHERE id = $2
		  AND student_id IS NULL
		  AND NOT is_canceled
		  AND NOT is_blocked
		  AND start_utc > $3
	`

	tag, err := r.db.Exec(ctx, query, studentID, slotID, now)
	if err != nil {
		return fmt.Errorf("claim slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slot %s: %w", slotID, scherrors.ErrSlotUnavailable)
	}

	return nil
}

func (r *SlotRepository) Release(ctx context.Context, slotID uuid.UUID, studentID string) error {
	query := `
		UPDATE slots
		SET student_id = NULL
		WHERE id = $1 AND student_id = $2
	`

	tag, err := r.db.Exec(ctx, query, slotID, studentID)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slot %s no longer held by %s: %w", slotID, studentID, scherrors.ErrStorageConflict)
	}

	return nil
}

func (r *SlotRepository) CancelOverlapping(ctx context.Context, period *model.BlockedPeriod) ([]uuid.UUID, error) {
	query := `
		UPDATE slots s
		SET student_id = NULL, is_canceled = TRUE
		FROM availabilities a
		WHERE a.id = s.availability_id
		  AND a.instructor_id = $1
		  AND ($2::uuid IS NULL OR a.room_id = $2)
		  AND NOT s.is_canceled
		  AND s.start_utc < $4
		  AND s.end_utc > $3
		RETURNING s.id
	`

	rows, err := r.db.Query(ctx, query, period.InstructorID, period.RoomID, period.FromUTC, period.ToUTC)
	if err != nil {
		return nil, fmt.Errorf("cancel overlapping slots: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan canceled slot id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *SlotRepository) FreeAllForStudent(ctx context.Context, studentID string, now time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE slots
		SET student_id = NULL
		WHERE student_id = $1
		  AND NOT is_canceled
		  AND end_utc > $2
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query, studentID, now)
	if err != nil {
		return nil, fmt.Errorf("free student slots: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan freed slot id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
