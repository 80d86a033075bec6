package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/projectdefense/scheduler/internal/model"
	"github.com/projectdefense/scheduler/internal/repository/base"
	scherrors "github.com/projectdefense/scheduler/internal/scheduling/errors"
)

type AvailabilityRepository struct {
	db base.DBTX
}

func NewAvailabilityRepository(db base.DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) Create(ctx context.Context, availability *model.Availability) error {
	query := `
		INSERT INTO availabilities (id, instructor_id, room_id, from_date, to_date, start_minute, end_minute, slot_duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		availability.ID,
		availability.InstructorID,
		availability.RoomID,
		availability.FromDate,
		availability.ToDate,
		availability.StartMinute,
		availability.EndMinute,
		availability.SlotDurationMinutes,
	).Scan(&availability.CreatedAt)
	if err != nil {
		return fmt.Errorf("create availability: %w", err)
	}

	return nil
}

func (r *AvailabilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Availability, error) {
	query := `
		SELECT id, instructor_id, room_id, from_date, to_date, start_minute, end_minute, slot_duration_minutes, created_at
		FROM availabilities
		WHERE id = $1
	`

	var a model.Availability
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.InstructorID,
		&a.RoomID,
		&a.FromDate,
		&a.ToDate,
		&a.StartMinute,
		&a.EndMinute,
		&a.SlotDurationMinutes,
		&a.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability by id: %w", err)
	}

	return &a, nil
}

// ListByInstructor returns the instructor's availabilities with their rooms,
// most recent date range first.
func (r *AvailabilityRepository) ListByInstructor(ctx context.Context, instructorID string) ([]*model.Availability, error) {
	query := `
		SELECT a.id, a.instructor_id, a.room_id, a.from_date, a.to_date, a.start_minute, a.end_minute, a.slot_duration_minutes, a.created_at,
		       r.id, r.name, r.number, r.created_at
		FROM availabilities a
		JOIN rooms r ON r.id = a.room_id
		WHERE a.instructor_id = $1
		ORDER BY a.from_date DESC, a.id
	`

	rows, err := r.db.Query(ctx, query, instructorID)
	if err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	defer rows.Close()

	var availabilities []*model.Availability
	for rows.Next() {
		var a model.Availability
		var room model.Room
		err := rows.Scan(
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
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		a.Room = &room
		availabilities = append(availabilities, &a)
	}

	return availabilities, rows.Err()
}

func (r *AvailabilityRepository) ListByInstructorRoom(ctx context.Context, instructorID string, roomID uuid.UUID) ([]*model.Availability, error) {
	query := `
		SELECT id, instructor_id, room_id, from_date, to_date, start_minute, end_minute, slot_duration_minutes, created_at
		FROM availabilities
		WHERE instructor_id = $1 AND room_id = $2
		ORDER BY from_date, id
	`

	rows, err := r.db.Query(ctx, query, instructorID, roomID)
	if err != nil {
		return nil, fmt.Errorf("list availabilities by room: %w", err)
	}
	defer rows.Close()

	var availabilities []*model.Availability
	for rows.Next() {
		var a model.Availability
		err := rows.Scan(
			&a.ID,
			&a.InstructorID,
			&a.RoomID,
			&a.FromDate,
			&a.ToDate,
			&a.StartMinute,
			&a.EndMinute,
			&a.SlotDurationMinutes,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		availabilities = append(availabilities, &a)
	}

	return availabilities, rows.Err()
}

// Delete removes the availability; its slots go with it via the FK cascade.
func (r *AvailabilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM availabilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("availability %s: %w", id, scherrors.ErrNotFound)
	}

	return nil
}
