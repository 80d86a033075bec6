package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/projectdefense/scheduler/internal/model"
	"github.com/projectdefense/scheduler/internal/repository/base"
	scherrors "github.com/projectdefense/scheduler/internal/scheduling/errors"
)

type RoomRepository struct {
	db base.DBTX
}

func NewRoomRepository(db base.DBTX) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *model.Room) error {
	query := `
		INSERT INTO rooms (id, name, number)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query, room.ID, room.Name, room.Number).Scan(&room.CreatedAt)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	query := `
		SELECT id, name, number, created_at
		FROM rooms
		WHERE id = $1
	`

	var room model.Room
	err := r.db.QueryRow(ctx, query, id).Scan(
		&room.ID,
		&room.Name,
		&room.Number,
		&room.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get room by id: %w", err)
	}

	return &room, nil
}

func (r *RoomRepository) List(ctx context.Context) ([]*model.Room, error) {
	query := `
		SELECT id, name, number, created_at
		FROM rooms
		ORDER BY name, number
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*model.Room
	for rows.Next() {
		var room model.Room
		err := rows.Scan(&room.ID, &room.Name, &room.Number, &room.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}

	return rooms, rows.Err()
}

func (r *RoomRepository) Update(ctx context.Context, room *model.Room) error {
	query := `
		UPDATE rooms
		SET name = $1, number = $2
		WHERE id = $3
	`

	tag, err := r.db.Exec(ctx, query, room.Name, room.Number, room.ID)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("room %s: %w", room.ID, scherrors.ErrNotFound)
	}

	return nil
}

func (r *RoomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("room %s: %w", id, scherrors.ErrNotFound)
	}

	return nil
}

func (r *RoomRepository) ReferencedByAvailability(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM availabilities
			WHERE room_id = $1
		)
	`

	var referenced bool
	err := r.db.QueryRow(ctx, query, id).Scan(&referenced)
	if err != nil {
		return false, fmt.Errorf("check room references: %w", err)
	}

	return referenced, nil
}
