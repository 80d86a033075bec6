package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/projectdefense/scheduler/internal/model"
	scherrors "github.com/projectdefense/scheduler/internal/scheduling/errors"
	"go.uber.org/zap"
)

// RoomService manages the room catalog. Deletion is restricted while any
// availability references the room, mirroring the FK constraint in storage
// with a typed error.
type RoomService struct {
	store  Store
	logger *zap.Logger
}

func NewRoomService(store Store, logger *zap.Logger) *RoomService {
	return &RoomService{
		store:  store,
		logger: logger,
	}
}

func (s *RoomService) CreateRoom(ctx context.Context, name string, number *string) (*model.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("room name is required: %w", scherrors.ErrValidation)
	}

	room := &model.Room{
		ID:     uuid.New(),
		Name:   name,
		Number: number,
	}
	if err := s.store.Rooms().Create(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	s.logger.Info("Room created",
		zap.String("room_id", room.ID.String()),
		zap.String("name", name),
	)

	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	room, err := s.store.Rooms().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if room == nil {
		return nil, fmt.Errorf("room %s: %w", id, scherrors.ErrNotFound)
	}
	return room, nil
}

func (s *RoomService) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return s.store.Rooms().List(ctx)
}

func (s *RoomService) UpdateRoom(ctx context.Context, id uuid.UUID, name string, number *string) (*model.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("room name is required: %w", scherrors.ErrValidation)
	}

	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	room.Name = name
	room.Number = number
	if err := s.store.Rooms().Update(ctx, room); err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}

	s.logger.Info("Room updated", zap.String("room_id", id.String()))

	return room, nil
}

// DeleteRoom removes the room unless an availability still references it.
func (s *RoomService) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	err := s.store.InTx(ctx, func(tx Store) error {
		room, err := tx.Rooms().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get room: %w", err)
		}
		if room == nil {
			return fmt.Errorf("room %s: %w", id, scherrors.ErrNotFound)
		}

		referenced, err := tx.Rooms().ReferencedByAvailability(ctx, id)
		if err != nil {
			return fmt.Errorf("check references: %w", err)
		}
		if referenced {
			return fmt.Errorf("room %s is referenced by availabilities: %w", id, scherrors.ErrConflict)
		}

		if err := tx.Rooms().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Room deleted", zap.String("room_id", id.String()))

	return nil
}
