package model

import (
	"time"

	"github.com/google/uuid"
)

// BlockedPeriod marks an absolute interval during which an instructor takes no
// bookings. RoomID == nil applies the block to all of the instructor's rooms.
// Periods are never mutated after creation.
type BlockedPeriod struct {
	ID           uuid.UUID  `json:"id"`
	InstructorID string     `json:"instructor_id"`
	RoomID       *uuid.UUID `json:"room_id"` // nil = all rooms
	FromUTC      time.Time  `json:"from_utc"`
	ToUTC        time.Time  `json:"to_utc"`
	Reason       *string    `json:"reason"`
	CreatedAt    time.Time  `json:"created_at"`
}

// AppliesToRoom reports whether the period affects the given room.
func (b *BlockedPeriod) AppliesToRoom(roomID uuid.UUID) bool {
	return b.RoomID == nil || *b.RoomID == roomID
}
