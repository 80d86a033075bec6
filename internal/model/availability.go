package model

import (
	"time"

	"github.com/google/uuid"
)

// Slot duration limits in minutes
const (
	MinSlotDurationMinutes = 1
	MaxSlotDurationMinutes = 480
)

// Availability is an instructor-defined template that expands into bookable slots:
// every date in [FromDate, ToDate] gets slots of SlotDurationMinutes walked across
// the daily window [StartMinute, EndMinute).
type Availability struct {
	ID                  uuid.UUID `json:"id"`
	InstructorID        string    `json:"instructor_id"`
	RoomID              uuid.UUID `json:"room_id"`
	FromDate            time.Time `json:"from_date"` // date only, midnight
	ToDate              time.Time `json:"to_date"`   // date only, inclusive
	StartMinute         int       `json:"start_minute"` // minutes since midnight
	EndMinute           int       `json:"end_minute"`
	SlotDurationMinutes int       `json:"slot_duration_minutes"`
	CreatedAt           time.Time `json:"created_at"`

	// Joined data, not always populated
	Room *Room `json:"room,omitempty"`
}
