package model

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a single bookable unit generated from an Availability. A free slot has
// StudentID == nil. Canceling and blocking are terminal; freeing is not - a freed
// slot goes back to the open pool.
type Slot struct {
	ID             uuid.UUID `json:"id"`
	AvailabilityID uuid.UUID `json:"availability_id"`
	StartUTC       time.Time `json:"start_utc"`
	EndUTC         time.Time `json:"end_utc"`
	StudentID      *string   `json:"student_id"` // nil when the slot is free
	IsCanceled     bool      `json:"is_canceled"`
	IsBlocked      bool      `json:"is_blocked"`
	CreatedAt      time.Time `json:"created_at"`

	// Joined data, not always populated
	Availability *Availability `json:"availability,omitempty"`
}

// IsBookable reports whether a student may take the slot at the given instant.
func (s *Slot) IsBookable(now time.Time) bool {
	return s.StudentID == nil && !s.IsCanceled && !s.IsBlocked && s.StartUTC.After(now)
}

// HeldBy reports whether the slot is currently occupied by the given student.
func (s *Slot) HeldBy(studentID string) bool {
	return s.StudentID != nil && *s.StudentID == studentID
}

// Ended reports whether the slot's interval is fully in the past.
func (s *Slot) Ended(now time.Time) bool {
	return !s.EndUTC.After(now)
}
