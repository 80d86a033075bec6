package model

import (
	"time"

	"github.com/google/uuid"
)

// StudentBan bars a student from holding or creating bookings. One record per
// student; re-banning updates Reason and UntilUTC in place.
type StudentBan struct {
	ID        uuid.UUID  `json:"id"`
	StudentID string     `json:"student_id"`
	Reason    *string    `json:"reason"`
	UntilUTC  *time.Time `json:"until_utc"` // nil = indefinite
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ActiveAt reports whether the ban is in force at the given instant.
func (b *StudentBan) ActiveAt(now time.Time) bool {
	return b.UntilUTC == nil || b.UntilUTC.After(now)
}
