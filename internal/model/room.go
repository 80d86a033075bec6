package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Number    *string   `json:"number"` // nil when the room has no number
	CreatedAt time.Time `json:"created_at"`
}

// Label returns the display label combining name and optional number
func (r *Room) Label() string {
	if r.Number == nil || strings.TrimSpace(*r.Number) == "" {
		return r.Name
	}
	return r.Name + " " + *r.Number
}
