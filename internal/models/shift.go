package models

import "time"

// Shift is one queued visit. The user fields are a snapshot of the
// requester taken at creation time and are never re-synced.
type Shift struct {
	ID              string    `json:"id,omitempty"`
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	UserRole        string    `json:"user_role"`
	Specialty       string    `json:"specialty"`
	TurnCode        string    `json:"turn_code"`
	SpecialPriority bool      `json:"special_priority"`
	CreatedAt       time.Time `json:"created_at"`
	Status          string    `json:"status"`
}

const (
	StatusAssigned   = "ASSIGNED"
	StatusInProgress = "IN_PROGRESS"
	StatusAttended   = "ATTENDED"
	StatusCanceled   = "CANCELED"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusAssigned, StatusInProgress, StatusAttended, StatusCanceled:
		return true
	}
	return false
}
