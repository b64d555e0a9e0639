package models

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a community-service event.
type Event struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Location         string     `json:"location"`
	StartsAt         time.Time  `json:"starts_at"`
	EndsAt           *time.Time `json:"ends_at,omitempty"`
	Hours            float64    `json:"hours"`
	MaxParticipants  int        `json:"max_participants"` // 0 = unlimited
	RequiresApproval bool       `json:"requires_approval"`
	Departments      []string   `json:"departments,omitempty"` // empty = open to all departments
	IsActive         bool       `json:"is_active"`
	CreatedBy        uuid.UUID  `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// OpenToDepartment reports whether the event accepts students from the department.
func (e *Event) OpenToDepartment(department string) bool {
	if len(e.Departments) == 0 {
		return true
	}
	for _, d := range e.Departments {
		if d == department {
			return true
		}
	}
	return false
}
