package models

import (
	"time"

	"github.com/google/uuid"
)

// Course represents one classroom course with a single tutor.
type Course struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TutorID     uuid.UUID `json:"tutor_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// StudentXP is one roster row: an enrolled student with their current
// experience total.
type StudentXP struct {
	ID               uuid.UUID `json:"id"`
	FullName         string    `json:"full_name"`
	ExperiencePoints int       `json:"experience_points"`
}
