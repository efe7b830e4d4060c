package models

import (
	"time"

	"github.com/google/uuid"
)

// Quiz represents a launchable live quiz in a course.
type Quiz struct {
	ID            uuid.UUID `json:"id"`
	CourseID      uuid.UUID `json:"course_id"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}
