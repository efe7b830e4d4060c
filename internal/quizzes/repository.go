package quizzes

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aulaviva/liveclass/internal/models"
)

// Repository handles quiz catalog persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a quizzes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByCourse returns the launchable quizzes of a course.
func (r *Repository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Quiz, error) {
	const q = `SELECT id, course_id, title, question_count, created_at
		FROM quizzes WHERE course_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Quiz
	for rows.Next() {
		var quiz models.Quiz
		if err := rows.Scan(&quiz.ID, &quiz.CourseID, &quiz.Title, &quiz.QuestionCount, &quiz.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, quiz)
	}
	return list, rows.Err()
}

// GetCourseQuiz returns a quiz by id, bound to its course. Launch
// commands use it to reject quiz ids from other courses.
func (r *Repository) GetCourseQuiz(ctx context.Context, courseID, quizID uuid.UUID) (*models.Quiz, error) {
	const q = `SELECT id, course_id, title, question_count, created_at
		FROM quizzes WHERE id = $1 AND course_id = $2`
	var quiz models.Quiz
	err := r.pool.QueryRow(ctx, q, quizID, courseID).
		Scan(&quiz.ID, &quiz.CourseID, &quiz.Title, &quiz.QuestionCount, &quiz.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// Create inserts a new quiz.
func (r *Repository) Create(ctx context.Context, quiz *models.Quiz) error {
	const q = `INSERT INTO quizzes (id, course_id, title, question_count)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, quiz.CourseID, quiz.Title, quiz.QuestionCount).
		Scan(&quiz.ID, &quiz.CreatedAt)
}
