package roster

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aulaviva/liveclass/internal/models"
)

// Repository handles enrollment and experience persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a roster repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByCourse returns the enrolled students with their current
// experience totals, for the tutor panel seed.
func (r *Repository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.StudentXP, error) {
	const q = `SELECT u.id, u.full_name, u.experience_points
		FROM users u
		JOIN enrollments e ON e.student_id = u.id
		WHERE e.course_id = $1
		ORDER BY u.full_name`
	rows, err := r.pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.StudentXP
	for rows.Next() {
		var s models.StudentXP
		if err := rows.Scan(&s.ID, &s.FullName, &s.ExperiencePoints); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// IsEnrolled reports whether the user is an enrolled student of the course.
func (r *Repository) IsEnrolled(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, courseID, userID).Scan(&ok)
	return ok, err
}

// IsCourseTutor reports whether the user is the tutor of the course.
func (r *Repository) IsCourseTutor(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1 AND tutor_id = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, courseID, userID).Scan(&ok)
	return ok, err
}

// AwardExperience atomically adds points to a student's total and
// returns their name and the new absolute total. The returned total is
// what gets broadcast, so every client receives an authoritative value
// rather than a delta to sum.
func (r *Repository) AwardExperience(ctx context.Context, userID uuid.UUID, points int) (string, int, error) {
	const q = `UPDATE users
		SET experience_points = experience_points + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING full_name, experience_points`
	var fullName string
	var total int
	err := r.pool.QueryRow(ctx, q, userID, points).Scan(&fullName, &total)
	if err != nil {
		return "", 0, err
	}
	return fullName, total, nil
}

// Enroll adds a student to a course. Idempotent.
func (r *Repository) Enroll(ctx context.Context, courseID, studentID uuid.UUID) error {
	const q = `INSERT INTO enrollments (course_id, student_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, q, courseID, studentID)
	return err
}
