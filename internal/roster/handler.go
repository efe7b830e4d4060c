package roster

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aulaviva/liveclass/internal/middleware"
	"github.com/aulaviva/liveclass/internal/models"
	"github.com/aulaviva/liveclass/pkg/response"
)

// Handler handles roster HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a roster handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListStudents handles GET /courses/:id/students. Course members only.
func (h *Handler) ListStudents(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role, _ := c.MustGet(middleware.ContextUserRole).(string)

	if role != string(models.RoleAdmin) {
		tutor, err := h.repo.IsCourseTutor(c.Request.Context(), courseID, userID)
		if err != nil {
			response.Internal(c, "failed to check course access")
			return
		}
		if !tutor {
			enrolled, err := h.repo.IsEnrolled(c.Request.Context(), courseID, userID)
			if err != nil {
				response.Internal(c, "failed to check course access")
				return
			}
			if !enrolled {
				response.Forbidden(c, "not a member of this course")
				return
			}
		}
	}

	students, err := h.repo.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		response.Internal(c, "failed to list students")
		return
	}
	response.OK(c, students)
}
