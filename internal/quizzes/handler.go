package quizzes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aulaviva/liveclass/internal/models"
	"github.com/aulaviva/liveclass/pkg/response"
)

// CreateRequest is the body for POST /courses/:id/quizzes.
type CreateRequest struct {
	Title         string `json:"title" binding:"required"`
	QuestionCount int    `json:"question_count" binding:"required,min=1"`
}

// Handler handles quiz HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a quizzes handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListByCourse handles GET /courses/:id/quizzes. Populates the tutor's
// launch selector.
func (h *Handler) ListByCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	list, err := h.repo.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		response.Internal(c, "failed to list quizzes")
		return
	}
	response.OK(c, list)
}

// Create handles POST /courses/:id/quizzes (tutor/admin).
func (h *Handler) Create(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	quiz := &models.Quiz{
		CourseID:      courseID,
		Title:         req.Title,
		QuestionCount: req.QuestionCount,
	}
	if err := h.repo.Create(c.Request.Context(), quiz); err != nil {
		response.Internal(c, "failed to create quiz")
		return
	}
	response.Created(c, quiz)
}
