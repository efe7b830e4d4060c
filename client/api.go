package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Role is the participant's part in a course.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

// Identity is the authenticated participant as resolved from the server.
type Identity struct {
	UserID   uuid.UUID `json:"id"`
	Username string    `json:"full_name"`
	Role     Role      `json:"role"`
}

// Profile is the identity plus the authoritative experience baseline.
type Profile struct {
	Identity
	ExperiencePoints int `json:"experience_points"`
}

// QuizSummary is one launchable quiz in the course selector.
type QuizSummary struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"question_count"`
}

// API fetches the request/response seed data the live layer depends on:
// roster, quiz list, and the viewer's own identity.
type API struct {
	base   string
	token  string
	client *http.Client
	logger *zap.Logger
}

// NewAPI creates a REST client against the classroom server.
func NewAPI(baseURL, token string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		base:   baseURL,
		token:  token,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// apiBody mirrors the server's JSON response envelope.
type apiBody struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (a *API) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body apiBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if !body.Success {
		return fmt.Errorf("%s: %s (status %d)", path, body.Error, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(body.Data, out); err != nil {
			return fmt.Errorf("decode %s data: %w", path, err)
		}
	}
	return nil
}

// Roster returns the course participants with their current experience
// totals, seeding the tutor panel and the store's snapshot.
func (a *API) Roster(ctx context.Context, courseID uuid.UUID) ([]RosterEntry, error) {
	var entries []RosterEntry
	if err := a.get(ctx, fmt.Sprintf("/courses/%s/students", courseID), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Quizzes returns the launchable live quizzes for a course.
func (a *API) Quizzes(ctx context.Context, courseID uuid.UUID) ([]QuizSummary, error) {
	var quizzes []QuizSummary
	if err := a.get(ctx, fmt.Sprintf("/courses/%s/quizzes", courseID), &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

// Me resolves the authenticated identity, answering "is this award mine".
func (a *API) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := a.get(ctx, "/auth/me", &p); err != nil {
		return nil, err
	}
	return &p, nil
}
