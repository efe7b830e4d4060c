package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aulaviva/liveclass/internal/models"
	"github.com/aulaviva/liveclass/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// ExperienceAwarder applies an award and returns the student's name and
// new absolute total.
type ExperienceAwarder interface {
	AwardExperience(ctx context.Context, userID uuid.UUID, points int) (string, int, error)
}

// QuizCatalog resolves a quiz within its course for launch commands.
type QuizCatalog interface {
	GetCourseQuiz(ctx context.Context, courseID, quizID uuid.UUID) (*models.Quiz, error)
}

// CourseAccess answers course membership questions.
type CourseAccess interface {
	IsEnrolled(ctx context.Context, courseID, userID uuid.UUID) (bool, error)
	IsCourseTutor(ctx context.Context, courseID, userID uuid.UUID) (bool, error)
}

// TokenValidator validates the ws query token.
type TokenValidator func(token string) (userID uuid.UUID, email, role string, err error)

// Client represents a single WebSocket connection in a course room.
type Client struct {
	ID       string
	CourseID uuid.UUID
	UserID   uuid.UUID
	Role     string
	isTutor  bool // tutor of this course, or platform admin
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	awarder  ExperienceAwarder
	catalog  QuizCatalog
	logger   *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, logger *zap.Logger, validate TokenValidator, access CourseAccess, awarder ExperienceAwarder, catalog QuizCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseIDStr := c.Query("course_id")
		token := c.Query("token")
		if courseIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "course_id and token required"})
			return
		}
		courseID, err := uuid.Parse(courseIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course_id"})
			return
		}
		userID, _, role, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		isTutor := role == string(models.RoleAdmin)
		if access != nil {
			ctx := c.Request.Context()
			if !isTutor {
				isTutor, err = access.IsCourseTutor(ctx, courseID, userID)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "course access check failed"})
					return
				}
			}
			if !isTutor {
				enrolled, err := access.IsEnrolled(ctx, courseID, userID)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "course access check failed"})
					return
				}
				if !enrolled {
					c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this course"})
					return
				}
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:       uuid.New().String(),
			CourseID: courseID,
			UserID:   userID,
			Role:     role,
			isTutor:  isTutor,
			hub:      hub,
			conn:     conn,
			send:     make(chan []byte, 256),
			awarder:  awarder,
			catalog:  catalog,
			logger:   logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		env, err := protocol.Decode(raw)
		if err != nil {
			// Malformed frame: drop it, keep the connection.
			c.logger.Warn("discarding malformed client frame",
				zap.String("user_id", c.UserID.String()), zap.Error(err))
			continue
		}

		switch env.Kind {
		case protocol.KindGiveXP:
			c.handleGiveXP(env)
		case protocol.KindStartQuiz:
			c.handleStartQuiz(env)
		case protocol.KindFinishQuiz:
			c.handleFinishQuiz(env)
		case protocol.KindChatMessage:
			// Real-time chat passthrough: publish only so the Redis
			// subscriber broadcasts once for all instances.
			c.hub.PublishOnly(c.CourseID, raw)
		default:
			// ignore
		}
	}
}

func (c *Client) handleGiveXP(env protocol.Envelope) {
	if !c.isTutor {
		c.logger.Warn("GIVE_XP from non-tutor ignored", zap.String("user_id", c.UserID.String()))
		return
	}
	var cmd protocol.GiveXP
	if err := env.Payload(&cmd); err != nil || cmd.TargetUserID == uuid.Nil || cmd.Points <= 0 {
		c.logger.Warn("invalid GIVE_XP payload", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	name, total, err := c.awarder.AwardExperience(ctx, cmd.TargetUserID, cmd.Points)
	if err != nil {
		c.logger.Error("award experience", zap.String("target", cmd.TargetUserID.String()), zap.Error(err))
		return
	}
	c.hub.BroadcastAndPublish(c.CourseID,
		protocol.NewXPNotification(cmd.TargetUserID, name, cmd.Points, total))
}

func (c *Client) handleStartQuiz(env protocol.Envelope) {
	if !c.isTutor {
		c.logger.Warn("START_QUIZ from non-tutor ignored", zap.String("user_id", c.UserID.String()))
		return
	}
	var cmd protocol.StartQuiz
	if err := env.Payload(&cmd); err != nil || cmd.QuizID == uuid.Nil {
		c.logger.Warn("invalid START_QUIZ payload", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	quiz, err := c.catalog.GetCourseQuiz(ctx, c.CourseID, cmd.QuizID)
	if err != nil {
		c.logger.Warn("START_QUIZ for unknown quiz",
			zap.String("quiz_id", cmd.QuizID.String()), zap.Error(err))
		return
	}
	c.hub.BroadcastAndPublish(c.CourseID,
		protocol.NewQuizStarted(quiz.ID, quiz.Title, quiz.QuestionCount))
}

func (c *Client) handleFinishQuiz(env protocol.Envelope) {
	if !c.isTutor {
		return
	}
	var cmd protocol.FinishQuiz
	if err := env.Payload(&cmd); err != nil || cmd.QuizID == uuid.Nil {
		c.logger.Warn("invalid FINISH_QUIZ payload", zap.Error(err))
		return
	}
	c.hub.BroadcastAndPublish(c.CourseID, protocol.NewQuizFinished(cmd.QuizID, nil))
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
