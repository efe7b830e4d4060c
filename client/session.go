package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aulaviva/liveclass/protocol"
)

// SessionConfig binds a client to one active classroom context.
type SessionConfig struct {
	// ServerURL is the http(s) base of the classroom server; the
	// websocket endpoint is derived from it and the course id.
	ServerURL string
	CourseID  uuid.UUID
	Token     string

	Identity  Identity
	InitialXP int

	// MaxReconnectAttempts overrides the connection's redial bound.
	MaxReconnectAttempts int

	Logger *zap.Logger
}

// Session owns the live-classroom state for one course: the connection,
// the event router, and the derived stores. Components receive their
// collaborators explicitly; nothing is looked up from ambient scope.
type Session struct {
	cfg    SessionConfig
	conn   *Conn
	router *Router
	xp     *ExperienceStore
	quiz   *QuizController
	disp   *Dispatcher
	call   *CallController
	api    *API
	logger *zap.Logger
}

// NewSession wires a session for the given course and identity. The
// default handlers for xp_notification, quiz_started and quiz_finished
// are registered; callers may register further handlers for any kind
// (including the same ones) before opening.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("session: server url required")
	}
	if cfg.CourseID == uuid.Nil {
		return nil, fmt.Errorf("session: course id required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	wsURL, err := classroomWSURL(cfg.ServerURL, cfg.CourseID, cfg.Token)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:    cfg,
		router: NewRouter(logger),
		xp:     NewExperienceStore(cfg.Identity.UserID, cfg.InitialXP, logger),
		quiz:   NewQuizController(logger),
		call:   NewCallController(),
		api:    NewAPI(cfg.ServerURL, cfg.Token, logger),
		logger: logger,
	}
	s.conn = NewConn(ConnConfig{
		URL:                  wsURL,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	}, s.router.Dispatch, logger)
	s.disp = NewDispatcher(s.conn, s.quiz, logger)

	s.router.Register(protocol.KindXPNotification, func(env protocol.Envelope) {
		var n protocol.XPNotification
		if err := env.Payload(&n); err != nil {
			logger.Warn("bad xp_notification payload", zap.Error(err))
			return
		}
		s.xp.ApplyAward(ExperienceAward{
			UserID:   n.UserID,
			Username: n.Username,
			Points:   n.Points,
			TotalXP:  n.TotalXP,
		})
	})
	s.router.Register(protocol.KindQuizStarted, func(env protocol.Envelope) {
		var n protocol.QuizStarted
		if err := env.Payload(&n); err != nil {
			logger.Warn("bad quiz_started payload", zap.Error(err))
			return
		}
		s.quiz.Launch(n.QuizID, n.Title)
	})
	s.router.Register(protocol.KindQuizFinished, func(env protocol.Envelope) {
		var n protocol.QuizFinished
		if err := env.Payload(&n); err != nil {
			logger.Warn("bad quiz_finished payload", zap.Error(err))
			return
		}
		s.quiz.Conclude(n.QuizID, n.Leaderboard)
	})

	// A lost connection resets quiz-in-progress UI state; the quiz may
	// still be running server-side.
	s.conn.OnStateChange(func(state ConnState) {
		if state == StateDisconnected || state == StateConnecting {
			s.quiz.Reset()
		}
	})

	return s, nil
}

// classroomWSURL derives the websocket endpoint from the session's
// course context.
func classroomWSURL(serverURL string, courseID uuid.UUID, token string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("session: invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("session: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("course_id", courseID.String())
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open establishes the course connection.
func (s *Session) Open(ctx context.Context) error {
	return s.conn.Open(ctx)
}

// Close tears the session down. In-flight commands are not guaranteed
// delivered once teardown starts.
func (s *Session) Close() {
	s.conn.Close()
	s.xp.Stop()
}

// Conn exposes the connection for state observation.
func (s *Session) Conn() *Conn { return s.conn }

// Router exposes the event router for additional subscribers.
func (s *Session) Router() *Router { return s.router }

// Experience exposes the participant state store.
func (s *Session) Experience() *ExperienceStore { return s.xp }

// Quiz exposes the quiz session controller.
func (s *Session) Quiz() *QuizController { return s.quiz }

// Dispatcher exposes the tutor command dispatcher.
func (s *Session) Dispatcher() *Dispatcher { return s.disp }

// Call exposes the video-call overlay controller.
func (s *Session) Call() *CallController { return s.call }

// API exposes the REST seed client.
func (s *Session) API() *API { return s.api }

// Identity returns the participant this session was opened as.
func (s *Session) Identity() Identity { return s.cfg.Identity }
