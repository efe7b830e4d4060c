package client

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aulaviva/liveclass/protocol"
)

func newTestSession(t *testing.T, server *wsTestServer, identity Identity, initialXP int) *Session {
	t.Helper()
	s, err := NewSession(SessionConfig{
		ServerURL: server.URL,
		CourseID:  uuid.New(),
		Token:     "test-token",
		Identity:  identity,
		InitialXP: initialXP,
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestSession_WSURLFromCourseContext(t *testing.T) {
	courseID := uuid.New()
	raw, err := classroomWSURL("https://aulas.example.com/api", courseID, "tok")
	if err != nil {
		t.Fatalf("classroomWSURL failed: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("bad url: %v", err)
	}
	if u.Scheme != "wss" || u.Path != "/api/ws" {
		t.Errorf("unexpected endpoint %s", raw)
	}
	if u.Query().Get("course_id") != courseID.String() || u.Query().Get("token") != "tok" {
		t.Errorf("missing session context in %s", raw)
	}
}

func TestSession_OwnAwardFlowsIntoStore(t *testing.T) {
	server := newWSTestServer(t)
	self := uuid.New()
	sess := newTestSession(t, server, Identity{UserID: self, Username: "Leo", Role: RoleStudent}, 50)

	if err := sess.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	sconn := server.waitConn(t)

	frame, _ := protocol.Encode(protocol.NewXPNotification(self, "Leo", 10, 60))
	if err := sconn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("server write: %v", err)
	}
	other, _ := protocol.Encode(protocol.NewXPNotification(uuid.New(), "Ana", 50, 500))
	if err := sconn.WriteMessage(websocket.TextMessage, other); err != nil {
		t.Fatalf("server write: %v", err)
	}

	waitFor(t, "award applied", func() bool { return sess.Experience().Total() == 60 })
	if delta, ok := sess.Experience().Delta(); !ok || delta != 10 {
		t.Errorf("expected +10 XP animation, got %d (visible=%v)", delta, ok)
	}
}

func TestSession_QuizStartedEventLaunchesController(t *testing.T) {
	server := newWSTestServer(t)
	sess := newTestSession(t, server, Identity{UserID: uuid.New(), Role: RoleStudent}, 0)

	if err := sess.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	sconn := server.waitConn(t)

	quizID := uuid.New()
	frame, _ := protocol.Encode(protocol.NewQuizStarted(quizID, "Fracciones", 5))
	if err := sconn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("server write: %v", err)
	}

	waitFor(t, "quiz launched", func() bool { return sess.Quiz().InProgress() })
	if id, title, _ := sess.Quiz().Current(); id != quizID || title != "Fracciones" {
		t.Errorf("unexpected quiz %s %q", id, title)
	}

	done, _ := protocol.Encode(protocol.NewQuizFinished(quizID, nil))
	if err := sconn.WriteMessage(websocket.TextMessage, done); err != nil {
		t.Fatalf("server write: %v", err)
	}
	waitFor(t, "quiz concluded", func() bool { return sess.Quiz().State() == QuizConcluded })
}

func TestSession_DisconnectResetsQuizWithoutSending(t *testing.T) {
	server := newWSTestServer(t)
	tutor := Identity{UserID: uuid.New(), Username: "Marta", Role: RoleTutor}
	sess := newTestSession(t, server, tutor, 0)

	if err := sess.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	sconn := server.waitConn(t)
	waitFor(t, "session connected", func() bool { return sess.Conn().State() == StateConnected })

	if err := sess.Dispatcher().LaunchQuiz(uuid.New()); err != nil {
		t.Fatalf("LaunchQuiz failed: %v", err)
	}
	// Drain the launch command so the close below is the next event.
	if _, _, err := sconn.ReadMessage(); err != nil {
		t.Fatalf("server read: %v", err)
	}
	if !sess.Quiz().InProgress() {
		t.Fatal("optimistic launch missing")
	}

	server.close()

	waitFor(t, "quiz reset on disconnect", func() bool { return !sess.Quiz().InProgress() })
}

func TestSession_TutorCommandReachesServer(t *testing.T) {
	server := newWSTestServer(t)
	tutor := Identity{UserID: uuid.New(), Username: "Marta", Role: RoleTutor}
	sess := newTestSession(t, server, tutor, 0)

	if err := sess.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	sconn := server.waitConn(t)
	waitFor(t, "session connected", func() bool { return sess.Conn().State() == StateConnected })

	student := uuid.New()
	if err := sess.Dispatcher().GiveExperience(student, 50); err != nil {
		t.Fatalf("GiveExperience failed: %v", err)
	}

	_, raw, err := sconn.ReadMessage()
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	env, err := protocol.Decode(raw)
	if err != nil {
		t.Fatalf("server-side decode: %v", err)
	}
	if env.Kind != protocol.KindGiveXP {
		t.Fatalf("expected GIVE_XP, got %q", env.Kind)
	}
	var cmd protocol.GiveXP
	if err := env.Payload(&cmd); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if cmd.TargetUserID != student || cmd.Points != 50 {
		t.Errorf("unexpected command: %+v", cmd)
	}
}
