package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aulaviva/liveclass/internal/models"
	"github.com/aulaviva/liveclass/protocol"
)

type stubUser struct {
	id   uuid.UUID
	role string
}

// roomFixture runs a gin server with the ws endpoint and in-memory stubs
// for the repositories.
type roomFixture struct {
	hub      *Hub
	server   *httptest.Server
	courseID uuid.UUID
	tutorID  uuid.UUID
	users    map[string]stubUser // token -> user

	mu     sync.Mutex
	totals map[uuid.UUID]int
	names  map[uuid.UUID]string
	quiz   *models.Quiz
}

func (f *roomFixture) validate(token string) (uuid.UUID, string, string, error) {
	u, ok := f.users[token]
	if !ok {
		return uuid.Nil, "", "", fmt.Errorf("unknown token")
	}
	return u.id, "", u.role, nil
}

func (f *roomFixture) IsEnrolled(_ context.Context, courseID, userID uuid.UUID) (bool, error) {
	if courseID != f.courseID {
		return false, nil
	}
	for _, u := range f.users {
		if u.id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *roomFixture) IsCourseTutor(_ context.Context, courseID, userID uuid.UUID) (bool, error) {
	return courseID == f.courseID && userID == f.tutorID, nil
}

func (f *roomFixture) AwardExperience(_ context.Context, userID uuid.UUID, points int) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.names[userID]
	if !ok {
		return "", 0, fmt.Errorf("no such user")
	}
	f.totals[userID] += points
	return name, f.totals[userID], nil
}

func (f *roomFixture) GetCourseQuiz(_ context.Context, courseID, quizID uuid.UUID) (*models.Quiz, error) {
	if f.quiz == nil || courseID != f.courseID || quizID != f.quiz.ID {
		return nil, fmt.Errorf("quiz not found")
	}
	return f.quiz, nil
}

func newRoomFixture(t *testing.T) *roomFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &roomFixture{
		courseID: uuid.New(),
		tutorID:  uuid.New(),
		totals:   make(map[uuid.UUID]int),
		names:    make(map[uuid.UUID]string),
	}
	studentID := uuid.New()
	f.users = map[string]stubUser{
		"tutor-token":   {id: f.tutorID, role: string(models.RoleTutor)},
		"student-token": {id: studentID, role: string(models.RoleStudent)},
	}
	f.names[studentID] = "Leo Díaz"
	f.totals[studentID] = 50

	logger := zap.NewNop()
	f.hub = NewHub(logger, nil, nil)

	r := gin.New()
	r.GET("/ws", ServeWs(f.hub, logger, f.validate, f, f, f))
	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

func (f *roomFixture) studentID() uuid.UUID {
	return f.users["student-token"].id
}

func (f *roomFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(f.server.URL, "http") +
		"/ws?course_id=" + f.courseID.String() + "&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial as %s: %v", token, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := protocol.Decode(raw)
	if err != nil {
		t.Fatalf("decode broadcast frame: %v", err)
	}
	return env
}

func waitRoomCount(t *testing.T, hub *Hub, courseID uuid.UUID, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if hub.RoomCount(courseID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room never reached %d clients (have %d)", want, hub.RoomCount(courseID))
}

func TestServeWs_RejectsBadHandshakes(t *testing.T) {
	f := newRoomFixture(t)

	cases := []struct {
		name  string
		query string
	}{
		{"missing token", "course_id=" + f.courseID.String()},
		{"bad course id", "course_id=nope&token=tutor-token"},
		{"unknown token", "course_id=" + f.courseID.String() + "&token=forged"},
		{"foreign course", "course_id=" + uuid.New().String() + "&token=student-token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?" + tc.query
			conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
			if err == nil {
				conn.Close()
				t.Fatal("handshake unexpectedly succeeded")
			}
			if resp != nil && resp.StatusCode == http.StatusSwitchingProtocols {
				t.Fatalf("unexpected upgrade, status %d", resp.StatusCode)
			}
		})
	}
	if n := f.hub.RoomCount(f.courseID); n != 0 {
		t.Errorf("rejected handshakes left %d clients registered", n)
	}
}

func TestServeWs_TutorAwardReachesWholeRoom(t *testing.T) {
	f := newRoomFixture(t)
	tutor := f.dial(t, "tutor-token")
	student := f.dial(t, "student-token")
	waitRoomCount(t, f.hub, f.courseID, 2)

	frame, _ := protocol.Encode(protocol.NewGiveXP(f.studentID(), 10))
	if err := tutor.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("tutor write: %v", err)
	}

	for name, conn := range map[string]*websocket.Conn{"tutor": tutor, "student": student} {
		env := readEnvelope(t, conn)
		if env.Kind != protocol.KindXPNotification {
			t.Fatalf("%s received %q, want xp_notification", name, env.Kind)
		}
		var n protocol.XPNotification
		if err := env.Payload(&n); err != nil {
			t.Fatalf("%s payload: %v", name, err)
		}
		if n.UserID != f.studentID() || n.Points != 10 || n.TotalXP != 60 {
			t.Errorf("%s got award %+v, want 10 points for a total of 60", name, n)
		}
		if n.Username != "Leo Díaz" {
			t.Errorf("%s got username %q", name, n.Username)
		}
	}
}

func TestServeWs_StudentCommandsAreIgnored(t *testing.T) {
	f := newRoomFixture(t)
	tutor := f.dial(t, "tutor-token")
	student := f.dial(t, "student-token")
	waitRoomCount(t, f.hub, f.courseID, 2)

	forged, _ := protocol.Encode(protocol.NewGiveXP(f.studentID(), 9999))
	if err := student.WriteMessage(websocket.TextMessage, forged); err != nil {
		t.Fatalf("student write: %v", err)
	}
	// A tutor command after the forged one: if the forged award had been
	// applied, its broadcast would arrive first.
	honest, _ := protocol.Encode(protocol.NewGiveXP(f.studentID(), 5))
	if err := tutor.WriteMessage(websocket.TextMessage, honest); err != nil {
		t.Fatalf("tutor write: %v", err)
	}

	env := readEnvelope(t, student)
	var n protocol.XPNotification
	if err := env.Payload(&n); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if n.Points != 5 || n.TotalXP != 55 {
		t.Errorf("forged award leaked through: %+v", n)
	}
}

func TestServeWs_QuizLaunchValidatedAgainstCatalog(t *testing.T) {
	f := newRoomFixture(t)
	f.quiz = &models.Quiz{
		ID:            uuid.New(),
		CourseID:      f.courseID,
		Title:         "Fracciones",
		QuestionCount: 4,
	}
	tutor := f.dial(t, "tutor-token")
	student := f.dial(t, "student-token")
	waitRoomCount(t, f.hub, f.courseID, 2)

	unknown, _ := protocol.Encode(protocol.NewStartQuiz(uuid.New()))
	if err := tutor.WriteMessage(websocket.TextMessage, unknown); err != nil {
		t.Fatalf("tutor write: %v", err)
	}
	known, _ := protocol.Encode(protocol.NewStartQuiz(f.quiz.ID))
	if err := tutor.WriteMessage(websocket.TextMessage, known); err != nil {
		t.Fatalf("tutor write: %v", err)
	}

	env := readEnvelope(t, student)
	if env.Kind != protocol.KindQuizStarted {
		t.Fatalf("student received %q, want quiz_started", env.Kind)
	}
	var started protocol.QuizStarted
	if err := env.Payload(&started); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if started.QuizID != f.quiz.ID || started.Title != "Fracciones" || started.QuestionCount != 4 {
		t.Errorf("unexpected launch broadcast: %+v", started)
	}

	finish, _ := protocol.Encode(protocol.NewFinishQuiz(f.quiz.ID))
	if err := tutor.WriteMessage(websocket.TextMessage, finish); err != nil {
		t.Fatalf("tutor write: %v", err)
	}
	env = readEnvelope(t, student)
	if env.Kind != protocol.KindQuizFinished {
		t.Fatalf("student received %q, want quiz_finished", env.Kind)
	}
}

func TestServeWs_MalformedFrameKeepsConnection(t *testing.T) {
	f := newRoomFixture(t)
	tutor := f.dial(t, "tutor-token")
	waitRoomCount(t, f.hub, f.courseID, 1)

	if err := tutor.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("tutor write: %v", err)
	}
	frame, _ := protocol.Encode(protocol.NewGiveXP(f.studentID(), 10))
	if err := tutor.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("tutor write: %v", err)
	}

	env := readEnvelope(t, tutor)
	if env.Kind != protocol.KindXPNotification {
		t.Fatalf("received %q after malformed frame, want xp_notification", env.Kind)
	}
}

func TestHub_UnregisterEmptiesRoom(t *testing.T) {
	f := newRoomFixture(t)
	conn := f.dial(t, "student-token")
	waitRoomCount(t, f.hub, f.courseID, 1)

	_ = conn.Close()
	waitRoomCount(t, f.hub, f.courseID, 0)
}
