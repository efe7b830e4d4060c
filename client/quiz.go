package client

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aulaviva/liveclass/protocol"
)

// QuizState is the lifecycle of one live quiz as seen by this client.
type QuizState int

const (
	QuizIdle QuizState = iota
	QuizLaunched
	QuizConcluded
)

func (s QuizState) String() string {
	switch s {
	case QuizLaunched:
		return "launched"
	case QuizConcluded:
		return "concluded"
	default:
		return "idle"
	}
}

type quizEvent int

const (
	quizEventLaunch quizEvent = iota
	quizEventConclude
	quizEventDisconnect
)

// reduceQuiz is the pure transition function. Unlisted (state, event)
// pairs keep the current state.
func reduceQuiz(state QuizState, ev quizEvent) QuizState {
	switch ev {
	case quizEventLaunch:
		if state == QuizIdle || state == QuizConcluded {
			return QuizLaunched
		}
	case quizEventConclude:
		if state == QuizLaunched {
			return QuizConcluded
		}
	case quizEventDisconnect:
		return QuizIdle
	}
	return state
}

// QuizController tracks the live-quiz lifecycle for one session. Launch
// happens either optimistically on the tutor's own dispatch or on the
// inbound quiz_started event; both paths land here and re-launching an
// already launched quiz is a no-op.
type QuizController struct {
	mu          sync.Mutex
	state       QuizState
	quizID      uuid.UUID
	title       string
	leaderboard []protocol.LeaderboardEntry
	logger      *zap.Logger
}

// NewQuizController creates an idle controller.
func NewQuizController(logger *zap.Logger) *QuizController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizController{logger: logger}
}

// Launch moves Idle or Concluded to Launched for the given quiz. Returns
// whether a transition happened.
func (q *QuizController) Launch(quizID uuid.UUID, title string) bool {
	if quizID == uuid.Nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	next := reduceQuiz(q.state, quizEventLaunch)
	if next == q.state {
		return false
	}
	q.state = next
	q.quizID = quizID
	q.title = title
	q.leaderboard = nil
	q.logger.Info("quiz launched", zap.String("quiz_id", quizID.String()))
	return true
}

// Conclude moves Launched to Concluded. A conclusion for a quiz other
// than the running one, or in any other state, is ignored.
func (q *QuizController) Conclude(quizID uuid.UUID, leaderboard []protocol.LeaderboardEntry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if quizID != uuid.Nil && q.quizID != uuid.Nil && quizID != q.quizID {
		return false
	}
	next := reduceQuiz(q.state, quizEventConclude)
	if next == q.state {
		return false
	}
	q.state = next
	q.leaderboard = leaderboard
	q.logger.Info("quiz concluded", zap.String("quiz_id", q.quizID.String()))
	return true
}

// Reset returns to Idle on disconnect. It clears quiz-in-progress UI
// state only; the quiz itself may still be running server-side.
func (q *QuizController) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.state = reduceQuiz(q.state, quizEventDisconnect)
	q.quizID = uuid.Nil
	q.title = ""
	q.leaderboard = nil
}

// State returns the current lifecycle state.
func (q *QuizController) State() QuizState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// InProgress reports the tutor-side UI lock that disables re-launch
// controls while a quiz runs.
func (q *QuizController) InProgress() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state == QuizLaunched
}

// Current returns the running or concluded quiz id and title, if any.
func (q *QuizController) Current() (uuid.UUID, string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.quizID, q.title, q.quizID != uuid.Nil
}

// Leaderboard returns the standings snapshot from the conclusion event.
func (q *QuizController) Leaderboard() []protocol.LeaderboardEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]protocol.LeaderboardEntry, len(q.leaderboard))
	copy(out, q.leaderboard)
	return out
}
