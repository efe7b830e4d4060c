package client

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aulaviva/liveclass/protocol"
)

// Sender writes one outbound command to the course connection. *Conn
// satisfies it; tests substitute a recorder.
type Sender interface {
	Send(v interface{}) error
}

// Dispatcher composes and sends tutor control commands. Precondition
// failures are rejected locally with a diagnostic and no network call.
type Dispatcher struct {
	sender Sender
	quiz   *QuizController
	logger *zap.Logger

	mu      sync.Mutex
	lastErr error
}

// NewDispatcher creates a dispatcher bound to one connection and quiz
// controller.
func NewDispatcher(sender Sender, quiz *QuizController, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sender: sender, quiz: quiz, logger: logger}
}

// GiveExperience awards points to one student.
func (d *Dispatcher) GiveExperience(studentID uuid.UUID, points int) error {
	if err := d.sender.Send(protocol.NewGiveXP(studentID, points)); err != nil {
		d.logger.Error("give experience failed",
			zap.String("student_id", studentID.String()), zap.Error(err))
		d.setErr(err)
		return err
	}
	d.setErr(nil)
	d.logger.Info("experience awarded",
		zap.String("student_id", studentID.String()), zap.Int("points", points))
	return nil
}

// LaunchQuiz starts a live quiz for the whole room. On success the local
// controller transitions to Launched immediately, without waiting for
// the server echo.
func (d *Dispatcher) LaunchQuiz(quizID uuid.UUID) error {
	if quizID == uuid.Nil {
		d.setErr(ErrNoQuizSelected)
		d.logger.Warn("launch rejected: no quiz selected")
		return ErrNoQuizSelected
	}
	if d.quiz.InProgress() {
		d.setErr(ErrQuizInProgress)
		d.logger.Warn("launch rejected: quiz already running")
		return ErrQuizInProgress
	}
	if err := d.sender.Send(protocol.NewStartQuiz(quizID)); err != nil {
		d.logger.Error("launch quiz failed",
			zap.String("quiz_id", quizID.String()), zap.Error(err))
		d.setErr(err)
		return err
	}
	d.quiz.Launch(quizID, "")
	d.setErr(nil)
	d.logger.Info("quiz launch sent", zap.String("quiz_id", quizID.String()))
	return nil
}

// FinishQuiz concludes the running quiz. The local controller moves to
// Concluded optimistically, mirroring LaunchQuiz.
func (d *Dispatcher) FinishQuiz() error {
	quizID, _, ok := d.quiz.Current()
	if !ok || !d.quiz.InProgress() {
		d.setErr(ErrNoQuizSelected)
		return ErrNoQuizSelected
	}
	if err := d.sender.Send(protocol.NewFinishQuiz(quizID)); err != nil {
		d.logger.Error("finish quiz failed",
			zap.String("quiz_id", quizID.String()), zap.Error(err))
		d.setErr(err)
		return err
	}
	d.quiz.Conclude(quizID, nil)
	d.setErr(nil)
	return nil
}

// LastError returns the most recent local diagnostic, cleared by the
// next successful dispatch. Intended for a passive UI indicator.
func (d *Dispatcher) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Dispatcher) setErr(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}
