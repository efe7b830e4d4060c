// Package protocol defines the message envelopes exchanged over a live
// classroom connection and the codec that validates them.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Event kinds pushed by the server to every participant in a course room.
const (
	KindXPNotification = "xp_notification"
	KindQuizStarted    = "quiz_started"
	KindQuizFinished   = "quiz_finished"
	KindChatMessage    = "chat_message"
)

// Command kinds sent by tutor clients. The discriminator field differs
// from server events (message_type vs type); both sides of the wire kept
// their historical names.
const (
	KindGiveXP     = "GIVE_XP"
	KindStartQuiz  = "START_QUIZ"
	KindFinishQuiz = "FINISH_QUIZ"
)

// Envelope is one decoded wire message: a kind tag plus the raw payload.
// Envelopes are immutable once constructed.
type Envelope struct {
	Kind string
	raw  json.RawMessage
}

// Payload unmarshals the envelope's payload fields into v.
func (e Envelope) Payload(v interface{}) error {
	if err := json.Unmarshal(e.raw, v); err != nil {
		return &DecodeError{Reason: "payload: " + err.Error(), Raw: e.raw}
	}
	return nil
}

// DecodeError reports a malformed or kind-less wire message. Callers log
// and discard; it is never fatal to the connection.
type DecodeError struct {
	Reason string
	Raw    []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode envelope: %s", e.Reason)
}

// Decode parses a raw wire message into an Envelope. The discriminator is
// read from "type" (server events) or "message_type" (client commands);
// a message carrying neither fails closed.
func Decode(raw []byte) (Envelope, error) {
	var probe struct {
		Type        string `json:"type"`
		MessageType string `json:"message_type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Envelope{}, &DecodeError{Reason: err.Error(), Raw: raw}
	}
	kind := probe.Type
	if kind == "" {
		kind = probe.MessageType
	}
	if kind == "" {
		return Envelope{}, &DecodeError{Reason: "missing kind", Raw: raw}
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return Envelope{Kind: kind, raw: cp}, nil
}

// Encode serializes an outbound payload struct. The payload carries its
// own discriminator field, so constructors below must be used rather than
// zero-value literals.
func Encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// XPNotification announces an experience award to the whole room. TotalXP
// is the authoritative absolute total after the award, not a delta.
type XPNotification struct {
	Type     string    `json:"type"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Points   int       `json:"points"`
	TotalXP  int       `json:"total_xp"`
}

// NewXPNotification builds the server push for one award.
func NewXPNotification(userID uuid.UUID, username string, points, totalXP int) XPNotification {
	return XPNotification{Type: KindXPNotification, UserID: userID, Username: username, Points: points, TotalXP: totalXP}
}

// QuizStarted announces a tutor-launched live quiz.
type QuizStarted struct {
	Type          string    `json:"type"`
	QuizID        uuid.UUID `json:"quiz_id"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"question_count"`
}

// NewQuizStarted builds the server push for a quiz launch.
func NewQuizStarted(quizID uuid.UUID, title string, questionCount int) QuizStarted {
	return QuizStarted{Type: KindQuizStarted, QuizID: quizID, Title: title, QuestionCount: questionCount}
}

// LeaderboardEntry is one row of a concluded quiz's standings.
type LeaderboardEntry struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Score    int       `json:"score"`
}

// QuizFinished announces the conclusion of a live quiz.
type QuizFinished struct {
	Type        string             `json:"type"`
	QuizID      uuid.UUID          `json:"quiz_id"`
	Leaderboard []LeaderboardEntry `json:"leaderboard,omitempty"`
}

// NewQuizFinished builds the server push for a quiz conclusion.
func NewQuizFinished(quizID uuid.UUID, leaderboard []LeaderboardEntry) QuizFinished {
	return QuizFinished{Type: KindQuizFinished, QuizID: quizID, Leaderboard: leaderboard}
}

// ChatMessage is the reserved classroom chat passthrough.
type ChatMessage struct {
	Type     string    `json:"type"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
}

// GiveXP is the tutor command awarding points to one student.
type GiveXP struct {
	MessageType  string    `json:"message_type"`
	TargetUserID uuid.UUID `json:"target_user_id"`
	Points       int       `json:"points"`
}

// NewGiveXP builds a GIVE_XP command.
func NewGiveXP(targetUserID uuid.UUID, points int) GiveXP {
	return GiveXP{MessageType: KindGiveXP, TargetUserID: targetUserID, Points: points}
}

// StartQuiz is the tutor command launching a live quiz.
type StartQuiz struct {
	MessageType string    `json:"message_type"`
	QuizID      uuid.UUID `json:"quiz_id"`
}

// NewStartQuiz builds a START_QUIZ command.
func NewStartQuiz(quizID uuid.UUID) StartQuiz {
	return StartQuiz{MessageType: KindStartQuiz, QuizID: quizID}
}

// FinishQuiz is the tutor command concluding the running quiz.
type FinishQuiz struct {
	MessageType string    `json:"message_type"`
	QuizID      uuid.UUID `json:"quiz_id"`
}

// NewFinishQuiz builds a FINISH_QUIZ command.
func NewFinishQuiz(quizID uuid.UUID) FinishQuiz {
	return FinishQuiz{MessageType: KindFinishQuiz, QuizID: quizID}
}
