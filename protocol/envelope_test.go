package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestDecode_XPNotification(t *testing.T) {
	userID := uuid.New()
	raw := []byte(`{"type":"xp_notification","user_id":"` + userID.String() + `","username":"Ana","points":10,"total_xp":60}`)

	env, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Kind != KindXPNotification {
		t.Errorf("expected kind %q, got %q", KindXPNotification, env.Kind)
	}

	var n XPNotification
	if err := env.Payload(&n); err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	if n.UserID != userID || n.Username != "Ana" || n.Points != 10 || n.TotalXP != 60 {
		t.Errorf("unexpected payload: %+v", n)
	}
}

func TestDecode_CommandDiscriminator(t *testing.T) {
	raw := []byte(`{"message_type":"GIVE_XP","target_user_id":"` + uuid.New().String() + `","points":50}`)
	env, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Kind != KindGiveXP {
		t.Errorf("expected kind %q, got %q", KindGiveXP, env.Kind)
	}
}

func TestDecode_UnknownKindIsNotAnError(t *testing.T) {
	env, err := Decode([]byte(`{"type":"future_server_event","anything":true}`))
	if err != nil {
		t.Fatalf("unknown kinds must decode: %v", err)
	}
	if env.Kind != "future_server_event" {
		t.Errorf("unexpected kind %q", env.Kind)
	}
}

func TestDecode_FailsClosed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"type":`},
		{"missing kind", `{"points":10}`},
		{"empty kind", `{"type":""}`},
		{"wrong kind type", `{"type":42}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw))
			if err == nil {
				t.Fatal("expected a decode error")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("expected *DecodeError, got %T", err)
			}
		})
	}
}

func TestEncode_GiveXP(t *testing.T) {
	target := uuid.New()
	data, err := Encode(NewGiveXP(target, 50))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("encoded frame is not valid JSON: %v", err)
	}
	if out["message_type"] != KindGiveXP {
		t.Errorf("expected message_type %q, got %v", KindGiveXP, out["message_type"])
	}
	if out["target_user_id"] != target.String() {
		t.Errorf("expected target_user_id %q, got %v", target, out["target_user_id"])
	}
	if out["points"] != float64(50) {
		t.Errorf("expected points 50, got %v", out["points"])
	}
}

func TestEncode_DecodeRoundTrip(t *testing.T) {
	quizID := uuid.New()
	frame, err := Encode(NewQuizStarted(quizID, "Fracciones", 5))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	env, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Kind != KindQuizStarted {
		t.Fatalf("expected kind %q, got %q", KindQuizStarted, env.Kind)
	}
	var n QuizStarted
	if err := env.Payload(&n); err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	if n.QuizID != quizID || n.Title != "Fracciones" || n.QuestionCount != 5 {
		t.Errorf("unexpected payload: %+v", n)
	}
}
