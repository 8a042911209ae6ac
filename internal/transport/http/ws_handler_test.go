package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ctscan-quiz/internal/app"
	"ctscan-quiz/internal/domain"
	"ctscan-quiz/internal/game"
	"ctscan-quiz/internal/infra/memory"
)

func TestWebSocketGameFlow(t *testing.T) {
	service := newTestService(t)
	wsHandler := NewWSHandler(service, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?sessionId=s-1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readNext(conn, t, "ready")

	send(t, conn, map[string]any{"type": "start", "payload": map[string]any{"mode": "practice"}})
	payload := readUntil(conn, t, "question")
	question, ok := payload["question"].(map[string]any)
	if !ok {
		t.Fatalf("expected question in payload, got %v", payload)
	}
	if _, leaked := question["correctOptionId"]; leaked {
		t.Fatalf("question payload leaks the correct option: %v", question)
	}

	send(t, conn, map[string]any{"type": "submit"})
	errPayload := readUntil(conn, t, "error")
	if errPayload["message"] != domain.ErrNoSelection.Error() {
		t.Fatalf("expected no-selection error, got %v", errPayload)
	}

	send(t, conn, map[string]any{"type": "select", "payload": map[string]any{"optionId": "a"}})
	snap := readUntil(conn, t, "snapshot")
	if snap["selectedOptionId"] != "a" {
		t.Fatalf("expected selection echoed, got %v", snap["selectedOptionId"])
	}

	send(t, conn, map[string]any{"type": "submit"})
	resolved := readUntil(conn, t, "resolved")
	outcome, _ := resolved["outcome"].(map[string]any)
	if outcome["correct"] != true || outcome["points"] != float64(10) {
		t.Fatalf("expected correct answer worth 10 points, got %v", outcome)
	}

	ended := readUntil(conn, t, "ended")
	if ended["percentage"] != float64(100) || ended["rating"] != "excellent" {
		t.Fatalf("unexpected ended payload %v", ended)
	}
	state, _ := ended["state"].(map[string]any)
	if state["endReason"] != string(domain.EndExhaustedQuestions) {
		t.Fatalf("expected exhausted-questions, got %v", state["endReason"])
	}
}

func TestWebSocketRequiresSessionAndName(t *testing.T) {
	wsHandler := NewWSHandler(newTestService(t), nil)
	rec := httptest.NewRecorder()
	wsHandler.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws?sessionId=s-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebSocketRejectsUnknownMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(NewWSHandler(newTestService(t), nil).ServeWS))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/?sessionId=s-2&name=Bob", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readNext(conn, t, "ready")
	send(t, conn, map[string]any{"type": "answer"})
	if got := readUntil(conn, t, "error"); got["message"] != "unsupported message type" {
		t.Fatalf("unexpected error payload %v", got)
	}
	send(t, conn, map[string]any{"type": "next"})
	if got := readUntil(conn, t, "error"); got["message"] != domain.ErrSessionNotFound.Error() {
		t.Fatalf("expected session not found, got %v", got)
	}
}

func newTestService(t *testing.T) *app.GameService {
	t.Helper()
	cfg := game.DefaultConfig()
	cfg.QuestionsPerLevel = 1
	cfg.LevelsEnabled = false

	bank := []domain.Question{{
		ID:              "q1",
		Text:            "Which unit measures CT attenuation?",
		Options:         []domain.Option{{ID: "a", Text: "Hounsfield unit"}, {ID: "b", Text: "Tesla"}},
		CorrectOptionID: "a",
	}}
	service, err := app.NewGameService(cfg, memory.NewQuestionStore(bank), memory.NewSessionStore(), memory.NewStatsStore())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %v: %v", msg["type"], err)
	}
}

// readUntil skips other message types (ticks arrive at any point).
func readUntil(conn *websocket.Conn, t *testing.T, want string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == want {
			return payload
		}
	}
	t.Fatalf("no %s message received", want)
	return nil
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func TestExamEventsHideAnswerKeysUntilEnd(t *testing.T) {
	missed := domain.Question{
		ID:              "q1",
		Text:            "Which unit measures CT attenuation?",
		Options:         []domain.Option{{ID: "a", Text: "Tesla"}, {ID: "b", Text: "Hounsfield unit"}},
		CorrectOptionID: "b",
		Explanation:     "Hounsfield units express attenuation relative to water.",
	}
	snap := game.Snapshot{
		State:     game.StateResolved,
		Mode:      domain.ModeExam,
		Incorrect: []domain.IncorrectAnswer{{Question: missed, SelectedOptionID: "a", TimeRemaining: 12}},
		LastOutcome: &domain.Outcome{
			QuestionID:       "q1",
			SelectedOptionID: "a",
			CorrectOptionID:  "b",
		},
	}
	ev := game.Event{Kind: game.EventResolved, Snapshot: snap, Outcome: snap.LastOutcome}

	data, err := json.Marshal(eventMessage(ev))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"correctOptionId":"b"`) || strings.Contains(string(data), "Hounsfield units express") {
		t.Fatalf("exam resolved event reveals the answer: %s", data)
	}
	if !strings.Contains(string(data), `"userAnswerId":"a"`) {
		t.Fatalf("expected missed question to stay listed: %s", data)
	}
	if snap.Incorrect[0].Question.CorrectOptionID != "b" {
		t.Fatalf("view must not modify the snapshot")
	}

	snap.State = game.StateEnded
	snap.Ended = true
	data, err = json.Marshal(eventMessage(game.Event{Kind: game.EventEnded, Snapshot: snap}))
	if err != nil {
		t.Fatalf("marshal ended: %v", err)
	}
	if !strings.Contains(string(data), `"correctOptionId":"b"`) {
		t.Fatalf("ended event should carry the review answers: %s", data)
	}

	snap.Mode = domain.ModePractice
	snap.Ended = false
	snap.State = game.StateResolved
	data, _ = json.Marshal(eventMessage(game.Event{Kind: game.EventResolved, Snapshot: snap, Outcome: snap.LastOutcome}))
	if !strings.Contains(string(data), `"correctOptionId":"b"`) {
		t.Fatalf("practice mode reveals answers: %s", data)
	}
}
