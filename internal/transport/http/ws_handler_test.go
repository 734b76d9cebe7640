package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"elearning-quiz-service/internal/app"
	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/infra/mail"
	"elearning-quiz-service/internal/infra/memory"
	"elearning-quiz-service/internal/logging"
	"github.com/gorilla/websocket"
)

type harness struct {
	server   *httptest.Server
	sink     *memory.ResultSink
	notifier *mail.ConsoleNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	material := filepath.Join(t.TempDir(), "safety.txt")
	if err := os.WriteFile(material, []byte("wear a helmet"), 0o644); err != nil {
		t.Fatalf("write material: %v", err)
	}

	log := logging.Discard()
	sink := memory.NewResultSink()
	notifier := mail.NewConsoleNotifier(log)
	bank := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleBanks()), time.Minute)

	machine := app.NewMachine(app.Deps{
		Roster:     memory.NewRoster([]domain.User{{Email: "taro@example.com", DisplayName: "Taro"}}),
		Questions:  bank,
		Dispatcher: app.NewDispatcher(sink, notifier, time.Second, log),
		Themes: []domain.Theme{
			{Key: "safety", Title: "Safety", TimeLimitMinutes: 30, PassingScore: 50, Enabled: true, MaterialPath: material},
			{Key: "legacy", Title: "Legacy", TimeLimitMinutes: 30, Enabled: false, MaterialPath: material},
		},
		Policy: app.NotificationPolicy{
			Admins:             []string{"admin@example.com"},
			SubjectPrefix:      "[E-Learning]",
			SendOnCompletion:   true,
			SendOnRetakeNeeded: true,
		},
		Logger: log,
	})

	server := httptest.NewServer(NewRouter(machine, NewWSHandler(machine, log)))
	t.Cleanup(server.Close)
	return &harness{server: server, sink: sink, notifier: notifier}
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	u := "ws" + h.server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketQuizFlow(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	if view := readSession(t, conn); view.State != app.StateLogin {
		t.Fatalf("expected login state first, got %s", view.State)
	}

	send(t, conn, "login", map[string]any{"email": "taro@example.com"})
	view := readSession(t, conn)
	if view.State != app.StateDashboard || view.User == nil || view.User.DisplayName != "Taro" {
		t.Fatalf("expected dashboard for Taro, got %+v", view)
	}
	if len(view.Themes) != 1 || view.Themes[0].Key != "safety" {
		t.Fatalf("expected only enabled themes, got %+v", view.Themes)
	}

	send(t, conn, "selectTheme", map[string]any{"theme": "safety"})
	if view := readSession(t, conn); view.State != app.StateLearning || view.RemainingSeconds <= 0 {
		t.Fatalf("expected learning with countdown, got %+v", view)
	}

	send(t, conn, "startQuiz", nil)
	view = readSession(t, conn)
	if view.State != app.StateQuiz || len(view.Questions) != 2 || view.Questions[1].Ordinal != 2 {
		t.Fatalf("expected quiz with two questions, got %+v", view)
	}

	send(t, conn, "answer", map[string]any{"ordinal": 1, "option": 1})
	if view := readSession(t, conn); len(view.Answered) != 1 || view.Answered[0] != 1 {
		t.Fatalf("expected ordinal 1 answered, got %+v", view.Answered)
	}

	send(t, conn, "submit", nil)
	view = readSession(t, conn)
	if view.State != app.StateResult || view.Score == nil || *view.Score != 50 || !view.Passed {
		t.Fatalf("expected passing result of 50, got %+v", view)
	}
	if view.AttemptID == "" {
		t.Fatalf("expected attempt id")
	}

	records := h.sink.Records()
	if len(records) != 1 || records[0].Email != "taro@example.com" || records[0].Score != 50 {
		t.Fatalf("expected one persisted attempt, got %+v", records)
	}
	if sent := h.notifier.Sent(); len(sent) != 1 || !strings.Contains(sent[0].Subject, "Taro") {
		t.Fatalf("expected completion mail, got %+v", sent)
	}

	send(t, conn, "backToDashboard", nil)
	if view := readSession(t, conn); view.State != app.StateDashboard || view.Score != nil {
		t.Fatalf("expected cleared dashboard, got %+v", view)
	}
}

func TestWebSocketRejections(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	readSession(t, conn)

	send(t, conn, "login", map[string]any{"email": "nobody@example.com"})
	if kind := readError(t, conn); kind != "authentication" {
		t.Fatalf("expected authentication error, got %s", kind)
	}
	if view := readSession(t, conn); view.State != app.StateLogin {
		t.Fatalf("expected to stay on login, got %s", view.State)
	}

	send(t, conn, "submit", nil)
	if kind := readError(t, conn); kind != "invalidTransition" {
		t.Fatalf("expected invalid transition, got %s", kind)
	}
	readSession(t, conn)

	send(t, conn, "dance", nil)
	if kind := readError(t, conn); kind != "badRequest" {
		t.Fatalf("expected bad request, got %s", kind)
	}
	readSession(t, conn)

	send(t, conn, "answer", map[string]any{"ordinal": 1})
	if kind := readError(t, conn); kind != "badRequest" {
		t.Fatalf("expected bad request for partial answer, got %s", kind)
	}
}

func TestViewHidesCorrectAnswers(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	readSession(t, conn)

	send(t, conn, "login", map[string]any{"email": "taro@example.com"})
	readSession(t, conn)
	send(t, conn, "selectTheme", map[string]any{"theme": "safety"})
	readSession(t, conn)
	send(t, conn, "startQuiz", nil)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(raw), "correct") {
		t.Fatalf("view leaks answers: %s", raw)
	}
}

func TestHTTPRoutes(t *testing.T) {
	h := newHarness(t)

	body := get(t, h.server.URL+"/healthz", http.StatusOK)
	if body != "ok" {
		t.Fatalf("unexpected healthz body %q", body)
	}

	var themes []domain.Theme
	if err := json.Unmarshal([]byte(get(t, h.server.URL+"/themes", http.StatusOK)), &themes); err != nil {
		t.Fatalf("decode themes: %v", err)
	}
	if len(themes) != 1 || themes[0].Key != "safety" {
		t.Fatalf("expected only enabled themes, got %+v", themes)
	}

	if body := get(t, h.server.URL+"/materials/safety", http.StatusOK); body != "wear a helmet" {
		t.Fatalf("unexpected material %q", body)
	}
	get(t, h.server.URL+"/materials/legacy", http.StatusNotFound)
	get(t, h.server.URL+"/materials/unknown", http.StatusNotFound)
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readSession(t *testing.T, conn *websocket.Conn) SessionView {
	t.Helper()
	var msg outboundMessage[SessionView]
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "session" {
		t.Fatalf("expected session message, got %s", msg.Type)
	}
	return msg.Payload
}

func readError(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	var msg outboundMessage[errorPayload]
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "error" {
		t.Fatalf("expected error message, got %s", msg.Type)
	}
	return msg.Payload.Kind
}

func get(t *testing.T, url string, wantStatus int) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("get %s: expected %d, got %d", url, wantStatus, resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	return string(data)
}

func sampleBanks() map[string][]domain.Question {
	return map[string][]domain.Question{
		"safety": {
			{Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: 1},
			{Prompt: "Helmet on site?", Options: []string{"always", "never"}, CorrectAnswer: 0},
		},
	}
}
