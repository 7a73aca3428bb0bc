package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"footy-quiz-service/internal/app"
	"footy-quiz-service/internal/auth"
	"footy-quiz-service/internal/domain"
	"footy-quiz-service/internal/engine"
	"footy-quiz-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

type testServer struct {
	*httptest.Server
	backend  *memory.Backend
	verifier *auth.Verifier
	sessions *auth.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	backend := memory.NewBackend()
	memory.SeedFootball(backend)
	backend.AddCategory(domain.Category{ID: "var", Name: "VAR"})
	backend.AddQuiz(domain.Quiz{ID: "var-basics", Name: "VAR Basics", CategoryIDs: []string{"var"}})
	backend.AddQuiz(domain.Quiz{ID: "one", Name: "One Question", CategoryIDs: []string{"solo"}})
	backend.AddCategory(domain.Category{ID: "solo", Name: "Solo"})
	backend.AddQuestion(domain.Question{ID: "s1", CategoryID: "solo", Text: "How many players per side?", Answers: []domain.Answer{
		{ID: "s1-a", Text: "10"},
		{ID: "s1-b", Text: "11", IsCorrect: true},
	}})
	backend.AddProfile(domain.Profile{ID: "u1", Username: "whistle"})

	verifier := auth.NewVerifier([]byte("test-secret"))
	notifier := auth.NewBroadcaster()
	sessions := auth.NewStore(notifier, nil)
	if err := sessions.Start(context.Background()); err != nil {
		t.Fatalf("start auth store: %v", err)
	}
	t.Cleanup(sessions.Close)
	eng := engine.New(backend, memory.NewQuestionCache(backend, time.Minute), backend)
	api := NewAPI(
		app.NewCatalogService(backend),
		app.NewReviewService(backend, backend, backend, domain.DefaultQuestionCount),
		app.NewLeaderboardService(backend, memory.NewLeaderboardCache(), time.Minute, 20, domain.DefaultQuestionCount, nil),
		notifier,
	)
	srv := httptest.NewServer(NewRouter(api, NewWSHandler(eng, nil), verifier, sessions, nil))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, backend: backend, verifier: verifier, sessions: sessions}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.verifier.Sign(userID, "sid-"+userID, userID+"@example.com", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestCategoryRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodGet, "/api/categories", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var cats []domain.Category
	decode(t, resp, &cats)
	if len(cats) != 5 || cats[0].Name != "Fouls and Misconduct" {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	resp = srv.do(t, http.MethodGet, "/api/categories/Offside/quizzes", "", nil)
	var listing app.CategoryListing
	decode(t, resp, &listing)
	if listing.Category.ID != "offside" || listing.QuestionCount != 4 || len(listing.Quizzes) != 2 {
		t.Fatalf("unexpected listing: %+v", listing)
	}

	resp = srv.do(t, http.MethodGet, "/api/categories/Handball/quizzes", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown category, got %d", resp.StatusCode)
	}
}

func TestCustomQuizRequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	body := app.CustomQuizRequest{CategoryIDs: []string{"offside", "restarts"}, QuestionCount: 6}

	resp := srv.do(t, http.MethodPost, "/api/quizzes/custom", "", body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp = srv.do(t, http.MethodPost, "/api/quizzes/custom", srv.token(t, "u1"), body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created createQuizResponse
	decode(t, resp, &created)
	if created.QuizID == "" || created.PlayPath != "/quiz/"+created.QuizID {
		t.Fatalf("unexpected response: %+v", created)
	}

	resp = srv.do(t, http.MethodPost, "/api/quizzes/custom", srv.token(t, "u1"), app.CustomQuizRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty selection, got %d", resp.StatusCode)
	}
}

func TestProfileRoutes(t *testing.T) {
	srv := newTestServer(t)
	tok := srv.token(t, "u1")

	resp := srv.do(t, http.MethodGet, "/api/me/profile", tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var view app.ProfileView
	decode(t, resp, &view)
	if view.Role != domain.RoleUser || view.DisplayName != "whistle" {
		t.Fatalf("unexpected profile: %+v", view)
	}

	resp = srv.do(t, http.MethodPut, "/api/me/profile", tok, domain.ProfileUpdate{Username: "linesman"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d", resp.StatusCode)
	}
	resp = srv.do(t, http.MethodPut, "/api/me/profile", tok, domain.ProfileUpdate{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty username, got %d", resp.StatusCode)
	}

	resp = srv.do(t, http.MethodGet, "/api/me/history", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	srv := newTestServer(t)
	tok := srv.token(t, "u1")
	watch, stop := srv.sessions.Watch()
	defer stop()

	resp := srv.do(t, http.MethodGet, "/api/me/history", tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 before sign-out, got %d", resp.StatusCode)
	}

	resp = srv.do(t, http.MethodPost, "/api/auth/signout", tok, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	select {
	case <-watch:
	case <-time.After(2 * time.Second):
		t.Fatalf("sign-out never applied")
	}

	resp = srv.do(t, http.MethodGet, "/api/me/history", tok, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after sign-out, got %d", resp.StatusCode)
	}
}

func TestWebSocketPlaysQuizToReview(t *testing.T) {
	srv := newTestServer(t)
	tok := srv.token(t, "u1")

	conn := dial(t, srv, "/ws/quiz/one?access_token="+tok)
	defer conn.Close()

	typ, payload := readNext(t, conn)
	if typ != "question" || payload.Question == nil || payload.Question.ID != "s1" {
		t.Fatalf("expected first question, got %s %+v", typ, payload)
	}
	if payload.SecondsLeft != engine.QuestionTimeLimit {
		t.Fatalf("expected full countdown, got %d", payload.SecondsLeft)
	}

	send(t, conn, "select", selectPayload{QuestionID: "s1", AnswerID: "nope"})
	if typ, _ := readUntil(t, conn, "error", "tick"); typ != "error" {
		t.Fatalf("expected error for unknown answer, got %s", typ)
	}

	send(t, conn, "select", selectPayload{QuestionID: "s1", AnswerID: "s1-b"})
	if _, p := readUntil(t, conn, "state", "tick"); p.SelectedAnswerID != "s1-b" {
		t.Fatalf("expected selection echoed, got %+v", p)
	}

	send(t, conn, "next", nextPayload{QuestionID: "s1"})
	_, finished := readUntil(t, conn, "finished", "finalizing", "state", "tick")
	if finished.Result == nil || finished.Result.Score != 100 || !finished.Result.Passed {
		t.Fatalf("unexpected result: %+v", finished.Result)
	}
	if finished.ReviewPath != "/review/"+finished.SessionID {
		t.Fatalf("unexpected review path %q", finished.ReviewPath)
	}

	// Answer rows are written in the background.
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp := srv.do(t, http.MethodGet, "/api/sessions/"+finished.SessionID+"/review", tok, nil)
		var review domain.Review
		decode(t, resp, &review)
		if len(review.Answers) == 1 {
			if len(review.Questions) != 1 || !review.Answers[0].IsCorrect {
				t.Fatalf("unexpected review: %+v", review)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("answer never recorded: %+v", review)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWebSocketNoQuestions(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, "/ws/quiz/var-basics")
	defer conn.Close()

	typ, payload := readNext(t, conn)
	if typ != "no_questions" || payload.BuilderPath != builderPath {
		t.Fatalf("expected no_questions with builder path, got %s %+v", typ, payload)
	}
	if payload.SessionID != "" {
		t.Fatalf("no session expected, got %q", payload.SessionID)
	}
}

func TestWebSocketUnknownQuiz(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, "/ws/quiz/missing")
	defer conn.Close()

	var msg struct {
		Type    string       `json:"type"`
		Payload errorPayload `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "error" || msg.Payload.Message != "quiz not found" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrQuizNotFound:      http.StatusNotFound,
		domain.ErrInvalidQuiz:       http.StatusBadRequest,
		domain.ErrUnauthorized:      http.StatusUnauthorized,
		domain.ErrQuestionNotActive: http.StatusConflict,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Fatalf("%v: expected %d, got %d", err, want, got)
		}
	}
}

func dial(t *testing.T, srv *testServer, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) (string, eventPayload) {
	t.Helper()
	var msg struct {
		Type    string       `json:"type"`
		Payload eventPayload `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

// readUntil skips messages whose type is in skip until want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string, skip ...string) (string, eventPayload) {
	t.Helper()
	for i := 0; i < 10; i++ {
		typ, p := readNext(t, conn)
		if typ == want {
			return typ, p
		}
		skipped := false
		for _, s := range skip {
			if typ == s {
				skipped = true
			}
		}
		if !skipped {
			return typ, p
		}
	}
	t.Fatalf("never received %s", want)
	return "", eventPayload{}
}
