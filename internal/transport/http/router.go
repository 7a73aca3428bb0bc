package http

import (
	"log/slog"
	"net/http"

	"footy-quiz-service/internal/auth"
)

// NewRouter wires every route behind auth, logging and panic recovery.
func NewRouter(api *API, ws *WSHandler, verifier *auth.Verifier, sessions *auth.Store, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "http")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/categories", api.listCategories)
	mux.HandleFunc("GET /api/categories/{name}/quizzes", api.categoryQuizzes)
	mux.Handle("POST /api/quizzes/custom", auth.RequireAuth(http.HandlerFunc(api.createCustomQuiz)))
	mux.HandleFunc("GET /api/sessions/{id}/review", api.review)
	mux.HandleFunc("GET /api/leaderboard", api.getLeaderboard)
	mux.Handle("GET /api/me/history", auth.RequireAuth(http.HandlerFunc(api.history)))
	mux.Handle("GET /api/me/profile", auth.RequireAuth(http.HandlerFunc(api.profile)))
	mux.Handle("PUT /api/me/profile", auth.RequireAuth(http.HandlerFunc(api.updateProfile)))

	mux.Handle("POST /api/auth/signout", auth.RequireAuth(http.HandlerFunc(api.signOut)))

	mux.HandleFunc("GET /ws/quiz/{id}", ws.ServeWS)

	var h http.Handler = mux
	h = auth.WithAuth(verifier, sessions)(h)
	h = logRequests(log)(h)
	h = recoverPanics(log)(h)
	return h
}
