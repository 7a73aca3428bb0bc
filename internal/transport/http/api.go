package http

import (
	"encoding/json"
	"net/http"
	"time"

	"footy-quiz-service/internal/app"
	"footy-quiz-service/internal/auth"
	"footy-quiz-service/internal/domain"
)

// API serves the JSON endpoints behind the browsing, review and profile views.
type API struct {
	catalog     *app.CatalogService
	reviews     *app.ReviewService
	leaderboard *app.LeaderboardService
	signOuts    auth.Publisher
}

// NewAPI builds the handlers; signOuts may be nil to disable sign-out.
func NewAPI(catalog *app.CatalogService, reviews *app.ReviewService, leaderboard *app.LeaderboardService, signOuts auth.Publisher) *API {
	return &API{catalog: catalog, reviews: reviews, leaderboard: leaderboard, signOuts: signOuts}
}

func (a *API) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := a.catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (a *API) categoryQuizzes(w http.ResponseWriter, r *http.Request) {
	listing, err := a.catalog.CategoryQuizzes(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

type createQuizResponse struct {
	QuizID   string `json:"quizId"`
	PlayPath string `json:"playPath"`
}

func (a *API) createCustomQuiz(w http.ResponseWriter, r *http.Request) {
	var req app.CustomQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
		return
	}
	quiz, err := a.catalog.CreateCustomQuiz(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createQuizResponse{QuizID: quiz.ID, PlayPath: "/quiz/" + quiz.ID})
}

func (a *API) review(w http.ResponseWriter, r *http.Request) {
	review, err := a.reviews.Review(r.Context(), r.PathValue("id"), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (a *API) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := a.leaderboard.Leaderboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	entries, err := a.reviews.History(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) profile(w http.ResponseWriter, r *http.Request) {
	view, err := a.reviews.Profile(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	var update domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
		return
	}
	profile, err := a.reviews.UpdateProfile(r.Context(), auth.UserIDFromContext(r.Context()), update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// signOut revokes the caller's auth session on every instance.
func (a *API) signOut(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if a.signOuts == nil {
		writeJSON(w, http.StatusNotImplemented, errorPayload{Message: "sign-out not configured"})
		return
	}
	err := a.signOuts.Publish(r.Context(), auth.Change{
		Type:      auth.SignedOut,
		SessionID: claims.SessionID,
		UserID:    claims.UserID(),
		At:        time.Now(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
