package domain

import "time"

// Category groups questions by topic (offside, fouls, restarts...).
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// Answer is one candidate answer for a question.
type Answer struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question models an MCQ question; exactly one answer is expected to be correct.
type Question struct {
	ID         string   `json:"id"`
	CategoryID string   `json:"categoryId,omitempty"`
	Text       string   `json:"text"`
	Answers    []Answer `json:"answers"`
}

// CorrectAnswerID returns the first answer flagged correct.
func (q Question) CorrectAnswerID() (string, bool) {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a.ID, true
		}
	}
	return "", false
}

// HasAnswer reports whether answerID is one of the question's candidates.
func (q Question) HasAnswer(answerID string) bool {
	for _, a := range q.Answers {
		if a.ID == answerID {
			return true
		}
	}
	return false
}

// DefaultQuestionCount is used when a quiz does not set its own size.
const DefaultQuestionCount = 24

// Quiz is a playable selection of questions drawn from one or more categories.
type Quiz struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	CategoryIDs   []string  `json:"categoryIds"`
	QuestionCount int       `json:"questionCount"`
	Difficulty    string    `json:"difficulty,omitempty"`
	IsCustom      bool      `json:"isCustom"`
	CreatedAt     time.Time `json:"createdAt"`
}

// QuestionLimit returns the number of questions to draw for the quiz.
func (q Quiz) QuestionLimit() int {
	if q.QuestionCount <= 0 {
		return DefaultQuestionCount
	}
	return q.QuestionCount
}

// QuizSession is one attempt at a quiz. UserID is empty for anonymous play.
type QuizSession struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId,omitempty"`
	QuizID         string     `json:"quizId"`
	TotalQuestions int        `json:"totalQuestions"`
	CorrectCount   int        `json:"correctCount"`
	IncorrectCount int        `json:"incorrectCount"`
	Score          float64    `json:"score"`
	Passed         bool       `json:"passed"`
	DurationMS     int64      `json:"durationMs"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// Completed reports whether the session has been finalized.
func (s QuizSession) Completed() bool {
	return s.CompletedAt != nil
}

// SessionResult holds the fields written onto a session at finalize.
type SessionResult struct {
	CorrectCount   int       `json:"correctCount"`
	IncorrectCount int       `json:"incorrectCount"`
	Score          float64   `json:"score"`
	Passed         bool      `json:"passed"`
	DurationMS     int64     `json:"durationMs"`
	CompletedAt    time.Time `json:"completedAt"`
}

// UserAnswer records the answer given to one question within a session.
type UserAnswer struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"sessionId"`
	QuestionID       string    `json:"questionId"`
	SelectedAnswerID string    `json:"selectedAnswerId,omitempty"`
	IsCorrect        bool      `json:"isCorrect"`
	TimeTakenMS      int64     `json:"timeTakenMs"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Profile is the public part of a user account.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayName prefers the full name and falls back to the username.
func (p Profile) DisplayName() string {
	if p.FirstName != "" && p.LastName != "" {
		return p.FirstName + " " + p.LastName
	}
	if p.Username != "" {
		return p.Username
	}
	return "User"
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl"`
}

// Role is the authorization role assigned to a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// ProfileStats summarises a user's completed full-length quizzes.
type ProfileStats struct {
	TotalQuizzes int `json:"totalQuizzes"`
	AverageScore int `json:"averageScore"`
	PassRate     int `json:"passRate"`
	BestScore    int `json:"bestScore"`
}

// LeaderboardEntry is one ranked user on the global leaderboard.
type LeaderboardEntry struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	TotalQuizzes int    `json:"totalQuizzes"`
	AverageScore int    `json:"averageScore"`
	PassRate     int    `json:"passRate"`
}

// LeaderboardSession is the projection of a session used for ranking.
type LeaderboardSession struct {
	UserID         string
	CorrectCount   int
	TotalQuestions int
	Passed         bool
}

// Review is everything needed to replay a finished session.
type Review struct {
	Session   QuizSession  `json:"session"`
	Answers   []UserAnswer `json:"answers"`
	Questions []Question   `json:"questions"`
}

// HistoryEntry is a completed session as listed in the player's history.
type HistoryEntry struct {
	QuizSession
	ScorePercent int `json:"scorePercent"`
}
