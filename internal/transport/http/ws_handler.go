package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"footy-quiz-service/internal/auth"
	"footy-quiz-service/internal/domain"
	"footy-quiz-service/internal/engine"
	"github.com/gorilla/websocket"
)

// QuizStarter begins an attempt for one player.
type QuizStarter interface {
	Start(ctx context.Context, req engine.StartRequest) (*engine.Attempt, error)
}

// WSHandler runs one quiz attempt per WebSocket connection.
type WSHandler struct {
	quizzes  QuizStarter
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(quizzes QuizStarter, log *slog.Logger) *WSHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WSHandler{
		quizzes: quizzes,
		log:     log.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
}

type nextPayload struct {
	QuestionID string `json:"questionId"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// eventPayload is an attempt view plus where the client should go next.
type eventPayload struct {
	engine.View
	ReviewPath  string `json:"reviewPath,omitempty"`
	BuilderPath string `json:"builderPath,omitempty"`
	Error       string `json:"error,omitempty"`
}

const builderPath = "/quizzes/custom"

// ServeWS upgrades the request and plays the quiz named in the path.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.PathValue("id")
	if quizID == "" {
		http.Error(w, "missing quiz id", http.StatusBadRequest)
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	// The attempt outlives the upgrade request's context until the socket closes.
	attempt, err := h.quizzes.Start(context.WithoutCancel(r.Context()), engine.StartRequest{QuizID: quizID, UserID: userID})
	if err != nil {
		h.log.Warn("start quiz failed", "quiz_id", quizID, "err", err)
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: startErrorMessage(err)}})
		return
	}
	defer attempt.Close()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// Single writer; gorilla connections allow one concurrent writer.
	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "err", err)
				return
			}
		}
	}()

	push := func(msg outboundMessage) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		case <-closeSignals:
			return false
		}
	}

	go func() {
		defer close(eventsDone)
		for ev := range attempt.Events() {
			if !push(toMessage(ev)) {
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var p selectPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				push(errorMessage("invalid select payload"))
				continue
			}
			view, err := attempt.Select(ctx, p.QuestionID, p.AnswerID)
			push(commandReply(view, err))
		case "next":
			var p nextPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &p); err != nil {
					push(errorMessage("invalid next payload"))
					continue
				}
			}
			view, err := attempt.Advance(ctx, p.QuestionID)
			push(commandReply(view, err))
		case "snapshot":
			view, err := attempt.Snapshot(ctx)
			push(commandReply(view, err))
		default:
			push(errorMessage("unsupported message type"))
		}
	}

	close(closeSignals)
	attempt.Close()
	<-eventsDone
	close(send)
	<-writerDone
}

func toMessage(ev engine.Event) outboundMessage {
	p := eventPayload{View: ev.View}
	switch ev.Type {
	case engine.EventFinished:
		p.ReviewPath = "/review/" + ev.View.SessionID
	case engine.EventNoQuestions:
		p.BuilderPath = builderPath
	case engine.EventFinalizeFailed:
		p.Error = "your results could not be saved"
	}
	return outboundMessage{Type: string(ev.Type), Payload: p}
}

func commandReply(view engine.View, err error) outboundMessage {
	if err != nil {
		return errorMessage(err.Error())
	}
	return outboundMessage{Type: "state", Payload: eventPayload{View: view}}
}

func errorMessage(msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}
}

func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		return "quiz not found"
	case errors.Is(err, domain.ErrSessionNotCreated):
		return "could not start the quiz, please try again"
	default:
		return "failed to load questions"
	}
}
