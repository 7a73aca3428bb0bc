package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"footy-quiz-service/internal/domain"
	"github.com/cenkalti/backoff/v4"
)

// State is the lifecycle position of an attempt.
type State string

const (
	StateLoading        State = "loading"
	StateNoQuestions    State = "no_questions"
	StateQuestionActive State = "question_active"
	StateFinalizing     State = "finalizing"
	StateDone           State = "done"
)

// EventType names what changed in an attempt.
type EventType string

const (
	EventQuestion       EventType = "question"
	EventTick           EventType = "tick"
	EventNoQuestions    EventType = "no_questions"
	EventFinalizing     EventType = "finalizing"
	EventFinished       EventType = "finished"
	EventFinalizeFailed EventType = "finalize_failed"
)

// AnswerView is an answer as shown to the player, without the correct flag.
type AnswerView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is the active question as shown to the player.
type QuestionView struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Answers []AnswerView `json:"answers"`
}

// View is a full snapshot of an attempt. Every event carries one, so a
// consumer that missed events can render from the latest alone.
type View struct {
	State            State                 `json:"state"`
	QuizID           string                `json:"quizId"`
	SessionID        string                `json:"sessionId,omitempty"`
	Index            int                   `json:"index"`
	Total            int                   `json:"total"`
	Question         *QuestionView         `json:"question,omitempty"`
	SelectedAnswerID string                `json:"selectedAnswerId,omitempty"`
	SecondsLeft      int                   `json:"secondsLeft"`
	Result           *domain.SessionResult `json:"result,omitempty"`
}

// Event is published on Attempt.Events.
type Event struct {
	Type EventType
	View View
	Err  error
}

type commandKind int

const (
	cmdSnapshot commandKind = iota
	cmdSelect
	cmdAdvance
)

type command struct {
	kind       commandKind
	questionID string
	answerID   string
	reply      chan reply
}

type reply struct {
	view View
	err  error
}

// Attempt is one player's run through a quiz. All state below the channels
// is owned by the run goroutine.
type Attempt struct {
	engine    *Engine
	log       *slog.Logger
	writeCtx  context.Context
	quizID    string
	session   domain.QuizSession
	questions []domain.Question

	cmds       chan command
	events     chan Event
	writes     chan domain.UserAnswer
	quit       chan struct{}
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once

	mu   sync.Mutex
	last View

	state      State
	index      int
	selected   string
	selections map[string]string
	remaining  int
	startedAt  time.Time
	result     *domain.SessionResult
}

func newAttempt(writeCtx context.Context, e *Engine, quizID string, session domain.QuizSession, questions []domain.Question) *Attempt {
	return &Attempt{
		engine:     e,
		log:        e.log.With("session_id", session.ID),
		writeCtx:   writeCtx,
		quizID:     quizID,
		session:    session,
		questions:  questions,
		cmds:       make(chan command),
		events:     make(chan Event, 16),
		writes:     make(chan domain.UserAnswer, len(questions)),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		state:      StateLoading,
		selections: make(map[string]string, len(questions)),
	}
}

func newEmptyAttempt(quizID string) *Attempt {
	a := &Attempt{
		quizID:     quizID,
		events:     make(chan Event, 1),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		state:      StateNoQuestions,
	}
	a.emit(EventNoQuestions, nil)
	close(a.events)
	close(a.done)
	close(a.writerDone)
	return a
}

func (a *Attempt) start() {
	a.state = StateQuestionActive
	a.index = 0
	a.selected = ""
	a.remaining = QuestionTimeLimit
	a.startedAt = a.engine.now()
	go a.writeAnswers()
	go a.run()
}

// SessionID is empty when no questions were available.
func (a *Attempt) SessionID() string { return a.session.ID }

// Events streams attempt changes. Stale events are dropped when the consumer
// falls behind. The channel closes after the terminal event.
func (a *Attempt) Events() <-chan Event { return a.events }

// Done is closed once the attempt reaches a terminal state or is closed.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Select records the player's current choice for the active question.
func (a *Attempt) Select(ctx context.Context, questionID, answerID string) (View, error) {
	return a.send(ctx, command{kind: cmdSelect, questionID: questionID, answerID: answerID})
}

// Advance moves past the active question. questionID guards against a
// "next" that races the timer; pass "" to advance whatever is active.
func (a *Attempt) Advance(ctx context.Context, questionID string) (View, error) {
	return a.send(ctx, command{kind: cmdAdvance, questionID: questionID})
}

// Snapshot returns the current view; after the attempt ends it returns the final view.
func (a *Attempt) Snapshot(ctx context.Context) (View, error) {
	v, err := a.send(ctx, command{kind: cmdSnapshot})
	if errors.Is(err, domain.ErrAttemptClosed) {
		return v, nil
	}
	return v, err
}

// Close abandons the attempt if still running, releases its ticker and
// waits for queued answer writes to drain. Safe to call more than once.
func (a *Attempt) Close() {
	a.closeOnce.Do(func() { close(a.quit) })
	<-a.done
	<-a.writerDone
}

func (a *Attempt) send(ctx context.Context, cmd command) (View, error) {
	cmd.reply = make(chan reply, 1)
	select {
	case a.cmds <- cmd:
	case <-a.done:
		return a.lastView(), domain.ErrAttemptClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	r := <-cmd.reply
	return r.view, r.err
}

func (a *Attempt) run() {
	defer close(a.done)
	defer close(a.events)
	defer close(a.writes)

	ticker := a.engine.newTicker(time.Second)
	tickerFor := a.index
	defer func() { ticker.Stop() }()

	// The ticker belongs to exactly one question; replace it on every
	// transition and drop it once the attempt leaves QuestionActive.
	syncTicker := func() {
		if a.state != StateQuestionActive {
			ticker.Stop()
			return
		}
		if a.index != tickerFor {
			ticker.Stop()
			ticker = a.engine.newTicker(time.Second)
			tickerFor = a.index
		}
	}

	a.emit(EventQuestion, nil)

	for a.state == StateQuestionActive {
		select {
		case <-a.quit:
			a.log.Info("quiz abandoned", "index", a.index)
			return
		case cmd := <-a.cmds:
			view, err := a.handle(cmd)
			syncTicker()
			cmd.reply <- reply{view: view, err: err}
		case <-ticker.C():
			a.tick()
			syncTicker()
		}
	}

	if a.state == StateFinalizing {
		a.awaitFinalize()
	}
}

// awaitFinalize persists the result while still answering commands, so a
// slow or failing backend never holds up the player or Close.
func (a *Attempt) awaitFinalize() {
	ctx, cancel := context.WithCancel(a.writeCtx)
	defer cancel()

	persisted := make(chan error, 1)
	go func() { persisted <- a.persistResult(ctx, *a.result) }()

	for {
		select {
		case <-a.quit:
			cancel()
			err := <-persisted
			a.log.Info("quiz abandoned while finalizing", "err", err)
			return
		case cmd := <-a.cmds:
			view, err := a.handle(cmd)
			cmd.reply <- reply{view: view, err: err}
		case err := <-persisted:
			a.state = StateDone
			if err != nil {
				a.log.Error("finalize failed", "err", err)
				a.emit(EventFinalizeFailed, err)
				return
			}
			res := a.result
			a.log.Info("quiz finished", "correct", res.CorrectCount, "total", len(a.questions), "passed", res.Passed)
			a.emit(EventFinished, nil)
			return
		}
	}
}

func (a *Attempt) handle(cmd command) (View, error) {
	if cmd.kind != cmdSnapshot && a.state != StateQuestionActive {
		return a.view(), domain.ErrQuestionNotActive
	}
	switch cmd.kind {
	case cmdSelect:
		q := a.questions[a.index]
		if cmd.questionID != "" && cmd.questionID != q.ID {
			return a.view(), domain.ErrQuestionNotActive
		}
		if !q.HasAnswer(cmd.answerID) {
			return a.view(), domain.ErrAnswerNotFound
		}
		a.selected = cmd.answerID
	case cmdAdvance:
		if cmd.questionID != "" && cmd.questionID != a.questions[a.index].ID {
			return a.view(), domain.ErrQuestionNotActive
		}
		a.advance()
	}
	return a.view(), nil
}

func (a *Attempt) tick() {
	if a.remaining > 0 {
		a.remaining--
	}
	if a.remaining == 0 {
		a.log.Debug("question timed out", "index", a.index, "answered", a.selected != "")
		a.advance()
		return
	}
	a.emit(EventTick, nil)
}

func (a *Attempt) advance() {
	q := a.questions[a.index]
	if a.selected != "" {
		a.selections[q.ID] = a.selected
		a.queueAnswer(domain.UserAnswer{
			SessionID:        a.session.ID,
			QuestionID:       q.ID,
			SelectedAnswerID: a.selected,
			IsCorrect:        domain.IsCorrect(q, a.selected),
			TimeTakenMS:      int64(QuestionTimeLimit-a.remaining) * 1000,
			CreatedAt:        a.engine.now(),
		})
	}

	if a.index < len(a.questions)-1 {
		a.index++
		a.selected = ""
		a.remaining = QuestionTimeLimit
		a.emit(EventQuestion, nil)
		return
	}
	a.selected = ""
	a.finalize()
}

func (a *Attempt) queueAnswer(answer domain.UserAnswer) {
	// writes holds one slot per question, so this never blocks the countdown.
	select {
	case a.writes <- answer:
	default:
		a.log.Error("answer queue full, dropping answer", "question_id", answer.QuestionID)
	}
}

func (a *Attempt) writeAnswers() {
	defer close(a.writerDone)
	for answer := range a.writes {
		ctx, cancel := context.WithTimeout(a.writeCtx, a.engine.writeTimeout)
		err := a.engine.sessions.RecordAnswer(ctx, answer)
		cancel()
		if err != nil {
			a.log.Warn("record answer failed", "question_id", answer.QuestionID, "err", err)
		}
	}
}

func (a *Attempt) finalize() {
	a.state = StateFinalizing

	res := domain.Score(a.questions, a.selections)
	now := a.engine.now()
	res.DurationMS = now.Sub(a.startedAt).Milliseconds()
	res.CompletedAt = now
	a.result = &res
	a.emit(EventFinalizing, nil)
}

func (a *Attempt) persistResult(ctx context.Context, res domain.SessionResult) error {
	op := func() error {
		writeCtx, cancel := context.WithTimeout(ctx, a.engine.writeTimeout)
		defer cancel()
		err := a.engine.sessions.FinalizeSession(writeCtx, a.session.ID, res)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(op, backoff.WithContext(a.engine.backoff(), ctx), func(err error, wait time.Duration) {
		a.log.Warn("finalize failed, retrying", "err", err, "wait", wait)
	})
}

func (a *Attempt) emit(typ EventType, err error) {
	ev := Event{Type: typ, View: a.view(), Err: err}

	a.mu.Lock()
	a.last = ev.View
	a.mu.Unlock()

	select {
	case a.events <- ev:
	default:
		// Drop the oldest event; the newest view supersedes it.
		select {
		case <-a.events:
		default:
		}
		a.events <- ev
	}
}

func (a *Attempt) lastView() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *Attempt) view() View {
	v := View{
		State:            a.state,
		QuizID:           a.quizID,
		SessionID:        a.session.ID,
		Index:            a.index,
		Total:            len(a.questions),
		SelectedAnswerID: a.selected,
		SecondsLeft:      a.remaining,
		Result:           a.result,
	}
	if a.state == StateQuestionActive {
		q := a.questions[a.index]
		qv := QuestionView{ID: q.ID, Text: q.Text, Answers: make([]AnswerView, 0, len(q.Answers))}
		for _, ans := range q.Answers {
			qv.Answers = append(qv.Answers, AnswerView{ID: ans.ID, Text: ans.Text})
		}
		v.Question = &qv
	}
	return v
}
