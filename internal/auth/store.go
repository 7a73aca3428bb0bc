package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ChangeType mirrors the auth provider's state-change event names.
type ChangeType string

const (
	SignedIn       ChangeType = "SIGNED_IN"
	SignedOut      ChangeType = "SIGNED_OUT"
	TokenRefreshed ChangeType = "TOKEN_REFRESHED"
	UserUpdated    ChangeType = "USER_UPDATED"
)

// Change is one auth-change notification.
type Change struct {
	Type      ChangeType `json:"event"`
	SessionID string     `json:"session_id"`
	UserID    string     `json:"user_id"`
	At        time.Time  `json:"at"`
}

// Publisher announces auth changes to every Store listening on the same Notifier.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Notifier delivers auth-change notifications until the returned cancel
// function is called.
type Notifier interface {
	Subscribe(ctx context.Context) (<-chan Change, func(), error)
}

// Store is the process-wide view of auth sessions, kept current from a
// Notifier between Start and Close. Route guards consult it through Allows.
type Store struct {
	notifier  Notifier
	log       *slog.Logger
	retention time.Duration

	mu        sync.RWMutex
	users     map[string]string
	signedOut map[string]time.Time
	watchers  map[chan Change]struct{}
	closed    bool

	stop func()
	done chan struct{}
}

func NewStore(notifier Notifier, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		notifier:  notifier,
		log:       log.With("component", "auth"),
		retention: 24 * time.Hour,
		users:     make(map[string]string),
		signedOut: make(map[string]time.Time),
		watchers:  make(map[chan Change]struct{}),
	}
}

// Start subscribes to the notifier. Changes are applied until Close.
func (s *Store) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	changes, unsubscribe, err := s.notifier.Subscribe(ctx)
	if err != nil {
		cancel()
		return err
	}
	s.stop = func() {
		cancel()
		unsubscribe()
	}
	s.done = make(chan struct{})
	go s.loop(ctx, changes)
	return nil
}

// Close unsubscribes and waits for the apply loop to exit.
func (s *Store) Close() {
	if s.stop != nil {
		s.stop()
		<-s.done
	}

	s.mu.Lock()
	s.closed = true
	for ch := range s.watchers {
		delete(s.watchers, ch)
		close(ch)
	}
	s.mu.Unlock()
}

func (s *Store) loop(ctx context.Context, changes <-chan Change) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			s.apply(c)
		}
	}
}

func (s *Store) apply(c Change) {
	if c.At.IsZero() {
		c.At = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch c.Type {
	case SignedIn, TokenRefreshed, UserUpdated:
		s.users[c.SessionID] = c.UserID
	case SignedOut:
		delete(s.users, c.SessionID)
		s.signedOut[c.SessionID] = c.At
	default:
		s.log.Warn("unknown auth change", "event", c.Type)
		return
	}
	s.log.Debug("auth change", "event", c.Type, "session_id", c.SessionID)

	for id, at := range s.signedOut {
		if c.At.Sub(at) > s.retention {
			delete(s.signedOut, id)
		}
	}
	for ch := range s.watchers {
		select {
		case ch <- c:
		default:
		}
	}
}

// Allows reports whether the token's session is still live: tokens issued
// before the session signed out are rejected.
func (s *Store) Allows(c *Claims) bool {
	if c == nil {
		return false
	}
	s.mu.RLock()
	at, out := s.signedOut[c.SessionID]
	s.mu.RUnlock()
	if !out {
		return true
	}
	if c.IssuedAt == nil {
		return false
	}
	return c.IssuedAt.Time.After(at)
}

// CurrentUser returns the last user seen signed in on sessionID.
func (s *Store) CurrentUser(sessionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.users[sessionID]
	return id, ok
}

// Watch streams applied changes. Slow watchers miss changes. The channel
// closes on Close, and is already closed when the store has been closed.
func (s *Store) Watch() (<-chan Change, func()) {
	ch := make(chan Change, 8)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Broadcaster is an in-process Notifier.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Change]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Change]struct{})}
}

func (b *Broadcaster) Subscribe(_ context.Context) (<-chan Change, func(), error) {
	ch := make(chan Change, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel, nil
}

// Publish fans c out to every subscriber; full subscribers miss it.
func (b *Broadcaster) Publish(_ context.Context, c Change) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- c:
		default:
		}
	}
	return nil
}
