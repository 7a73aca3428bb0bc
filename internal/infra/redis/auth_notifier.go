package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"footy-quiz-service/internal/auth"
	"github.com/redis/go-redis/v9"
)

// AuthNotifier carries auth changes over Redis pub/sub so every instance
// sees sign-outs issued anywhere.
type AuthNotifier struct {
	client  *redis.Client
	channel string
	log     *slog.Logger
}

func NewAuthNotifier(client *redis.Client, channel string, log *slog.Logger) *AuthNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &AuthNotifier{client: client, channel: channel, log: log.With("component", "auth_notifier")}
}

// Subscribe starts relaying changes. The returned func unsubscribes and
// closes the channel.
func (n *AuthNotifier) Subscribe(ctx context.Context) (<-chan auth.Change, func(), error) {
	sub := n.client.Subscribe(ctx, n.channel)
	// Wait for the subscription confirmation so early publishes are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan auth.Change, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change auth.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					n.log.Warn("drop malformed auth change", "err", err)
					continue
				}
				select {
				case out <- change:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return out, stop, nil
}

// Publish announces a change to every subscriber.
func (n *AuthNotifier) Publish(ctx context.Context, change auth.Change) error {
	raw, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, raw).Err()
}
