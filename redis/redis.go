// Package redis provides a forma.Watcher that follows form values stored
// under a Redis key, such as a draft shared between sessions, using
// keyspace notifications.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zoobzio/forma"
)

// empty is emitted for a missing key. It decodes to no values with both
// forma codecs, so the form keeps its reset target.
var empty = []byte("{}")

// Watcher watches a Redis key for changes using keyspace notifications.
// Requires Redis to have keyspace notifications enabled:
//
//	CONFIG SET notify-keyspace-events KEA
type Watcher struct {
	client   *redis.Client
	key      string
	database int
}

var _ forma.Watcher = (*Watcher)(nil)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDatabase sets the logical database whose keyspace channel is
// subscribed. It must match the database the client is connected to.
func WithDatabase(n int) Option {
	return func(w *Watcher) {
		w.database = n
	}
}

// New creates a Watcher for the given Redis key.
func New(client *redis.Client, key string, opts ...Option) *Watcher {
	w := &Watcher{
		client: client,
		key:    key,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Channel returns the keyspace notification channel for the watched key.
func (w *Watcher) Channel() string {
	return fmt.Sprintf("__keyspace@%d__:%s", w.database, w.key)
}

// Watch emits the key's value now and after every write to it. A missing
// key is emitted as an empty object.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	pubsub := w.client.Subscribe(ctx, w.Channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to keyspace notifications: %w", err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer pubsub.Close()

		val, err := w.get(ctx)
		if err != nil {
			return
		}
		select {
		case out <- val:
		case <-ctx.Done():
			return
		}

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if !IsWrite(msg.Payload) {
					continue
				}
				val, err := w.get(ctx)
				if err != nil {
					continue
				}
				select {
				case out <- val:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (w *Watcher) get(ctx context.Context) ([]byte, error) {
	val, err := w.client.Get(ctx, w.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return empty, nil
	}
	return val, err
}

// IsWrite reports whether a keyspace event replaces the key's string value.
func IsWrite(event string) bool {
	switch event {
	case "set", "setex", "psetex", "setnx", "mset", "setrange", "append":
		return true
	default:
		return false
	}
}
