package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/anonto42/dongne-market/backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "realtime:"

// Handler receives matching events in publish order for its subscription.
type Handler func(Event)

// Subscription is released with Unsubscribe; releasing twice is a no-op.
type Subscription interface {
	Unsubscribe() error
}

// Feed publishes row changes and delivers them to subscribers.
type Feed interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, filter Filter, handler Handler) (Subscription, error)
}

// RedisFeed carries events over Redis pub/sub, one channel per table.
type RedisFeed struct {
	client *redis.Client
}

// NewRedisFeed creates a feed on an existing client
func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

// Publish sends an event to every subscriber of its table
func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	if ev.Table == "" {
		return fmt.Errorf("publish: event has no table")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("publish: encode event: %w", err)
	}
	if err := f.client.Publish(ctx, channelPrefix+ev.Table, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Table, err)
	}
	return nil
}

// Subscribe returns once the subscription is confirmed by the server, so events
// published after it returns are never missed.
func (f *RedisFeed) Subscribe(ctx context.Context, filter Filter, handler Handler) (Subscription, error) {
	if filter.Table == "" {
		return nil, fmt.Errorf("subscribe: filter has no table")
	}
	ps := f.client.Subscribe(ctx, channelPrefix+filter.Table)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", filter, err)
	}

	sub := &redisSubscription{ps: ps, done: make(chan struct{})}
	go sub.dispatch(filter, handler)
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	once sync.Once
	done chan struct{}
}

func (s *redisSubscription) dispatch(filter Filter, handler Handler) {
	defer close(s.done)
	for msg := range s.ps.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			logger.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed realtime event")
			continue
		}
		if filter.Matches(ev) {
			handler(ev)
		}
	}
}

// Unsubscribe closes the channel and waits for the in-flight handler to return.
// It must not be called from inside the handler.
func (s *redisSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		err = s.ps.Close()
		<-s.done
	})
	return err
}
