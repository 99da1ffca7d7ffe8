// Package notifications provides real-time delivery of moderation events.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel for moderation events published through Redis pub/sub.
const modEventsChannel = "modevents"

// Event types carried on the moderation feed.
const (
	EventPunishment   = "punishment"
	EventVoteOpened   = "vote_opened"
	EventVoteResolved = "vote_resolved"
	EventWelcome      = "welcome"
)

// Event is a moderation event fanned out to connected feed clients.
type Event struct {
	Type     string    `json:"type"`
	TargetID string    `json:"target_id,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	Action   string    `json:"action,omitempty"`
	Outcome  string    `json:"outcome,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Time     time.Time `json:"time"`
}

// Notifier publishes moderation events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier returns a Notifier over the given Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends a moderation event to the feed channel. Best-effort: callers
// never fail an operation because the feed is down.
func (n *Notifier) Publish(ctx context.Context, event Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, modEventsChannel, string(payload)).Err()
}

// StartSubscriber subscribes to the moderation feed channel and calls
// onMessage for each incoming payload until ctx is cancelled.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, modEventsChannel)
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				onMessage(msg.Payload)
			}
		}
	}()

	return nil
}
