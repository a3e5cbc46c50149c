// Package events fans realtime notifications out to the websocket clients of
// every server instance.
package events

import (
	"context"
	"fmt"
	"time"
)

// Event is delivered to the websocket clients subscribed to Topic.
type Event struct {
	Type           string    `json:"type"`
	Topic          string    `json:"topic"`
	Kind           string    `json:"kind,omitempty"`
	NotificationID int64     `json:"notification_id,omitempty"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

// UserTopic is the topic every connection of userID is subscribed to.
func UserTopic(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// Sink receives events for local delivery; the websocket hub implements it.
type Sink interface {
	Deliver(ev Event)
}

// Publisher is what the notification dispatcher publishes through.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LocalBus delivers straight to the in-process sink. Used when no Redis is
// configured, which is only correct for a single instance.
type LocalBus struct {
	sink Sink
}

func NewLocalBus(sink Sink) *LocalBus {
	return &LocalBus{sink: sink}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.sink.Deliver(ev)
	return nil
}
