package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/events"
)

// Metrics counts deliveries per channel.
type Metrics interface {
	NotificationSent(channel string, err error)
}

type nopMetrics struct{}

func (nopMetrics) NotificationSent(string, error) {}

// Dispatcher fans a notification out over every configured channel.
type Dispatcher struct {
	store    Store
	events   events.Publisher
	chat     ChatSender
	metrics  Metrics
	logger   zerolog.Logger
	sendWait time.Duration
}

type Option func(*Dispatcher)

// WithChatSender enables Telegram delivery for users with a linked chat.
func WithChatSender(s ChatSender) Option {
	return func(d *Dispatcher) { d.chat = s }
}

func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

func NewDispatcher(store Store, pub events.Publisher, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		events:   pub,
		metrics:  nopMetrics{},
		logger:   logger.With().Str("component", "notifier").Logger(),
		sendWait: 5 * time.Second,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Notify stores the notification and pushes it to the live channels. The
// stored row is the source of truth; push failures are logged and returned
// joined, but the stored notification stays.
func (d *Dispatcher) Notify(ctx context.Context, userID int64, message, kind string) error {
	n := &Notification{UserID: userID, Kind: kind, Message: message}
	if err := d.store.Create(ctx, n); err != nil {
		d.metrics.NotificationSent("store", err)
		return fmt.Errorf("store notification: %w", err)
	}
	d.metrics.NotificationSent("store", nil)

	var errs []error

	if d.events != nil {
		err := d.events.Publish(ctx, events.Event{
			Type:           "notification",
			Topic:          events.UserTopic(userID),
			Kind:           kind,
			NotificationID: n.ID,
			Message:        message,
			Timestamp:      n.CreatedAt,
		})
		d.metrics.NotificationSent("websocket", err)
		if err != nil {
			d.logger.Warn().Err(err).Int64("user_id", userID).Msg("realtime push failed")
			errs = append(errs, err)
		}
	}

	if d.chat != nil {
		if err := d.sendChat(ctx, userID, message); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) sendChat(ctx context.Context, userID int64, message string) error {
	chatID, ok, err := d.store.TelegramChatID(ctx, userID)
	if err != nil {
		d.logger.Warn().Err(err).Int64("user_id", userID).Msg("telegram lookup failed")
		return err
	}
	if !ok {
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendWait)
	defer cancel()
	err = d.chat.SendMessage(sendCtx, chatID, message)
	d.metrics.NotificationSent("telegram", err)
	if err != nil {
		d.logger.Warn().Err(err).Int64("user_id", userID).Msg("telegram delivery failed")
	}
	return err
}

func (d *Dispatcher) List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return d.store.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

func (d *Dispatcher) MarkRead(ctx context.Context, userID, id int64) error {
	return d.store.MarkRead(ctx, userID, id)
}

// LinkTelegram stores the user's chat id; nil unlinks.
func (d *Dispatcher) LinkTelegram(ctx context.Context, userID int64, chatID *int64) error {
	return d.store.SetTelegramChatID(ctx, userID, chatID)
}
