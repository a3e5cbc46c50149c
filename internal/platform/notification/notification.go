// Package notification delivers in-app notifications: each one is stored,
// pushed to the user's open websocket sessions and, when the user has linked
// a Telegram chat, sent there as well.
package notification

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("notification not found")

// Notification kinds raised by the scheduling workflows.
const (
	KindAppointment = "appointment"
	KindPayment     = "payment"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists notifications and per-user delivery contacts.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	MarkRead(ctx context.Context, userID, id int64) error
	TelegramChatID(ctx context.Context, userID int64) (int64, bool, error)
	SetTelegramChatID(ctx context.Context, userID int64, chatID *int64) error
}
