package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/events"
)

type mockStore struct {
	mu        sync.Mutex
	items     map[int64]*Notification
	nextID    int64
	chats     map[int64]int64
	createErr error
}

func newMockStore() *mockStore {
	return &mockStore{items: make(map[int64]*Notification), chats: make(map[int64]int64)}
}

func (m *mockStore) Create(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	n.ID = m.nextID
	n.CreatedAt = time.Now().UTC()
	cp := *n
	m.items[n.ID] = &cp
	return nil
}

func (m *mockStore) ListByUser(_ context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockStore) MarkRead(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (m *mockStore) TelegramChatID(_ context.Context, userID int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.chats[userID]
	return id, ok, nil
}

func (m *mockStore) SetTelegramChatID(_ context.Context, userID int64, chatID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if chatID == nil {
		delete(m.chats, userID)
		return nil
	}
	m.chats[userID] = *chatID
	return nil
}

type mockPublisher struct {
	events []events.Event
	err    error
}

func (p *mockPublisher) Publish(_ context.Context, ev events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type chatCall struct {
	chatID int64
	text   string
}

type mockChat struct {
	calls []chatCall
	err   error
}

func (m *mockChat) SendMessage(_ context.Context, chatID int64, text string) error {
	m.calls = append(m.calls, chatCall{chatID, text})
	return m.err
}

type countingMetrics struct {
	ok, failed map[string]int
}

func (c *countingMetrics) NotificationSent(channel string, err error) {
	if err != nil {
		c.failed[channel]++
		return
	}
	c.ok[channel]++
}

func TestDispatcher_NotifyStoresAndPublishes(t *testing.T) {
	store := newMockStore()
	pub := &mockPublisher{}
	d := NewDispatcher(store, pub, zerolog.Nop())

	if err := d.Notify(context.Background(), 10, "New appointment booked for 2026-10-26 09:00", KindAppointment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items, total, _ := store.ListByUser(context.Background(), 10, false, 10, 0)
	if total != 1 || items[0].Kind != KindAppointment {
		t.Fatalf("expected stored notification, got %+v", items)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Topic != "user:10" || ev.NotificationID != items[0].ID || ev.Type != "notification" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestDispatcher_StoreFailureIsReturned(t *testing.T) {
	store := newMockStore()
	store.createErr = errors.New("db down")
	pub := &mockPublisher{}
	d := NewDispatcher(store, pub, zerolog.Nop())

	if err := d.Notify(context.Background(), 1, "x", KindPayment); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.events) != 0 {
		t.Error("nothing should be pushed when the store fails")
	}
}

func TestDispatcher_TelegramOnlyWhenLinked(t *testing.T) {
	store := newMockStore()
	chat := &mockChat{}
	metrics := &countingMetrics{ok: map[string]int{}, failed: map[string]int{}}
	d := NewDispatcher(store, &mockPublisher{}, zerolog.Nop(), WithChatSender(chat), WithMetrics(metrics))

	_ = d.Notify(context.Background(), 1, "unlinked", KindAppointment)
	if len(chat.calls) != 0 {
		t.Fatalf("no chat linked, expected no telegram call")
	}

	chatID := int64(777)
	if err := d.LinkTelegram(context.Background(), 1, &chatID); err != nil {
		t.Fatalf("link: %v", err)
	}
	_ = d.Notify(context.Background(), 1, "linked", KindAppointment)
	if len(chat.calls) != 1 || chat.calls[0].chatID != 777 || chat.calls[0].text != "linked" {
		t.Fatalf("unexpected chat calls %+v", chat.calls)
	}
	if metrics.ok["telegram"] != 1 || metrics.ok["store"] != 2 || metrics.ok["websocket"] != 2 {
		t.Errorf("unexpected metrics %+v", metrics.ok)
	}
}

func TestDispatcher_ChannelFailuresAreJoinedButStored(t *testing.T) {
	store := newMockStore()
	chatID := int64(5)
	_ = store.SetTelegramChatID(context.Background(), 3, &chatID)
	pubErr := errors.New("redis unavailable")
	chatErr := errors.New("chat not found")
	d := NewDispatcher(store, &mockPublisher{err: pubErr}, zerolog.Nop(), WithChatSender(&mockChat{err: chatErr}))

	err := d.Notify(context.Background(), 3, "hello", KindAppointment)
	if !errors.Is(err, pubErr) || !errors.Is(err, chatErr) {
		t.Fatalf("expected both channel errors, got %v", err)
	}
	if _, total, _ := store.ListByUser(context.Background(), 3, false, 10, 0); total != 1 {
		t.Errorf("notification must still be stored, total=%d", total)
	}
}

func TestDispatcher_MarkReadScopedToUser(t *testing.T) {
	store := newMockStore()
	d := NewDispatcher(store, nil, zerolog.Nop())
	_ = d.Notify(context.Background(), 1, "mine", KindAppointment)

	if err := d.MarkRead(context.Background(), 2, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user's notification, got %v", err)
	}
	if err := d.MarkRead(context.Background(), 1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unread, _, _ := d.List(context.Background(), 1, true, 10, 0)
	if len(unread) != 0 {
		t.Errorf("expected no unread notifications, got %d", len(unread))
	}
}
