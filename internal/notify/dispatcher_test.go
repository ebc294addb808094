package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avolkov/banksync/internal/domain"
)

type mockSender struct {
	SendFunc func(ctx context.Context, event Event) error
	sent     []Event
}

func (m *mockSender) Send(ctx context.Context, event Event) error {
	m.sent = append(m.sent, event)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, event)
	}
	return nil
}

type mockActivityStore struct {
	activities []*domain.UserActivity
	err        error
}

func (m *mockActivityStore) InsertActivity(ctx context.Context, activity *domain.UserActivity) error {
	if m.err != nil {
		return m.err
	}
	m.activities = append(m.activities, activity)
	return nil
}

func testConnection() *domain.BankConnection {
	return &domain.BankConnection{
		ID:              "conn-1",
		UserID:          "user-1",
		UserEmail:       "user@example.com",
		InstitutionName: "Monzo",
	}
}

func TestNotifyDisconnected(t *testing.T) {
	sender := &mockSender{}
	store := &mockActivityStore{}
	d := NewDispatcher(sender, store)

	if err := d.NotifyDisconnected(context.Background(), testConnection()); err != nil {
		t.Fatalf("NotifyDisconnected failed: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sender.sent))
	}
	event := sender.sent[0]
	if event.Name != EventDisconnected {
		t.Errorf("event name = %q, want %q", event.Name, EventDisconnected)
	}
	if event.Payload["email"] != "user@example.com" {
		t.Errorf("payload email = %v", event.Payload["email"])
	}
	if event.Payload["institution_name"] != "Monzo" {
		t.Errorf("payload institution_name = %v", event.Payload["institution_name"])
	}

	if len(store.activities) != 1 {
		t.Fatalf("expected 1 activity row, got %d", len(store.activities))
	}
	if store.activities[0].Type != domain.ActivityConnectionDisconnected {
		t.Errorf("activity type = %q", store.activities[0].Type)
	}
}

func TestNotifyExpiringPayload(t *testing.T) {
	sender := &mockSender{}
	d := NewDispatcher(sender, &mockActivityStore{})

	if err := d.NotifyExpiring(context.Background(), testConnection(), 9); err != nil {
		t.Fatalf("NotifyExpiring failed: %v", err)
	}

	if got := sender.sent[0].Payload["days_until_expiry"]; got != 9 {
		t.Errorf("days_until_expiry = %v, want 9", got)
	}
}

func TestSendReconnectAlertBodies(t *testing.T) {
	sender := &mockSender{}
	d := NewDispatcher(sender, &mockActivityStore{})

	err := d.SendReconnectAlert(context.Background(), testConnection(), []string{"Current Account", "Joint Account"})
	if err != nil {
		t.Fatalf("SendReconnectAlert failed: %v", err)
	}

	event := sender.sent[0]
	html, _ := event.Payload["html"].(string)
	text, _ := event.Payload["text"].(string)

	for _, body := range []string{html, text} {
		if !strings.Contains(body, "Monzo") {
			t.Errorf("body missing institution name: %s", body)
		}
		if !strings.Contains(body, "Current Account") || !strings.Contains(body, "Joint Account") {
			t.Errorf("body missing account names: %s", body)
		}
	}
	if !strings.Contains(html, "<ul>") {
		t.Error("html body should contain markup")
	}
	if strings.Contains(text, "<") {
		t.Errorf("text body should be plain text, got: %s", text)
	}
}

func TestDispatchSenderFailure(t *testing.T) {
	sender := &mockSender{
		SendFunc: func(ctx context.Context, event Event) error {
			return errors.New("service unavailable")
		},
	}
	store := &mockActivityStore{}
	d := NewDispatcher(sender, store)

	if err := d.NotifyDisconnected(context.Background(), testConnection()); err == nil {
		t.Fatal("expected error when sender fails")
	}
	if len(store.activities) != 0 {
		t.Error("no activity row should be written when delivery fails")
	}
}
