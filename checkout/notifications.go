package checkout

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const NotificationTTL = 4 * time.Second

type NotificationKind string

const (
	NotifyError   NotificationKind = "error"
	NotifySuccess NotificationKind = "success"
	NotifyInfo    NotificationKind = "info"
)

// Notification is a dismissible message that expires on its own.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// Notifications is the toast list of one session. Expired entries are
// pruned lazily by Active.
type Notifications struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items []Notification
}

func NewNotifications(ttl time.Duration) *Notifications {
	if ttl <= 0 {
		ttl = NotificationTTL
	}
	return &Notifications{ttl: ttl, now: time.Now}
}

func (n *Notifications) Push(kind NotificationKind, message string) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	item := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(n.ttl),
	}
	n.items = append(n.items, item)
	return item
}

// Active returns the notifications still visible at now, oldest first.
func (n *Notifications) Active(now time.Time) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	kept := n.items[:0]
	for _, item := range n.items {
		if now.Before(item.ExpiresAt) {
			kept = append(kept, item)
		}
	}
	n.items = kept

	out := make([]Notification, len(kept))
	copy(out, kept)
	return out
}

// Dismiss removes a notification; it reports whether one was removed.
func (n *Notifications) Dismiss(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, item := range n.items {
		if item.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}
