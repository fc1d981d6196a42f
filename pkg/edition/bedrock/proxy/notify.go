package proxy

import "fmt"

// NotificationKind classifies a user-visible Notification.
type NotificationKind uint8

// Available notification kinds.
const (
	InfoNotification NotificationKind = iota
	WarningNotification
	ErrorNotification
)

// String implements fmt.Stringer.
func (k NotificationKind) String() string {
	switch k {
	case InfoNotification:
		return "info"
	case WarningNotification:
		return "warning"
	case ErrorNotification:
		return "error"
	}
	return fmt.Sprintf("NotificationKind(%d)", uint8(k))
}

// Notification is a message the relay or a module wants the user to see.
type Notification struct {
	Kind      NotificationKind
	SessionID string // Empty for relay wide notifications.
	Message   string
}

// Notifier is the sink for user-visible notifications, implemented by the host.
// Notify is called from packet goroutines and must not block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc is a func implementing Notifier.
type NotifierFunc func(Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) { f(n) }

var nopNotifier = NotifierFunc(func(Notification) {})
