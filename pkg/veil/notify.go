package veil

import (
	"github.com/go-logr/logr"

	"github.com/veilmc/veil/internal/util/console"
	"github.com/veilmc/veil/pkg/edition/bedrock/proxy"
)

// LogNotifier returns a notifier writing notifications to log.
func LogNotifier(log logr.Logger) proxy.Notifier {
	return proxy.NotifierFunc(func(n proxy.Notification) {
		kv := []any{"kind", n.Kind.String()}
		if n.SessionID != "" {
			kv = append(kv, "session", n.SessionID)
		}
		msg := console.Strip(n.Message)
		switch n.Kind {
		case proxy.ErrorNotification:
			log.Error(nil, msg, kv...)
		default:
			log.Info(msg, kv...)
		}
	})
}
