package notify

import (
	"context"

	"github.com/jalvirtual/acars-dispatch/pkg/logger"
)

// Notifier is told about the outcome of user-visible operations such as a
// send. It must not block for long and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, success bool, message string)
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, success bool, message string) {
	if success {
		logger.Infof("[notify] %s", message)
		return
	}
	logger.Warnf("[notify] %s", message)
}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, success bool, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, success, message)
		}
	}
}
