package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/gas-service-portal/internal/service"
)

// NotificationWorker owns the notification subscriptions for the life of the process.
type NotificationWorker struct {
	notifications *service.NotificationService
	logger        *zap.Logger
}

// StartNotificationWorker registers notification handlers on the dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &NotificationWorker{notifications: notificationService, logger: logger}
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	return w
}

// Stop waits for pending webhook deliveries until ctx expires.
func (w *NotificationWorker) Stop(ctx context.Context) {
	if w == nil || w.notifications == nil {
		return
	}
	if err := w.notifications.Drain(ctx); err != nil {
		w.logger.Warn("notification deliveries still pending at shutdown", zap.Error(err))
	}
}
