package worker

import (
	"github.com/qss-platform/resident-service/internal/events"
	"github.com/qss-platform/resident-service/internal/service"
)

// StartNotificationWorker wires the notification fan-out to the lifecycle
// event stream.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService) {
	if dispatcher == nil || notifications == nil {
		return
	}
	notifications.RegisterHandlers(dispatcher)
}
