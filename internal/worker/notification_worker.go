package worker

import (
	"github.com/spec-kit/grievance-service/internal/service"
)

// StartNotificationWorker subscribes the notification service to engine
// events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
