package worker

import (
	"github.com/spec-kit/clinic-service/internal/service"
)

// StartNotificationWorker registers notification handlers on the dispatcher.
// Delivery is synchronous with the publishing request.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
