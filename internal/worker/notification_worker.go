package worker

import (
	"github.com/tableflow/order-service/internal/service"
)

// StartNotificationWorker registers notification handlers. The returned func
// waits for in-flight deliveries and is meant for shutdown.
func StartNotificationWorker(notificationService *service.NotificationService) func() {
	if notificationService == nil {
		return func() {}
	}
	notificationService.RegisterHandlers()
	return notificationService.Wait
}
