package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderAccepted  NotificationType = "order_accepted"
	NotificationTypeStatusUpdate   NotificationType = "status_update"
	NotificationTypeTrackingUpdate NotificationType = "tracking_update"
	NotificationTypeNearDelivery   NotificationType = "near_delivery"
	NotificationTypeWalletActivity NotificationType = "wallet_activity"
	NotificationTypeSystem         NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderAccepted,
	NotificationTypeStatusUpdate,
	NotificationTypeTrackingUpdate,
	NotificationTypeNearDelivery,
	NotificationTypeWalletActivity,
	NotificationTypeSystem,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
