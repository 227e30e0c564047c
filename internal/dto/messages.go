package dto

// Notification kinds carried over the queue to the mail worker.
const (
	KindRegistrationConfirmed = "registration_confirmed"
	KindRegistrationCancelled = "registration_cancelled"
	KindEventReminder         = "event_reminder"
)

type NotificationMessage struct {
	Kind      string `json:"kind"`
	AccountID int64  `json:"account_id"`
	EventID   int64  `json:"event_id"`
}
