package model

import "time"

// Notification types.
const (
	NotificationActivity = "activity_update"
	NotificationRescue   = "rescue_update"
)

// Notification is an in-app message addressed to one user.
type Notification struct {
	CreatedAt time.Time
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      string
	Read      bool
}
