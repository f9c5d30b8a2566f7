package domain

import "context"

// Notification is a local, user-visible notification.
type Notification struct {
	Title string
	Body  string
}

// NotificationSink schedules local notifications. Delivery is best-effort and
// nothing in the client waits on it.
type NotificationSink interface {
	Notify(ctx context.Context, n Notification) error
}
