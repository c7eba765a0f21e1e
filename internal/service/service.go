package service

import (
	"context"

	"vcar-client/internal/api"
	"vcar-client/internal/domain"
)

// NotificationService reads account notifications. Pages are 0-based, page 0
// holding the newest.
type NotificationService interface {
	List(ctx context.Context, page, size int) (*api.Page[domain.Notification], error)
	MarkAsRead(ctx context.Context, id string) error
	Unread(ctx context.Context) ([]domain.Notification, error)
}

// NotificationAPI is the part of the rental API serving notifications.
type NotificationAPI interface {
	ListNotifications(ctx context.Context, page, size int) (*api.Page[domain.Notification], error)
	MarkNotificationRead(ctx context.Context, id string) error
}
