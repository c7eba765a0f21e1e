package service

import (
	"context"
	"fmt"

	"vcar-client/internal/api"
	"vcar-client/internal/domain"
	"vcar-client/internal/logger"
)

const maxUnreadPages = 10

type notificationService struct {
	api      NotificationAPI
	pageSize int
}

func NewNotificationService(notificationAPI NotificationAPI, pageSize int) NotificationService {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &notificationService{api: notificationAPI, pageSize: pageSize}
}

func (s *notificationService) List(ctx context.Context, page, size int) (*api.Page[domain.Notification], error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = s.pageSize
	}
	return s.api.ListNotifications(ctx, page, size)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: notification id is required", domain.ErrInvalidForm)
	}
	return s.api.MarkNotificationRead(ctx, id)
}

// Unread walks the newest pages and returns the unread notifications, newest
// first. Pages are 0-based.
func (s *notificationService) Unread(ctx context.Context) ([]domain.Notification, error) {
	logger.EnterMethod("notificationService.Unread")

	var unread []domain.Notification
	for page := 0; page < maxUnreadPages; page++ {
		p, err := s.api.ListNotifications(ctx, page, s.pageSize)
		if err != nil {
			logger.ExitMethodWithError("notificationService.Unread", err, "page", page)
			return nil, err
		}
		for _, n := range p.Items {
			if !n.IsRead {
				unread = append(unread, n)
			}
		}
		if len(p.Items) < s.pageSize || (p.Meta.PageCount > 0 && page+1 >= p.Meta.PageCount) {
			break
		}
	}

	logger.ExitMethod("notificationService.Unread", "count", len(unread))
	return unread, nil
}
