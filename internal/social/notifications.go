package social

import (
	"context"
	"errors"
	"fmt"

	"socialhub/internal/auth"
	"socialhub/internal/models"
)

// ListNotifications returns the viewer's notifications, newest first.
// Anonymous viewers get an empty list.
func (s *Service) ListNotifications(ctx context.Context, identity auth.Identity) (views []NotificationView, err error) {
	ctx, span := s.start(ctx, "ListNotifications")
	defer end(span, &err)

	views = []NotificationView{}
	viewerID, err := s.CurrentUserID(ctx, identity)
	if errors.Is(err, ErrUnauthenticated) {
		return views, nil
	}
	if err != nil {
		return nil, err
	}

	var notifications []models.Notification
	err = s.db.WithContext(ctx).
		Preload("Creator").
		Preload("Post").
		Preload("Comment").
		Where("user_id = ?", viewerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	for i := range notifications {
		views = append(views, notificationView(&notifications[i]))
	}
	return views, nil
}

// MarkNotificationsRead flags ids as read. Notifications addressed to
// other users are left alone.
func (s *Service) MarkNotificationsRead(ctx context.Context, identity auth.Identity, ids []string) (err error) {
	ctx, span := s.start(ctx, "MarkNotificationsRead")
	defer end(span, &err)

	viewerID, err := s.CurrentUserID(ctx, identity)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	err = s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND id IN ?", viewerID, ids).
		Update("read", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// UnreadCount returns how many of the viewer's notifications are unread.
func (s *Service) UnreadCount(ctx context.Context, identity auth.Identity) (int64, error) {
	viewerID, err := s.CurrentUserID(ctx, identity)
	if errors.Is(err, ErrUnauthenticated) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var n int64
	err = s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where(map[string]interface{}{"user_id": viewerID, "read": false}).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}
