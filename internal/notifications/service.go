package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

// Service exposes the in-app notification feed.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params pagination.Params) (*NotificationList, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
}

// NotificationList is a cursor page of stored notifications.
type NotificationList struct {
	Items      []models.Notification
	NextCursor string
	HasMore    bool
}

// NewService builds a notifications service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params pagination.Params) (*NotificationList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	rows, err := s.repo.ListByUser(ctx, userID, unreadOnly, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	list := &NotificationList{Items: rows}
	limit := pagination.NormalizeLimit(params.Limit)
	if pagination.HasMore(len(rows), params.Limit) {
		list.Items = rows[:limit]
		list.HasMore = true
		last := list.Items[len(list.Items)-1]
		list.NextCursor = pagination.NextCursor(last.CreatedAt, last.ID)
	}
	return list, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	// A zero-row update means the notification is missing, foreign, or
	// already read. All three are safe to treat as success for retries.
	if _, err := s.repo.MarkRead(ctx, userID, notificationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	marked, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark all notifications read")
	}
	return marked, nil
}
