package service

import (
	"context"
	"log"
	"strings"

	"github.com/opsdesk/opsdesk/internal/models"
	"github.com/opsdesk/opsdesk/internal/realtime"
	"github.com/opsdesk/opsdesk/internal/repository"
)

// NotificationService is the notification feed: listing, the two mark-read
// mutations and system-generated inserts.
type NotificationService struct {
	notifications repository.NotificationRepository
	unread        *UnreadService
	hub           *realtime.Hub
	logger        *log.Logger
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	unread *UnreadService,
	hub *realtime.Hub,
	logger *log.Logger,
) *NotificationService {
	if logger == nil {
		logger = log.Default()
	}
	return &NotificationService{
		notifications: notifications,
		unread:        unread,
		hub:           hub,
		logger:        logger,
	}
}

// List returns the user's notifications newest-first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]*models.Notification, error) {
	return s.notifications.List(ctx, userID)
}

// MarkOne marks a single notification read, scoped to the caller: another
// user's notification affects zero rows. Already-read and unknown ids also
// affect zero rows; all return a zero delta rather than an error, so
// repeated marks converge on the same state.
func (s *NotificationService) MarkOne(ctx context.Context, notificationID, userID string) (int, error) {
	affected, err := s.notifications.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.unread.InvalidateNotifications(ctx, userID)
	}
	return int(affected), nil
}

// MarkAll marks every unread notification of the user read and returns the
// number of rows transitioned.
func (s *NotificationService) MarkAll(ctx context.Context, userID string) (int, error) {
	affected, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.unread.InvalidateNotifications(ctx, userID)
	}
	return int(affected), nil
}

// Notify stores a system-generated notification for userID and pokes the
// user's live connections. A poke failure never fails the insert.
func (s *NotificationService) Notify(ctx context.Context, userID, title, message string) error {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if userID == "" || title == "" {
		return ErrInvalidInput
	}

	n := &models.Notification{UserID: userID, Title: title, Message: message}
	if err := s.notifications.Insert(ctx, n); err != nil {
		return err
	}
	s.unread.InvalidateNotifications(ctx, userID)

	if s.hub != nil {
		s.pushCounts(ctx, userID)
	}
	return nil
}

// pushCounts recomputes the user's counters and sends them to any live
// websocket connections.
func (s *NotificationService) pushCounts(ctx context.Context, userID string) {
	counts, err := s.unread.Counts(ctx, userID)
	if err != nil {
		s.logger.Printf("notification: recompute counts for %s: %v", userID, err)
		return
	}
	s.hub.SendToUser(userID, realtime.Event{
		Event:   realtime.EventUnreadCounts,
		Payload: counts,
	})
}
