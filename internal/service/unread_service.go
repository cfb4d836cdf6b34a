package service

import (
	"context"
	"fmt"

	"github.com/opsdesk/opsdesk/internal/cache"
	"github.com/opsdesk/opsdesk/internal/repository"
)

// UnreadCounts holds both header counters, taken in one pass.
type UnreadCounts struct {
	Messages      int `json:"messages"`
	Notifications int `json:"notifications"`
}

// CountCache is the counter cache contract: reads repopulate, and every
// mutation that can change a counter invalidates the affected key.
// *cache.Counts is the Redis implementation.
type CountCache interface {
	Get(ctx context.Context, surface cache.Surface, userID string) (int, bool)
	Set(ctx context.Context, surface cache.Surface, userID string, count int)
	Invalidate(ctx context.Context, surface cache.Surface, userID string)
}

// UnreadService reconciles the per-user unread counters with the
// underlying read flags. Counts are exact at read time; local decrements
// applied between reads clamp at zero and are never allowed to go
// negative. Two sessions reading the same chat may both decrement --
// the double-decrement is accepted and clamped, not corrected.
type UnreadService struct {
	chats         repository.ChatRepository
	notifications repository.NotificationRepository
	counts        CountCache
}

// NewUnreadService creates the reconciler. counts may be nil to disable
// caching.
func NewUnreadService(chats repository.ChatRepository, notifications repository.NotificationRepository, counts CountCache) *UnreadService {
	return &UnreadService{chats: chats, notifications: notifications, counts: counts}
}

// MessageCount returns the number of unread messages across every chat the
// user participates in, excluding the user's own messages.
func (s *UnreadService) MessageCount(ctx context.Context, userID string) (int, error) {
	if s.counts != nil {
		if n, ok := s.counts.Get(ctx, cache.SurfaceMessages, userID); ok {
			return n, nil
		}
	}
	n, err := s.chats.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("message count: %w", err)
	}
	if s.counts != nil {
		s.counts.Set(ctx, cache.SurfaceMessages, userID, n)
	}
	return n, nil
}

// NotificationCount returns the user's unread notification count.
func (s *UnreadService) NotificationCount(ctx context.Context, userID string) (int, error) {
	if s.counts != nil {
		if n, ok := s.counts.Get(ctx, cache.SurfaceNotifications, userID); ok {
			return n, nil
		}
	}
	n, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("notification count: %w", err)
	}
	if s.counts != nil {
		s.counts.Set(ctx, cache.SurfaceNotifications, userID, n)
	}
	return n, nil
}

// Counts returns both counters.
func (s *UnreadService) Counts(ctx context.Context, userID string) (UnreadCounts, error) {
	messages, err := s.MessageCount(ctx, userID)
	if err != nil {
		return UnreadCounts{}, err
	}
	notifications, err := s.NotificationCount(ctx, userID)
	if err != nil {
		return UnreadCounts{}, err
	}
	return UnreadCounts{Messages: messages, Notifications: notifications}, nil
}

// ApplyDecrement subtracts an observed delta from a counter, clamping at
// zero. It encodes the client-side counter contract: the UI holds the
// current count, receives the unread delta from a chat selection, and
// applies the clamped subtraction locally. The server never adjusts a
// stored counter with it; it is exported so clients of this package can
// share the exact clamp semantics.
func ApplyDecrement(current, observed int) int {
	next := current - observed
	if next < 0 {
		return 0
	}
	return next
}

// InvalidateMessages drops the cached message counter for the given users.
// Called after sends and chat mark-reads.
func (s *UnreadService) InvalidateMessages(ctx context.Context, userIDs ...string) {
	if s.counts == nil {
		return
	}
	for _, id := range userIDs {
		s.counts.Invalidate(ctx, cache.SurfaceMessages, id)
	}
}

// InvalidateNotifications drops the cached notification counter.
func (s *UnreadService) InvalidateNotifications(ctx context.Context, userIDs ...string) {
	if s.counts == nil {
		return
	}
	for _, id := range userIDs {
		s.counts.Invalidate(ctx, cache.SurfaceNotifications, id)
	}
}
