package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/opsdesk/opsdesk/internal/metrics"
	"github.com/opsdesk/opsdesk/internal/models"
	"github.com/opsdesk/opsdesk/internal/realtime"
	"github.com/opsdesk/opsdesk/internal/repository"
)

// Defaults for the ticket auto-created when a technician opens a
// conversation with a client who has none.
const (
	defaultTicketTitle = "New Support Request"
	defaultTicketDesc  = "Conversation opened by a technician."
)

// ChatSelection is the result of opening a chat: the message history
// oldest-first plus the unread delta the caller's view held before the
// mark-read mutation ran. The UI subtracts the delta from its counter;
// the mutation reports no row identities of its own.
type ChatSelection struct {
	Chat        *models.Chat      `json:"chat"`
	Messages    []*models.Message `json:"messages"`
	UnreadDelta int               `json:"unreadDelta"`
}

// ChatService manages conversations: listing, selection, sending and the
// switch-to-client flow.
type ChatService struct {
	chats     repository.ChatRepository
	tickets   repository.TicketRepository
	directory repository.DirectoryRepository
	unread    *UnreadService
	hub       *realtime.Hub

	sanitizer *bluemonday.Policy
	logger    *log.Logger
}

// NewChatService wires the chat session manager. hub may be nil in tests.
func NewChatService(
	chats repository.ChatRepository,
	tickets repository.TicketRepository,
	directory repository.DirectoryRepository,
	unread *UnreadService,
	hub *realtime.Hub,
	logger *log.Logger,
) *ChatService {
	if logger == nil {
		logger = log.Default()
	}
	return &ChatService{
		chats:     chats,
		tickets:   tickets,
		directory: directory,
		unread:    unread,
		hub:       hub,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// ListForTechnician returns all chats, or those whose ticket is assigned to
// technicianID when non-empty, most recent activity first.
func (s *ChatService) ListForTechnician(ctx context.Context, technicianID string) ([]*models.Chat, error) {
	return s.chats.List(ctx, technicianID)
}

// ListForUser returns the chats the user participates in.
func (s *ChatService) ListForUser(ctx context.Context, userID string) ([]*models.Chat, error) {
	return s.chats.ListByParticipant(ctx, userID)
}

// Select opens a chat: fetches the history oldest-first, computes the
// unread delta from that view, then marks the chat read and invalidates
// the user's cached counter. Clients may only open chats they participate
// in; technicians and admins may open any chat.
func (s *ChatService) Select(ctx context.Context, chatID, userID, role string) (*ChatSelection, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if role != models.RoleTechnician && role != models.RoleAdmin {
		member, err := s.isParticipant(ctx, chatID, userID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, ErrForbidden
		}
	}

	messages, err := s.chats.GetMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}

	// Delta from the fetched view, evaluated before the mark-read call.
	delta := 0
	for _, m := range messages {
		if !m.Read && m.SenderID != userID {
			delta++
		}
	}

	if _, err := s.chats.MarkRead(ctx, chatID, userID); err != nil {
		return nil, err
	}
	s.unread.InvalidateMessages(ctx, userID)

	return &ChatSelection{Chat: chat, Messages: messages, UnreadDelta: delta}, nil
}

// Send validates, sanitizes and stores a message, then advances the parent
// chat header and re-fetches the full history. Re-fetch-after-write is the
// canonical confirmation strategy: the returned view always matches server
// state, at the cost of one extra round trip.
func (s *ChatService) Send(ctx context.Context, chatID, senderID, content string) ([]*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || chatID == "" || senderID == "" {
		return nil, ErrEmptyMessage
	}
	content = s.sanitizer.Sanitize(content)
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	msg := &models.Message{ChatID: chatID, SenderID: senderID, Content: content}
	if err := s.chats.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	// Second write of the non-atomic pair. A failure here leaves the
	// message stored with a stale chat header; surfaced, not rolled back.
	if err := s.chats.TouchChat(ctx, chatID); err != nil {
		return nil, fmt.Errorf("message %s stored but chat header not updated: %w", msg.ID, err)
	}

	metrics.Get().MessagesSent.Inc()
	s.invalidateRecipients(ctx, chatID, senderID)

	return s.chats.GetMessages(ctx, chatID)
}

func (s *ChatService) isParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	participants, err := s.chats.ListParticipants(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("list participants for %s: %w", chatID, err)
	}
	for _, p := range participants {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// invalidateRecipients drops the cached message counter of every other
// participant after a send.
func (s *ChatService) invalidateRecipients(ctx context.Context, chatID, senderID string) {
	participants, err := s.chats.ListParticipants(ctx, chatID)
	if err != nil {
		s.logger.Printf("chat: list participants for invalidation: %v", err)
		return
	}
	for _, p := range participants {
		if p.UserID != senderID {
			s.unread.InvalidateMessages(ctx, p.UserID)
		}
	}
}

// SwitchToClient resolves the conversation for a client: an existing chat
// on one of the client's tickets is selected; otherwise a new ticket and a
// chat bound to it are created. The two inserts are dependent and not
// transactional: a chat-insert failure after the ticket insert leaves an
// orphaned ticket, which is reported, not remediated.
func (s *ChatService) SwitchToClient(ctx context.Context, clientID, callerUserID string) (*ChatSelection, error) {
	chat, err := s.chats.FindByClient(ctx, clientID)
	if err == nil {
		// The switch flow is staff-only; the route gate enforces the role.
		return s.Select(ctx, chat.ID, callerUserID, models.RoleTechnician)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	client, err := s.directory.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("resolve client %s: %w", clientID, err)
	}

	priority := models.PriorityMedium
	ticket := &models.Ticket{
		ClientID:    clientID,
		Title:       defaultTicketTitle,
		Description: defaultTicketDesc,
		Type:        models.TicketTypeSupport,
		Status:      models.TicketStatusPending,
		Priority:    &priority,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	metrics.Get().TicketsCreated.Inc()

	chat = &models.Chat{
		TicketID: ticket.ID,
		Subject:  ticket.Title,
		Status:   models.ChatStatusActive,
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("ticket %s created without chat: %w", ticket.ID, err)
	}

	for _, userID := range []string{client.UserID, callerUserID} {
		if err := s.chats.AddParticipant(ctx, chat.ID, userID); err != nil {
			s.logger.Printf("chat: add participant %s to %s: %v", userID, chat.ID, err)
		}
	}

	if s.hub != nil {
		s.hub.Broadcast(realtime.Event{Event: realtime.EventTicketsChanged})
	}

	return s.Select(ctx, chat.ID, callerUserID, models.RoleTechnician)
}
