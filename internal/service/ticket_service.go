package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/opsdesk/opsdesk/internal/metrics"
	"github.com/opsdesk/opsdesk/internal/models"
	"github.com/opsdesk/opsdesk/internal/realtime"
	"github.com/opsdesk/opsdesk/internal/repository"
)

// CreateTicketInput is the client-facing ticket submission.
type CreateTicketInput struct {
	ClientID    string  `json:"clientId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Priority    *string `json:"priority,omitempty"`
}

// TicketService covers ticket listing, creation and status changes.
type TicketService struct {
	tickets       repository.TicketRepository
	directory     repository.DirectoryRepository
	notifications *NotificationService
	hub           *realtime.Hub
	logger        *log.Logger
}

func NewTicketService(
	tickets repository.TicketRepository,
	directory repository.DirectoryRepository,
	notifications *NotificationService,
	hub *realtime.Hub,
	logger *log.Logger,
) *TicketService {
	if logger == nil {
		logger = log.Default()
	}
	return &TicketService{
		tickets:       tickets,
		directory:     directory,
		notifications: notifications,
		hub:           hub,
		logger:        logger,
	}
}

// ListForUser returns the tickets visible to the caller: clients see their
// own, technicians and admins see all.
func (s *TicketService) ListForUser(ctx context.Context, userID, role string) ([]*models.Ticket, error) {
	if role != models.RoleClient {
		return s.tickets.List(ctx, "")
	}
	client, err := s.directory.GetClientByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []*models.Ticket{}, nil
		}
		return nil, err
	}
	return s.tickets.List(ctx, client.ID)
}

// Get returns a single ticket by id.
func (s *TicketService) Get(ctx context.Context, id string) (*models.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

// Create validates and stores a new ticket, then pokes live clients so
// technician queues refresh without waiting for the next poll.
func (s *TicketService) Create(ctx context.Context, in CreateTicketInput) (*models.Ticket, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.ClientID == "" || in.Title == "" || !models.ValidTicketType(in.Type) {
		return nil, ErrInvalidInput
	}
	if in.Priority != nil && !models.ValidPriority(*in.Priority) {
		return nil, ErrInvalidInput
	}

	ticket := &models.Ticket{
		ClientID:    in.ClientID,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Status:      models.TicketStatusPending,
		Priority:    in.Priority,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	metrics.Get().TicketsCreated.Inc()

	if s.hub != nil {
		s.hub.Broadcast(realtime.Event{Event: realtime.EventTicketsChanged})
	}
	return s.tickets.GetByID(ctx, ticket.ID)
}

// UpdateStatus transitions a ticket and notifies the owning client. The
// notification is best-effort: its failure is logged, the transition stands.
func (s *TicketService) UpdateStatus(ctx context.Context, id, status string) (*models.Ticket, error) {
	if !models.ValidTicketStatus(status) {
		return nil, ErrInvalidInput
	}
	ticket, err := s.tickets.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	if s.notifications != nil {
		s.notifyClient(ctx, ticket, status)
	}
	if s.hub != nil {
		s.hub.Broadcast(realtime.Event{Event: realtime.EventTicketsChanged})
	}
	return ticket, nil
}

// Assign sets the handling technician and returns the fresh ticket.
func (s *TicketService) Assign(ctx context.Context, id, technicianID string) (*models.Ticket, error) {
	if technicianID == "" {
		return nil, ErrInvalidInput
	}
	if err := s.tickets.Assign(ctx, id, technicianID); err != nil {
		return nil, err
	}
	if s.hub != nil {
		s.hub.Broadcast(realtime.Event{Event: realtime.EventTicketsChanged})
	}
	return s.tickets.GetByID(ctx, id)
}

func (s *TicketService) notifyClient(ctx context.Context, ticket *models.Ticket, status string) {
	client, err := s.directory.GetClient(ctx, ticket.ClientID)
	if err != nil {
		s.logger.Printf("ticket: resolve client %s for status notification: %v", ticket.ClientID, err)
		return
	}
	title := "Ticket updated"
	body := fmt.Sprintf("Your ticket %q is now %s.", ticket.Title, status)
	if err := s.notifications.Notify(ctx, client.UserID, title, body); err != nil {
		s.logger.Printf("ticket: notify client %s: %v", client.UserID, err)
	}
}
