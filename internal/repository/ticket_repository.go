package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/opsdesk/opsdesk/internal/database"
	"github.com/opsdesk/opsdesk/internal/models"
)

// TicketRepository serves the tickets table.
type TicketRepository interface {
	List(ctx context.Context, clientID string) ([]*models.Ticket, error)
	GetByID(ctx context.Context, id string) (*models.Ticket, error)
	Create(ctx context.Context, ticket *models.Ticket) error
	UpdateStatus(ctx context.Context, id, status string) (*models.Ticket, error)
	Assign(ctx context.Context, id, technicianID string) error
}

type TicketSQLRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) *TicketSQLRepository {
	return &TicketSQLRepository{db: db}
}

const ticketSelect = `
	SELECT t.id, t.client_id, t.technician_id, t.title, t.description,
	       t.type, t.status, t.priority, t.created_at, t.updated_at,
	       cu.full_name, cu.email, cu.avatar_url,
	       co.id, co.name,
	       tu.full_name, tu.email, tu.avatar_url
	FROM tickets t
	LEFT JOIN clients c ON c.id = t.client_id
	LEFT JOIN users cu ON cu.id = c.user_id
	LEFT JOIN companies co ON co.id = c.company_id
	LEFT JOIN technicians tech ON tech.id = t.technician_id
	LEFT JOIN users tu ON tu.id = tech.user_id`

func scanTicketRow(row interface{ Scan(...any) error }) (*models.Ticket, error) {
	var (
		t models.Ticket

		clientName, clientEmail, clientAvatar sql.NullString
		companyID, companyName                sql.NullString
		techName, techEmail, techAvatar       sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.ClientID, &t.TechnicianID, &t.Title, &t.Description,
		&t.Type, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt,
		&clientName, &clientEmail, &clientAvatar,
		&companyID, &companyName,
		&techName, &techEmail, &techAvatar,
	)
	if err != nil {
		return nil, err
	}

	if clientName.Valid {
		client := &models.Client{ID: t.ClientID, User: &models.UserSummary{
			FullName: clientName.String,
			Email:    clientEmail.String,
		}}
		if clientAvatar.Valid {
			client.User.AvatarURL = &clientAvatar.String
		}
		if companyID.Valid {
			client.Company = &models.Company{ID: companyID.String, Name: companyName.String}
		}
		t.Client = client
	}
	if t.TechnicianID != nil && techName.Valid {
		tech := &models.Technician{ID: *t.TechnicianID, User: &models.UserSummary{
			FullName: techName.String,
			Email:    techEmail.String,
		}}
		if techAvatar.Valid {
			tech.User.AvatarURL = &techAvatar.String
		}
		t.Technician = tech
	}
	return &t, nil
}

// List returns tickets newest-first. A non-empty clientID narrows the
// result to that client's tickets.
func (r *TicketSQLRepository) List(ctx context.Context, clientID string) ([]*models.Ticket, error) {
	query := ticketSelect
	args := []any{}
	if clientID != "" {
		query += ` WHERE t.client_id = ?`
		args = append(args, clientID)
	}
	query += ` ORDER BY t.created_at DESC`

	rows, err := r.db.QueryContext(ctx, database.ConvertPlaceholders(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := []*models.Ticket{}
	for rows.Next() {
		t, err := scanTicketRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return tickets, nil
}

func (r *TicketSQLRepository) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	query := database.ConvertPlaceholders(ticketSelect + ` WHERE t.id = ?`)
	t, err := scanTicketRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

func (r *TicketSQLRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	t := now()
	ticket.CreatedAt = t
	ticket.UpdatedAt = t

	query := database.ConvertPlaceholders(`
		INSERT INTO tickets (id, client_id, technician_id, title, description, type, status, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		ticket.ID, ticket.ClientID, ticket.TechnicianID, ticket.Title, ticket.Description,
		ticket.Type, ticket.Status, ticket.Priority, ticket.CreatedAt, ticket.UpdatedAt); err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

// UpdateStatus sets the status and returns the fresh row. Status progression
// is conventional (pending -> in-progress -> complete) but not enforced here,
// matching the store contract.
func (r *TicketSQLRepository) UpdateStatus(ctx context.Context, id, status string) (*models.Ticket, error) {
	query := database.ConvertPlaceholders(`UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, status, now(), id)
	if err != nil {
		return nil, fmt.Errorf("update ticket status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Assign attaches a technician to the ticket.
func (r *TicketSQLRepository) Assign(ctx context.Context, id, technicianID string) error {
	query := database.ConvertPlaceholders(`UPDATE tickets SET technician_id = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, technicianID, now(), id)
	if err != nil {
		return fmt.Errorf("assign ticket: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
