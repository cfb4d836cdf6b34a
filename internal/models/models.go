package models

import "time"

// Role values for users.role.
const (
	RoleClient     = "client"
	RoleTechnician = "technician"
	RoleAdmin      = "admin"
)

// Ticket type values.
const (
	TicketTypeSupport  = "support"
	TicketTypeHardware = "hardware"
	TicketTypeSoftware = "software"
)

// Ticket status values. The lifecycle is pending -> in-progress -> complete;
// the progression is conventional, not enforced by the store.
const (
	TicketStatusPending    = "pending"
	TicketStatusInProgress = "in-progress"
	TicketStatusComplete   = "complete"
)

// Ticket priority values.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Chat status values.
const (
	ChatStatusActive  = "active"
	ChatStatusWaiting = "waiting"
	ChatStatusClosed  = "closed"
)

// User is the identity record. PasswordHash never leaves the server.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"fullName"`
	AvatarURL    *string   `db:"avatar_url" json:"avatarUrl,omitempty"`
	Role         string    `db:"role" json:"role"`
	CompanyID    *string   `db:"company_id" json:"companyId,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

type Company struct {
	ID      string  `db:"id" json:"id"`
	Name    string  `db:"name" json:"name"`
	Website *string `db:"website" json:"website,omitempty"`
	Phone   *string `db:"phone" json:"phone,omitempty"`
}

type Location struct {
	ID        string  `db:"id" json:"id"`
	CompanyID string  `db:"company_id" json:"companyId"`
	Name      string  `db:"name" json:"name"`
	Address   *string `db:"address" json:"address,omitempty"`
	City      *string `db:"city" json:"city,omitempty"`
	State     *string `db:"state" json:"state,omitempty"`
	Zip       *string `db:"zip" json:"zip,omitempty"`
	Phone     *string `db:"phone" json:"phone,omitempty"`
}

// UserSummary is the embedded user view carried by clients, technicians,
// tickets and messages.
type UserSummary struct {
	FullName  string  `json:"fullName"`
	Email     string  `json:"email,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

type Client struct {
	ID         string       `db:"id" json:"id"`
	UserID     string       `db:"user_id" json:"userId"`
	CompanyID  string       `db:"company_id" json:"companyId"`
	LocationID *string      `db:"location_id" json:"locationId,omitempty"`
	JobTitle   *string      `db:"job_title" json:"jobTitle,omitempty"`
	Phone      *string      `db:"phone" json:"phone,omitempty"`
	User       *UserSummary `db:"-" json:"user,omitempty"`
	Company    *Company     `db:"-" json:"company,omitempty"`
	Location   *Location    `db:"-" json:"location,omitempty"`
}

type Technician struct {
	ID             string       `db:"id" json:"id"`
	UserID         string       `db:"user_id" json:"userId"`
	Specialization *string      `db:"specialization" json:"specialization,omitempty"`
	Phone          *string      `db:"phone" json:"phone,omitempty"`
	User           *UserSummary `db:"-" json:"user,omitempty"`
}

type Ticket struct {
	ID           string      `db:"id" json:"id"`
	ClientID     string      `db:"client_id" json:"clientId"`
	TechnicianID *string     `db:"technician_id" json:"technicianId,omitempty"`
	Title        string      `db:"title" json:"title"`
	Description  string      `db:"description" json:"description"`
	Type         string      `db:"type" json:"type"`
	Status       string      `db:"status" json:"status"`
	Priority     *string     `db:"priority" json:"priority,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
	Client       *Client     `db:"-" json:"client,omitempty"`
	Technician   *Technician `db:"-" json:"technician,omitempty"`
}

// Chat is a conversation thread bound one-to-one with a ticket.
type Chat struct {
	ID           string    `db:"id" json:"id"`
	TicketID     string    `db:"ticket_id" json:"ticketId"`
	Subject      string    `db:"subject" json:"subject"`
	Status       string    `db:"status" json:"status"`
	LastActivity time.Time `db:"last_activity" json:"lastActivity"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
	Ticket       *Ticket   `db:"-" json:"ticket,omitempty"`
}

// Message carries a per-message read flag. In a chat with more than two
// participants this under-represents per-recipient state; the portal keeps
// the original single-flag contract.
type Message struct {
	ID        string       `db:"id" json:"id"`
	ChatID    string       `db:"chat_id" json:"chatId"`
	SenderID  string       `db:"user_id" json:"senderId"`
	Content   string       `db:"content" json:"message"`
	Read      bool         `db:"read" json:"read"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time    `db:"updated_at" json:"updatedAt"`
	Sender    *UserSummary `db:"-" json:"sender,omitempty"`
}

type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type ChatParticipant struct {
	ID     string `db:"id" json:"id"`
	ChatID string `db:"chat_id" json:"chatId"`
	UserID string `db:"user_id" json:"userId"`
}

// ValidRole reports whether r is a known user role.
func ValidRole(r string) bool {
	switch r {
	case RoleClient, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// ValidTicketType reports whether t is a known ticket type.
func ValidTicketType(t string) bool {
	switch t {
	case TicketTypeSupport, TicketTypeHardware, TicketTypeSoftware:
		return true
	}
	return false
}

// ValidTicketStatus reports whether s is a known ticket status.
func ValidTicketStatus(s string) bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusComplete:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known ticket priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
