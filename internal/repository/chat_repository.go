package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/opsdesk/opsdesk/internal/database"
	"github.com/opsdesk/opsdesk/internal/models"
)

// ChatRepository serves chats, chat membership and messages. A chat is
// bound one-to-one with a ticket; membership rows make the participant set
// explicit so unread counts never have to guess who is in a conversation.
type ChatRepository interface {
	List(ctx context.Context, technicianID string) ([]*models.Chat, error)
	ListByParticipant(ctx context.Context, userID string) ([]*models.Chat, error)
	GetByID(ctx context.Context, id string) (*models.Chat, error)
	FindByClient(ctx context.Context, clientID string) (*models.Chat, error)
	Create(ctx context.Context, chat *models.Chat) error
	AddParticipant(ctx context.Context, chatID, userID string) error
	ListParticipants(ctx context.Context, chatID string) ([]*models.ChatParticipant, error)

	GetMessages(ctx context.Context, chatID string) ([]*models.Message, error)
	InsertMessage(ctx context.Context, msg *models.Message) error
	TouchChat(ctx context.Context, chatID string) error
	MarkRead(ctx context.Context, chatID, userID string) (int64, error)
	CountUnreadInChat(ctx context.Context, chatID, userID string) (int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type ChatSQLRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatSQLRepository {
	return &ChatSQLRepository{db: db}
}

const chatSelect = `
	SELECT ch.id, ch.ticket_id, ch.subject, ch.status, ch.last_activity,
	       ch.created_at, ch.updated_at,
	       t.title, t.client_id,
	       cu.full_name, cu.email, cu.avatar_url,
	       co.id, co.name
	FROM chats ch
	JOIN tickets t ON t.id = ch.ticket_id
	LEFT JOIN clients c ON c.id = t.client_id
	LEFT JOIN users cu ON cu.id = c.user_id
	LEFT JOIN companies co ON co.id = c.company_id`

func scanChatRow(row interface{ Scan(...any) error }) (*models.Chat, error) {
	var (
		ch models.Chat

		ticketTitle, ticketClientID           sql.NullString
		clientName, clientEmail, clientAvatar sql.NullString
		companyID, companyName                sql.NullString
	)
	err := row.Scan(
		&ch.ID, &ch.TicketID, &ch.Subject, &ch.Status, &ch.LastActivity,
		&ch.CreatedAt, &ch.UpdatedAt,
		&ticketTitle, &ticketClientID,
		&clientName, &clientEmail, &clientAvatar,
		&companyID, &companyName,
	)
	if err != nil {
		return nil, err
	}

	if ticketTitle.Valid {
		ticket := &models.Ticket{ID: ch.TicketID, Title: ticketTitle.String, ClientID: ticketClientID.String}
		if clientName.Valid {
			client := &models.Client{ID: ticketClientID.String, User: &models.UserSummary{
				FullName: clientName.String,
				Email:    clientEmail.String,
			}}
			if clientAvatar.Valid {
				client.User.AvatarURL = &clientAvatar.String
			}
			if companyID.Valid {
				client.Company = &models.Company{ID: companyID.String, Name: companyName.String}
			}
			ticket.Client = client
		}
		ch.Ticket = ticket
	}
	return &ch, nil
}

func (r *ChatSQLRepository) collectChats(rows *sql.Rows) ([]*models.Chat, error) {
	defer rows.Close()
	chats := []*models.Chat{}
	for rows.Next() {
		ch, err := scanChatRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	return chats, nil
}

// List returns chats by most recent activity. A non-empty technicianID
// narrows to chats whose ticket is assigned to that technician.
func (r *ChatSQLRepository) List(ctx context.Context, technicianID string) ([]*models.Chat, error) {
	query := chatSelect
	args := []any{}
	if technicianID != "" {
		query += ` WHERE t.technician_id = ?`
		args = append(args, technicianID)
	}
	query += ` ORDER BY ch.last_activity DESC`

	rows, err := r.db.QueryContext(ctx, database.ConvertPlaceholders(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return r.collectChats(rows)
}

// ListByParticipant returns the chats a user is a member of, by most
// recent activity.
func (r *ChatSQLRepository) ListByParticipant(ctx context.Context, userID string) ([]*models.Chat, error) {
	query := database.ConvertPlaceholders(chatSelect + `
	JOIN chat_participants cp ON cp.chat_id = ch.id
	WHERE cp.user_id = ?
	ORDER BY ch.last_activity DESC`)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats by participant: %w", err)
	}
	return r.collectChats(rows)
}

func (r *ChatSQLRepository) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	query := database.ConvertPlaceholders(chatSelect + ` WHERE ch.id = ?`)
	ch, err := scanChatRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return ch, nil
}

// FindByClient returns the most recently active chat belonging to one of
// the client's tickets, or ErrNotFound.
func (r *ChatSQLRepository) FindByClient(ctx context.Context, clientID string) (*models.Chat, error) {
	query := database.ConvertPlaceholders(chatSelect + `
	WHERE t.client_id = ?
	ORDER BY ch.last_activity DESC
	LIMIT 1`)
	ch, err := scanChatRow(r.db.QueryRowContext(ctx, query, clientID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find chat by client: %w", err)
	}
	return ch, nil
}

func (r *ChatSQLRepository) Create(ctx context.Context, chat *models.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	t := now()
	chat.CreatedAt = t
	chat.UpdatedAt = t
	if chat.LastActivity.IsZero() {
		chat.LastActivity = t
	}
	if chat.Status == "" {
		chat.Status = models.ChatStatusActive
	}

	query := database.ConvertPlaceholders(`
		INSERT INTO chats (id, ticket_id, subject, status, last_activity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		chat.ID, chat.TicketID, chat.Subject, chat.Status, chat.LastActivity, chat.CreatedAt, chat.UpdatedAt); err != nil {
		return fmt.Errorf("create chat: %w", err)
	}
	return nil
}

func (r *ChatSQLRepository) AddParticipant(ctx context.Context, chatID, userID string) error {
	query := database.ConvertPlaceholders(`
		INSERT INTO chat_participants (id, chat_id, user_id)
		VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), chatID, userID); err != nil {
		return fmt.Errorf("add chat participant: %w", err)
	}
	return nil
}

func (r *ChatSQLRepository) ListParticipants(ctx context.Context, chatID string) ([]*models.ChatParticipant, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, chat_id, user_id FROM chat_participants WHERE chat_id = ?`)
	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("list chat participants: %w", err)
	}
	defer rows.Close()

	parts := []*models.ChatParticipant{}
	for rows.Next() {
		var p models.ChatParticipant
		if err := rows.Scan(&p.ID, &p.ChatID, &p.UserID); err != nil {
			return nil, fmt.Errorf("scan chat participant: %w", err)
		}
		parts = append(parts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat participants: %w", err)
	}
	return parts, nil
}

// GetMessages returns a chat's messages oldest-first with the sender view
// attached.
func (r *ChatSQLRepository) GetMessages(ctx context.Context, chatID string) ([]*models.Message, error) {
	query := database.ConvertPlaceholders(`
		SELECT m.id, m.chat_id, m.user_id, m.content, m.read, m.created_at, m.updated_at,
		       u.full_name, u.avatar_url
		FROM messages m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.chat_id = ?
		ORDER BY m.created_at ASC`)
	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	msgs := []*models.Message{}
	for rows.Next() {
		var (
			m            models.Message
			senderName   sql.NullString
			senderAvatar sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.Read,
			&m.CreatedAt, &m.UpdatedAt, &senderName, &senderAvatar); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if senderName.Valid {
			m.Sender = &models.UserSummary{FullName: senderName.String}
			if senderAvatar.Valid {
				m.Sender.AvatarURL = &senderAvatar.String
			}
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// InsertMessage stores a new unread message. Updating the parent chat is a
// separate step (TouchChat); the pair is deliberately not atomic, matching
// the portal's send contract.
func (r *ChatSQLRepository) InsertMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	t := now()
	msg.CreatedAt = t
	msg.UpdatedAt = t
	msg.Read = false

	query := database.ConvertPlaceholders(`
		INSERT INTO messages (id, chat_id, user_id, content, ` + database.ReadColumn() + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.ChatID, msg.SenderID, msg.Content, msg.Read, msg.CreatedAt, msg.UpdatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// TouchChat advances last_activity and forces the chat back to active.
func (r *ChatSQLRepository) TouchChat(ctx context.Context, chatID string) error {
	query := database.ConvertPlaceholders(`
		UPDATE chats SET last_activity = ?, status = ?, updated_at = ? WHERE id = ?`)
	t := now()
	if _, err := r.db.ExecContext(ctx, query, t, models.ChatStatusActive, t, chatID); err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}
	return nil
}

// MarkRead flags every unread message in the chat not sent by userID as
// read. Returns the number of rows affected; zero on an already-read chat.
func (r *ChatSQLRepository) MarkRead(ctx context.Context, chatID, userID string) (int64, error) {
	query := database.ConvertPlaceholders(`
		UPDATE messages
		SET ` + database.ReadColumn() + ` = ?, updated_at = ?
		WHERE chat_id = ? AND user_id != ? AND ` + database.ReadColumn() + ` = ?`)
	res, err := r.db.ExecContext(ctx, query, true, now(), chatID, userID, false)
	if err != nil {
		return 0, fmt.Errorf("mark chat read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark chat read rows: %w", err)
	}
	return n, nil
}

// CountUnreadInChat counts the messages userID has not read in one chat.
func (r *ChatSQLRepository) CountUnreadInChat(ctx context.Context, chatID, userID string) (int, error) {
	query := database.ConvertPlaceholders(`
		SELECT COUNT(*) FROM messages m
		WHERE m.chat_id = ? AND m.user_id != ? AND m.read = ?`)
	var count int
	if err := r.db.QueryRowContext(ctx, query, chatID, userID, false).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread in chat: %w", err)
	}
	return count, nil
}

// UnreadCount counts unread messages across every chat the user
// participates in, excluding the user's own messages.
func (r *ChatSQLRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	query := database.ConvertPlaceholders(`
		SELECT COUNT(*)
		FROM messages m
		JOIN chat_participants cp ON cp.chat_id = m.chat_id
		WHERE cp.user_id = ? AND m.user_id != ? AND m.read = ?`)
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, userID, false).Scan(&count); err != nil {
		return 0, fmt.Errorf("unread message count: %w", err)
	}
	return count, nil
}
