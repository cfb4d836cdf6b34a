package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/opsdesk/opsdesk/internal/database"
	"github.com/opsdesk/opsdesk/internal/models"
)

func init() {
	// Pin placeholder conversion to passthrough for the mocked queries.
	database.SetDriver("sqlite3")
}

func TestGetMessagesOrderedOldestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewChatRepository(db)
	ctx := context.Background()

	earlier := time.Now().Add(-2 * time.Hour)
	later := time.Now().Add(-1 * time.Hour)

	rows := sqlmock.NewRows([]string{
		"id", "chat_id", "user_id", "content", "read", "created_at", "updated_at",
		"full_name", "avatar_url",
	}).
		AddRow("m1", "chat-1", "u2", "first", false, earlier, earlier, "Jane Tech", nil).
		AddRow("m2", "chat-1", "u1", "second", true, later, later, "John Client", nil)

	mock.ExpectQuery(`ORDER BY m\.created_at ASC`).
		WithArgs("chat-1").
		WillReturnRows(rows)

	msgs, err := repo.GetMessages(ctx, "chat-1")
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}

	if len(msgs) != 2 {
		t.Fatalf("unexpected count: %d", len(msgs))
	}
	if msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Fatalf("unexpected order: %s %s", msgs[0].ID, msgs[1].ID)
	}
	if msgs[0].Sender == nil || msgs[0].Sender.FullName != "Jane Tech" {
		t.Fatalf("sender view not attached: %+v", msgs[0].Sender)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetMessagesEmptyChatReturnsEmptySlice(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewChatRepository(db)

	mock.ExpectQuery(`FROM messages m`).
		WithArgs("chat-empty").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "chat_id", "user_id", "content", "read", "created_at", "updated_at",
			"full_name", "avatar_url",
		}))

	msgs, err := repo.GetMessages(context.Background(), "chat-empty")
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if msgs == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
}

func TestInsertMessageThenTouchChatIsTwoStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewChatRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO messages`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE chats SET last_activity`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg := &models.Message{ChatID: "chat-1", SenderID: "u1", Content: "hello"}
	if err := repo.InsertMessage(ctx, msg); err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("expected generated message id")
	}
	if msg.Read {
		t.Fatal("new message must start unread")
	}
	if err := repo.TouchChat(ctx, "chat-1"); err != nil {
		t.Fatalf("TouchChat: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkReadReportsAffectedRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewChatRepository(db)

	mock.ExpectExec(`UPDATE messages`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.MarkRead(context.Background(), "chat-1", "u1")
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}
}

func TestMarkReadOnReadChatIsNoOp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewChatRepository(db)

	mock.ExpectExec(`UPDATE messages`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.MarkRead(context.Background(), "chat-1", "u1")
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected zero rows on already-read chat, got %d", n)
	}
}

func TestUnreadCountQueryShape(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewChatRepository(db)

	q := `
		SELECT COUNT(*)
		FROM messages m
		JOIN chat_participants cp ON cp.chat_id = m.chat_id
		WHERE cp.user_id = ? AND m.user_id != ? AND m.read = ?`
	mock.ExpectQuery(regexp.QuoteMeta(q)).
		WithArgs("u1", "u1", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.UnreadCount(context.Background(), "u1")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
