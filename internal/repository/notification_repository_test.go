package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newNotificationRepo(t *testing.T) (*NotificationSQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewNotificationRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestListNotificationsNewestFirst(t *testing.T) {
	repo, mock := newNotificationRepo(t)

	newer := time.Now()
	older := newer.Add(-time.Hour)

	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "message", "read", "created_at", "updated_at"}).
		AddRow("n2", "u1", "Ticket updated", "status changed", false, newer, newer).
		AddRow("n1", "u1", "Welcome", "hello", true, older, older)

	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WithArgs("u1").
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected count: %d", len(got))
	}
	if got[0].ID != "n2" || got[1].ID != "n1" {
		t.Fatalf("unexpected order: %s %s", got[0].ID, got[1].ID)
	}
	if got[0].Read || !got[1].Read {
		t.Fatal("read flags not mapped")
	}
}

func TestMarkAllReadIdempotent(t *testing.T) {
	repo, mock := newNotificationRepo(t)
	ctx := context.Background()

	// First call marks two rows, second call has nothing left to do.
	mock.ExpectExec(`UPDATE notifications`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE notifications`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.MarkAllRead(ctx, "u1")
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}

	n, err = repo.MarkAllRead(ctx, "u1")
	if err != nil {
		t.Fatalf("MarkAllRead second call: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rows on second call, got %d", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	repo, mock := newNotificationRepo(t)

	// The predicate carries id, owner and the unread guard; a mismatched
	// owner simply affects zero rows.
	mock.ExpectExec(`WHERE id = \? AND user_id = \?`).
		WithArgs(true, sqlmock.AnyArg(), "n1", "u1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`WHERE id = \? AND user_id = \?`).
		WithArgs(true, sqlmock.AnyArg(), "n1", "u2", false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.MarkRead(context.Background(), "n1", "u1")
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row affected, got %d", n)
	}

	n, err = repo.MarkRead(context.Background(), "n1", "u2")
	if err != nil {
		t.Fatalf("MarkRead other user: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no rows for another user, got %d", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkReadAlreadyReadIsNoOp(t *testing.T) {
	repo, mock := newNotificationRepo(t)

	mock.ExpectExec(`UPDATE notifications`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.MarkRead(context.Background(), "n1", "u1")
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no rows affected, got %d", n)
	}
}

func TestUnreadNotificationCount(t *testing.T) {
	repo, mock := newNotificationRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WithArgs("u1", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.UnreadCount(context.Background(), "u1")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}
}
