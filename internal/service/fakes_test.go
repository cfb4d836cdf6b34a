package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/opsdesk/opsdesk/internal/cache"
	"github.com/opsdesk/opsdesk/internal/models"
	"github.com/opsdesk/opsdesk/internal/repository"
)

// In-memory repository fakes. Each records the mutations it receives so
// tests can assert on call order and arguments.

type fakeChatRepo struct {
	chats        map[string]*models.Chat
	messages     map[string][]*models.Message
	participants map[string][]*models.ChatParticipant
	byClient     map[string]*models.Chat

	insertCalls   int
	touchCalls    int
	markReadCalls []struct{ chatID, userID string }
	touchErr      error
	createErr     error
	nextID        int
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chats:        map[string]*models.Chat{},
		messages:     map[string][]*models.Message{},
		participants: map[string][]*models.ChatParticipant{},
		byClient:     map[string]*models.Chat{},
	}
}

func (f *fakeChatRepo) id() string {
	f.nextID++
	return "id-" + strconv.Itoa(f.nextID)
}

func (f *fakeChatRepo) List(_ context.Context, _ string) ([]*models.Chat, error) {
	out := []*models.Chat{}
	for _, c := range f.chats {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeChatRepo) ListByParticipant(_ context.Context, userID string) ([]*models.Chat, error) {
	out := []*models.Chat{}
	for chatID, parts := range f.participants {
		for _, p := range parts {
			if p.UserID == userID {
				out = append(out, f.chats[chatID])
			}
		}
	}
	return out, nil
}

func (f *fakeChatRepo) GetByID(_ context.Context, id string) (*models.Chat, error) {
	c, ok := f.chats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeChatRepo) FindByClient(_ context.Context, clientID string) (*models.Chat, error) {
	c, ok := f.byClient[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeChatRepo) Create(_ context.Context, chat *models.Chat) error {
	if f.createErr != nil {
		return f.createErr
	}
	chat.ID = f.id()
	f.chats[chat.ID] = chat
	return nil
}

func (f *fakeChatRepo) AddParticipant(_ context.Context, chatID, userID string) error {
	f.participants[chatID] = append(f.participants[chatID], &models.ChatParticipant{
		ID: f.id(), ChatID: chatID, UserID: userID,
	})
	return nil
}

func (f *fakeChatRepo) ListParticipants(_ context.Context, chatID string) ([]*models.ChatParticipant, error) {
	return f.participants[chatID], nil
}

func (f *fakeChatRepo) GetMessages(_ context.Context, chatID string) ([]*models.Message, error) {
	out := []*models.Message{}
	out = append(out, f.messages[chatID]...)
	return out, nil
}

func (f *fakeChatRepo) InsertMessage(_ context.Context, msg *models.Message) error {
	f.insertCalls++
	msg.ID = f.id()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	f.messages[msg.ChatID] = append(f.messages[msg.ChatID], msg)
	return nil
}

func (f *fakeChatRepo) TouchChat(_ context.Context, chatID string) error {
	f.touchCalls++
	if f.touchErr != nil {
		return f.touchErr
	}
	if c, ok := f.chats[chatID]; ok {
		c.Status = models.ChatStatusActive
		c.LastActivity = time.Now()
	}
	return nil
}

func (f *fakeChatRepo) MarkRead(_ context.Context, chatID, userID string) (int64, error) {
	f.markReadCalls = append(f.markReadCalls, struct{ chatID, userID string }{chatID, userID})
	var n int64
	for _, m := range f.messages[chatID] {
		if !m.Read && m.SenderID != userID {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeChatRepo) CountUnreadInChat(_ context.Context, chatID, userID string) (int, error) {
	n := 0
	for _, m := range f.messages[chatID] {
		if !m.Read && m.SenderID != userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeChatRepo) UnreadCount(_ context.Context, userID string) (int, error) {
	n := 0
	for chatID, parts := range f.participants {
		member := false
		for _, p := range parts {
			if p.UserID == userID {
				member = true
			}
		}
		if !member {
			continue
		}
		for _, m := range f.messages[chatID] {
			if !m.Read && m.SenderID != userID {
				n++
			}
		}
	}
	return n, nil
}

type fakeNotificationRepo struct {
	items  map[string]*models.Notification
	order  []string
	nextID int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{items: map[string]*models.Notification{}}
}

func (f *fakeNotificationRepo) List(_ context.Context, userID string) ([]*models.Notification, error) {
	out := []*models.Notification{}
	for i := len(f.order) - 1; i >= 0; i-- {
		if n := f.items[f.order[i]]; n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) Insert(_ context.Context, n *models.Notification) error {
	f.nextID++
	n.ID = fmt.Sprintf("n-%d", f.nextID)
	f.items[n.ID] = n
	f.order = append(f.order, n.ID)
	return nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id, userID string) (int64, error) {
	n, ok := f.items[id]
	if !ok || n.UserID != userID || n.Read {
		return 0, nil
	}
	n.Read = true
	return 1, nil
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var affected int64
	for _, n := range f.items {
		if n.UserID == userID && !n.Read {
			n.Read = true
			affected++
		}
	}
	return affected, nil
}

func (f *fakeNotificationRepo) UnreadCount(_ context.Context, userID string) (int, error) {
	n := 0
	for _, item := range f.items {
		if item.UserID == userID && !item.Read {
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*models.User{}, byID: map[string]*models.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	f.nextID++
	u.ID = fmt.Sprintf("u-%d", f.nextID)
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, u *models.User) error {
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) List(_ context.Context) ([]*models.User, error) {
	out := []*models.User{}
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

type fakeDirectoryRepo struct {
	clients     map[string]*models.Client // by client id
	byUser      map[string]*models.Client
	technicians map[string]*models.Technician // by user id
	nextID      int
}

func newFakeDirectoryRepo() *fakeDirectoryRepo {
	return &fakeDirectoryRepo{
		clients:     map[string]*models.Client{},
		byUser:      map[string]*models.Client{},
		technicians: map[string]*models.Technician{},
	}
}

func (f *fakeDirectoryRepo) ListClients(_ context.Context) ([]*models.Client, error) {
	out := []*models.Client{}
	for _, c := range f.clients {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeDirectoryRepo) GetClientByUserID(_ context.Context, userID string) (*models.Client, error) {
	c, ok := f.byUser[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeDirectoryRepo) GetClient(_ context.Context, id string) (*models.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeDirectoryRepo) CreateClient(_ context.Context, c *models.Client) error {
	f.nextID++
	c.ID = fmt.Sprintf("c-%d", f.nextID)
	f.clients[c.ID] = c
	f.byUser[c.UserID] = c
	return nil
}

func (f *fakeDirectoryRepo) ListTechnicians(_ context.Context) ([]*models.Technician, error) {
	out := []*models.Technician{}
	for _, t := range f.technicians {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeDirectoryRepo) GetTechnicianByUserID(_ context.Context, userID string) (*models.Technician, error) {
	t, ok := f.technicians[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeDirectoryRepo) CreateTechnician(_ context.Context, t *models.Technician) error {
	f.nextID++
	t.ID = fmt.Sprintf("t-%d", f.nextID)
	f.technicians[t.UserID] = t
	return nil
}

type fakeTicketRepo struct {
	tickets map[string]*models.Ticket
	nextID  int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*models.Ticket{}}
}

func (f *fakeTicketRepo) List(_ context.Context, clientID string) ([]*models.Ticket, error) {
	out := []*models.Ticket{}
	for _, t := range f.tickets {
		if clientID == "" || t.ClientID == clientID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*models.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTicketRepo) Create(_ context.Context, t *models.Ticket) error {
	f.nextID++
	t.ID = fmt.Sprintf("tk-%d", f.nextID)
	f.tickets[t.ID] = t
	return nil
}

func (f *fakeTicketRepo) UpdateStatus(_ context.Context, id, status string) (*models.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.Status = status
	return t, nil
}

// recordingCache captures cache traffic so tests can assert that every
// counter-changing mutation invalidates the affected user's key.
type recordingCache struct {
	invalidations []string
	sets          []string
}

func cacheKey(surface cache.Surface, userID string) string {
	return string(surface) + ":" + userID
}

func (r *recordingCache) Get(context.Context, cache.Surface, string) (int, bool) {
	return 0, false
}

func (r *recordingCache) Set(_ context.Context, surface cache.Surface, userID string, _ int) {
	r.sets = append(r.sets, cacheKey(surface, userID))
}

func (r *recordingCache) Invalidate(_ context.Context, surface cache.Surface, userID string) {
	r.invalidations = append(r.invalidations, cacheKey(surface, userID))
}

func (f *fakeTicketRepo) Assign(_ context.Context, id, technicianID string) error {
	t, ok := f.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.TechnicianID = &technicianID
	t.Status = models.TicketStatusInProgress
	return nil
}
