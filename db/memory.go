package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stenstromen/todogate/model"
)

// Memory is an in-process store with the same behaviour as DB. Data is lost
// on restart.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]model.User
	items  map[int64]model.TodoItem
}

func NewMemory() *Memory {
	return &Memory{
		users: map[int64]model.User{},
		items: map[int64]model.TodoItem{},
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) CreateUser(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	u.ID = m.id()
	u.CreatedAt = time.Now().UTC()
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UserByID(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	for itemID, it := range m.items {
		if it.UserID == id {
			delete(m.items, itemID)
		}
	}
	return nil
}

func (m *Memory) SetTOTPSecret(ctx context.Context, id int64, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.TOTPSecret = secret
	m.users[id] = u
	return nil
}

// UserCount is used by tests to assert that nothing was written.
func (m *Memory) UserCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *Memory) CreateItem(ctx context.Context, it *model.TodoItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[it.UserID]; !ok {
		return ErrNotFound
	}
	it.ID = m.id()
	m.items[it.ID] = *it
	return nil
}

func (m *Memory) ItemsByOwner(ctx context.Context, owner int64, search string) ([]model.TodoItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TodoItem
	for _, it := range m.items {
		if it.UserID != owner {
			continue
		}
		if search != "" && !strings.Contains(it.Title, search) && !strings.Contains(it.Assignee, search) {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpirationDate.Equal(out[j].ExpirationDate) {
			return out[i].ExpirationDate.Before(out[j].ExpirationDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) ItemByID(ctx context.Context, id int64) (*model.TodoItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (m *Memory) UpdateItem(ctx context.Context, it *model.TodoItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[it.ID]
	if !ok || cur.UserID != it.UserID {
		return ErrNotFound
	}
	cur.Title = it.Title
	cur.Assignee = it.Assignee
	cur.ExpirationDate = it.ExpirationDate
	cur.FinishedDate = it.FinishedDate
	m.items[it.ID] = cur
	return nil
}

func (m *Memory) CompleteItem(ctx context.Context, id, owner int64, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[id]
	if !ok || cur.UserID != owner {
		return ErrNotFound
	}
	cur.FinishedDate = &day
	m.items[id] = cur
	return nil
}

func (m *Memory) DeleteItem(ctx context.Context, id, owner int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[id]
	if !ok || cur.UserID != owner {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *Memory) OverdueItems(ctx context.Context, day time.Time) ([]model.OverdueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.OverdueItem
	for _, it := range m.items {
		if it.FinishedDate != nil || !it.ExpirationDate.Before(day) {
			continue
		}
		u := m.users[it.UserID]
		out = append(out, model.OverdueItem{Item: it, Email: u.Email, UserName: u.UserName})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Item.UserID != out[j].Item.UserID {
			return out[i].Item.UserID < out[j].Item.UserID
		}
		return out[i].Item.ExpirationDate.Before(out[j].Item.ExpirationDate)
	})
	return out, nil
}
