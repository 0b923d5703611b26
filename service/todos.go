package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stenstromen/todogate/db"
	"github.com/stenstromen/todogate/model"
)

const dateLayout = "2006-01-02"

type TodoStore interface {
	CreateItem(ctx context.Context, it *model.TodoItem) error
	ItemsByOwner(ctx context.Context, owner int64, search string) ([]model.TodoItem, error)
	ItemByID(ctx context.Context, id int64) (*model.TodoItem, error)
	UpdateItem(ctx context.Context, it *model.TodoItem) error
	CompleteItem(ctx context.Context, id, owner int64, day time.Time) error
	DeleteItem(ctx context.Context, id, owner int64) error
}

// Todos manages the signed-in user's to-do items. Items of other users
// are reported as missing.
type Todos struct {
	store TodoStore
	now   func() time.Time
}

func NewTodos(store TodoStore) *Todos {
	return &Todos{store: store, now: time.Now}
}

func (s *Todos) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the date used for new items and overdue highlighting.
func (s *Todos) Today() time.Time {
	return s.today()
}

func (s *Todos) List(ctx context.Context, owner int64, search string) ([]model.TodoItem, Outcome) {
	items, err := s.store.ItemsByOwner(ctx, owner, search)
	if err != nil {
		return nil, Fail(fmt.Errorf("list items of user %d: %w", owner, err))
	}
	return items, Success()
}

func (s *Todos) Get(ctx context.Context, owner int64, itemID string) (*model.TodoItem, Outcome) {
	id, err := parseID(itemID)
	if err != nil {
		return nil, Reject(model.MsgItemNotFound)
	}
	it, err := s.store.ItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, Reject(model.MsgItemNotFound)
		}
		return nil, Fail(fmt.Errorf("get item %d: %w", id, err))
	}
	if it.UserID != owner {
		return nil, Reject(model.MsgItemNotFound)
	}
	return it, Success()
}

func (s *Todos) Add(ctx context.Context, owner int64, f model.TodoForm) (*model.TodoItem, Outcome) {
	due, err := time.Parse(dateLayout, f.ExpirationDate)
	if err != nil {
		return nil, Reject(model.MsgInvalidRequest)
	}
	today := s.today()
	it := &model.TodoItem{
		UserID:           owner,
		Title:            f.Title,
		Assignee:         f.Assignee,
		RegistrationDate: today,
		ExpirationDate:   due,
	}
	if f.Finished {
		it.FinishedDate = &today
	}
	if err := s.store.CreateItem(ctx, it); err != nil {
		return nil, Fail(fmt.Errorf("create item for user %d: %w", owner, err))
	}
	return it, Success()
}

func (s *Todos) Update(ctx context.Context, owner int64, f model.TodoForm) Outcome {
	it, out := s.Get(ctx, owner, f.ItemID)
	if !out.OK() {
		return out
	}
	due, err := time.Parse(dateLayout, f.ExpirationDate)
	if err != nil {
		return Reject(model.MsgInvalidRequest)
	}

	it.Title = f.Title
	it.Assignee = f.Assignee
	it.ExpirationDate = due
	switch {
	case !f.Finished:
		it.FinishedDate = nil
	case it.FinishedDate == nil:
		today := s.today()
		it.FinishedDate = &today
	}

	if err := s.store.UpdateItem(ctx, it); err != nil {
		return s.mutate(fmt.Errorf("update item %d: %w", it.ID, err))
	}
	return Success()
}

func (s *Todos) Complete(ctx context.Context, owner int64, f model.ItemForm) Outcome {
	id, err := parseID(f.ItemID)
	if err != nil {
		return Reject(model.MsgItemNotFound)
	}
	if err := s.store.CompleteItem(ctx, id, owner, s.today()); err != nil {
		return s.mutate(fmt.Errorf("complete item %d: %w", id, err))
	}
	return Success()
}

func (s *Todos) Delete(ctx context.Context, owner int64, f model.ItemForm) Outcome {
	id, err := parseID(f.ItemID)
	if err != nil {
		return Reject(model.MsgItemNotFound)
	}
	if err := s.store.DeleteItem(ctx, id, owner); err != nil {
		return s.mutate(fmt.Errorf("delete item %d: %w", id, err))
	}
	return Success()
}

// mutate maps a failed write. The failure is reported at the caller.
func (s *Todos) mutate(err error) Outcome {
	if errors.Is(err, db.ErrNotFound) {
		return Reject(model.MsgItemNotFound)
	}
	out := Fail(err)
	out.At = CallSite(2)
	return out
}
