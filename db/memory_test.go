package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stenstromen/todogate/model"
)

func TestMemory_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	u := &model.User{UserName: "Hanako", Email: "h@example.com", Password: "hash"}
	require.NoError(t, m.CreateUser(ctx, u))
	assert.NotZero(t, u.ID)

	err := m.CreateUser(ctx, &model.User{Email: "H@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 1, m.UserCount())

	got, err := m.UserByEmail(ctx, "h@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, m.SetTOTPSecret(ctx, u.ID, "S"))
	got, err = m.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "S", got.TOTPSecret)

	require.NoError(t, m.DeleteUser(ctx, u.ID))
	_, err = m.UserByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteUser(ctx, u.ID), ErrNotFound)
}

func TestMemory_Items(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	owner := &model.User{Email: "a@example.com"}
	other := &model.User{Email: "b@example.com"}
	require.NoError(t, m.CreateUser(ctx, owner))
	require.NoError(t, m.CreateUser(ctx, other))

	day := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	late := &model.TodoItem{UserID: owner.ID, Title: "report", Assignee: "Taro", ExpirationDate: day.AddDate(0, 0, -3)}
	soon := &model.TodoItem{UserID: owner.ID, Title: "slides", Assignee: "Hanako", ExpirationDate: day.AddDate(0, 0, 3)}
	require.NoError(t, m.CreateItem(ctx, soon))
	require.NoError(t, m.CreateItem(ctx, late))

	items, err := m.ItemsByOwner(ctx, owner.ID, "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "report", items[0].Title, "ordered by due date")

	items, err = m.ItemsByOwner(ctx, owner.ID, "Hana")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "slides", items[0].Title)

	overdue, err := m.OverdueItems(ctx, day)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "a@example.com", overdue[0].Email)

	assert.ErrorIs(t, m.CompleteItem(ctx, late.ID, other.ID, day), ErrNotFound)
	require.NoError(t, m.CompleteItem(ctx, late.ID, owner.ID, day))
	overdue, err = m.OverdueItems(ctx, day)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	assert.ErrorIs(t, m.DeleteItem(ctx, soon.ID, other.ID), ErrNotFound)

	require.NoError(t, m.DeleteUser(ctx, owner.ID))
	_, err = m.ItemByID(ctx, soon.ID)
	assert.ErrorIs(t, err, ErrNotFound, "items follow their owner")
}
