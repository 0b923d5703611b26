package reminder

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stenstromen/todogate/db"
	"github.com/stenstromen/todogate/model"
)

type sent struct {
	to, name string
	titles   []string
}

type fakeNotifier struct {
	sent   []sent
	failTo string
}

func (f *fakeNotifier) SendOverdueReminder(to, userName string, items []model.TodoItem) error {
	s := sent{to: to, name: userName}
	for _, it := range items {
		s.titles = append(s.titles, it.Title)
	}
	f.sent = append(f.sent, s)
	if to == f.failTo {
		return errors.New("mailbox full")
	}
	return nil
}

type failingSource struct{}

func (failingSource) OverdueItems(context.Context, time.Time) ([]model.OverdueItem, error) {
	return nil, errors.New("db down")
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func seed(t *testing.T) *db.Memory {
	t.Helper()
	ctx := context.Background()
	m := db.NewMemory()
	alice := &model.User{UserName: "alice", Email: "a@example.com"}
	bob := &model.User{UserName: "bob", Email: "b@example.com"}
	require.NoError(t, m.CreateUser(ctx, alice))
	require.NoError(t, m.CreateUser(ctx, bob))

	done := day(2)
	for _, it := range []model.TodoItem{
		{UserID: alice.ID, Title: "report", ExpirationDate: day(1)},
		{UserID: alice.ID, Title: "slides", ExpirationDate: day(5)},
		{UserID: alice.ID, Title: "future", ExpirationDate: day(20)},
		{UserID: bob.ID, Title: "budget", ExpirationDate: day(3)},
		{UserID: bob.ID, Title: "done", ExpirationDate: day(1), FinishedDate: &done},
	} {
		it := it
		require.NoError(t, m.CreateItem(ctx, &it))
	}
	return m
}

func TestJobRun(t *testing.T) {
	n := &fakeNotifier{}
	j := NewJob(seed(t), n, quietLogger())
	j.now = func() time.Time { return day(10).Add(9 * time.Hour) }

	require.NoError(t, j.Run(context.Background()))
	assert.Equal(t, []sent{
		{to: "a@example.com", name: "alice", titles: []string{"report", "slides"}},
		{to: "b@example.com", name: "bob", titles: []string{"budget"}},
	}, n.sent)
}

func TestJobRun_NothingOverdue(t *testing.T) {
	n := &fakeNotifier{}
	j := NewJob(seed(t), n, quietLogger())
	j.now = func() time.Time { return day(1) }

	require.NoError(t, j.Run(context.Background()))
	assert.Empty(t, n.sent)
}

func TestJobRun_ContinuesAfterFailure(t *testing.T) {
	n := &fakeNotifier{failTo: "a@example.com"}
	j := NewJob(seed(t), n, quietLogger())
	j.now = func() time.Time { return day(10) }

	err := j.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox full")
	assert.Len(t, n.sent, 2)
}

func TestJobRun_SourceError(t *testing.T) {
	j := NewJob(failingSource{}, &fakeNotifier{}, quietLogger())
	err := j.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestNewScheduler(t *testing.T) {
	j := NewJob(db.NewMemory(), &fakeNotifier{}, quietLogger())

	s, err := NewScheduler("", j, quietLogger())
	require.NoError(t, err)
	assert.Len(t, s.c.Entries(), 1)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	_, err = NewScheduler("not a schedule", j, quietLogger())
	assert.Error(t, err)
}
