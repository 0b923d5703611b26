package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTodoItemOverdue(t *testing.T) {
	day := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	finished := day

	tests := []struct {
		name string
		item TodoItem
		want bool
	}{
		{"due yesterday", TodoItem{ExpirationDate: day.AddDate(0, 0, -1)}, true},
		{"due today", TodoItem{ExpirationDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)}, false},
		{"due tomorrow", TodoItem{ExpirationDate: day.AddDate(0, 0, 1)}, false},
		{"finished late", TodoItem{ExpirationDate: day.AddDate(0, 0, -5), FinishedDate: &finished}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.Overdue(day))
		})
	}
}

func TestUserTOTPEnabled(t *testing.T) {
	u := &User{}
	assert.False(t, u.TOTPEnabled())
	u.TOTPSecret = "JBSWY3DPEHPK3PXP"
	assert.True(t, u.TOTPEnabled())
}

func TestMessagesMsg(t *testing.T) {
	m := Messages{MsgKey: "hello", "email": "bad"}
	assert.Equal(t, "hello", m.Msg())
	assert.Equal(t, "", Messages(nil).Msg())
}
