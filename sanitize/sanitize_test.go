package sanitize

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stenstromen/todogate/model"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Alice", "Alice"},
		{"trim", "  Alice \n", "Alice"},
		{"tags stripped", "<b>Bob</b>", "Bob"},
		{"ampersand kept as text", "Tom & Jerry", "Tom & Jerry"},
		{"attribute injection", `"><img src=x onerror=alert(1)>`, `">`},
		{"invalid utf8", "a\xffb", "ab"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.in))
		})
	}
}

func TestString_ScriptRemoved(t *testing.T) {
	got := String("<script>alert('x')</script>Hi")
	assert.NotContains(t, got, "<script")
	assert.Contains(t, got, "Hi")
}

func TestValues_SkipsSecrets(t *testing.T) {
	in := url.Values{
		"email":    {" <i>a@example.com</i> "},
		"password": {" <p>ass</p> "},
		"tags":     {"<b>x</b>", "y"},
	}

	out := Values(in, "password")

	assert.Equal(t, "a@example.com", out.Get("email"))
	assert.Equal(t, " <p>ass</p> ", out.Get("password"))
	assert.Equal(t, []string{"x", "y"}, out["tags"])
	// input untouched
	assert.Equal(t, " <i>a@example.com</i> ", in.Get("email"))
}

func TestMap_Nested(t *testing.T) {
	in := map[string]any{
		"name": "<b>Ann</b>",
		"age":  42,
		"list": []any{"<i>a</i>", 1, map[string]any{"deep": "<u>d</u>"}},
		"strs": []string{"<s>s</s>"},
		"flat": map[string]string{"k": "<em>v</em>"},
	}

	out := Map(in)

	assert.Equal(t, "Ann", out["name"])
	assert.Equal(t, 42, out["age"])
	list, ok := out["list"].([]any)
	require.True(t, ok)
	assert.Equal(t, "a", list[0])
	assert.Equal(t, 1, list[1])
	assert.Equal(t, map[string]any{"deep": "d"}, list[2])
	assert.Equal(t, []string{"s"}, out["strs"])
	assert.Equal(t, map[string]string{"k": "v"}, out["flat"])
}

func TestFill(t *testing.T) {
	assert.Nil(t, Fill(nil))
	assert.Equal(t, model.Fill{"title": "Buy milk"}, Fill(model.Fill{"title": "<b>Buy milk</b>"}))
}
