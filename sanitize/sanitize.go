// Package sanitize neutralizes markup in user-submitted form input before it
// is stored or echoed back into a page.
//
// Output is plain text: tags are stripped and entities decoded, so values
// must still be rendered through html/template, which escapes them.
package sanitize

import (
	"html"
	"net/url"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/stenstromen/todogate/model"
)

var policy = bluemonday.StrictPolicy()

// String returns s trimmed, valid UTF-8 and free of markup.
func String(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = policy.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}

// Values sanitizes every value of every field. Fields named in skip are
// copied unchanged.
func Values(v url.Values, skip ...string) url.Values {
	out := make(url.Values, len(v))
	in := make(map[string]any, len(v))
	for key, vals := range v {
		if slices.Contains(skip, key) {
			out[key] = slices.Clone(vals)
			continue
		}
		in[key] = []string(vals)
	}
	for key, vals := range Map(in) {
		out[key] = vals.([]string)
	}
	return out
}

// Map sanitizes nested input. String leaves are cleaned, maps and slices are
// walked, any other value is returned as is.
func Map(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[String(k)] = value(v)
	}
	return out
}

func value(v any) any {
	switch x := v.(type) {
	case string:
		return String(x)
	case []string:
		cp := make([]string, len(x))
		for i, s := range x {
			cp[i] = String(s)
		}
		return cp
	case []any:
		cp := make([]any, len(x))
		for i, e := range x {
			cp[i] = value(e)
		}
		return cp
	case map[string]any:
		return Map(x)
	case map[string]string:
		cp := make(map[string]string, len(x))
		for k, s := range x {
			cp[String(k)] = String(s)
		}
		return cp
	default:
		return v
	}
}

// Fill cleans an echo map before it goes into the session.
func Fill(f model.Fill) model.Fill {
	if f == nil {
		return nil
	}
	out := make(model.Fill, len(f))
	for k, v := range f {
		out[String(k)] = String(v)
	}
	return out
}
