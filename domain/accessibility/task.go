// Package accessibility holds the core task and result records of the
// audit dashboard, plus the merge rules that keep the ephemeral and
// durable views of them consistent.
package accessibility

import (
	"strconv"
	"time"
)

// Standard identifies the rule-set variant an audit applies.
type Standard string

const (
	StandardSection508 Standard = "Section508"
	StandardWCAG2A     Standard = "WCAG2A"
	StandardWCAG2AA    Standard = "WCAG2AA"
	StandardWCAG2AAA   Standard = "WCAG2AAA"
)

// DefaultStandard is applied when a task is created without one.
const DefaultStandard = StandardWCAG2AA

// Standards lists every supported rule-set variant.
var Standards = []Standard{
	StandardSection508,
	StandardWCAG2A,
	StandardWCAG2AA,
	StandardWCAG2AAA,
}

// ValidStandard reports whether s names a supported rule-set variant.
func ValidStandard(s Standard) bool {
	for _, known := range Standards {
		if s == known {
			return true
		}
	}
	return false
}

// ResultSummary is the denormalized cache of a task's most recent result.
// It is not a source of truth; the owning Result record is.
type ResultSummary struct {
	ID    string    `json:"id"`
	Date  time.Time `json:"date"`
	Count Count     `json:"count"`
}

// Task is a named, persistent definition of a URL plus audit configuration.
type Task struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	URL          string            `json:"url"`
	Standard     Standard          `json:"standard"`
	Ignore       []string          `json:"ignore,omitempty"`
	Timeout      int64             `json:"timeout,omitempty"` // milliseconds
	Wait         int64             `json:"wait,omitempty"`    // milliseconds
	Actions      []string          `json:"actions,omitempty"`
	Username     string            `json:"username,omitempty"`
	Password     string            `json:"password,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	HideElements string            `json:"hideElements,omitempty"`
	LastResult   *ResultSummary    `json:"last_result,omitempty"`
}

// Clone returns a deep copy of the task. Stores hand out clones so callers
// can never mutate a stored record in place.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Ignore = append([]string(nil), t.Ignore...)
	cp.Actions = append([]string(nil), t.Actions...)
	if t.Headers != nil {
		cp.Headers = make(map[string]string, len(t.Headers))
		for k, v := range t.Headers {
			cp.Headers[k] = v
		}
	}
	if t.LastResult != nil {
		lr := *t.LastResult
		cp.LastResult = &lr
	}
	return &cp
}

// EditableFields is the explicit whitelist of field names an edit may
// touch. Keys outside this list are silently dropped, never errors.
var EditableFields = []string{
	"name",
	"url",
	"standard",
	"ignore",
	"timeout",
	"wait",
	"actions",
	"username",
	"password",
	"headers",
	"hideElements",
}

// ApplyFields merges the whitelisted keys of fields into the task.
// Values arrive as JSON-decoded or form-decoded data, so numbers may be
// float64, int64 or numeric strings; lists may be []string or []any.
func (t *Task) ApplyFields(fields map[string]any) {
	for _, key := range EditableFields {
		value, ok := fields[key]
		if !ok {
			continue
		}
		switch key {
		case "name":
			if s, ok := asString(value); ok {
				t.Name = s
			}
		case "url":
			if s, ok := asString(value); ok {
				t.URL = s
			}
		case "standard":
			if s, ok := asString(value); ok {
				t.Standard = Standard(s)
			}
		case "ignore":
			if list, ok := asStringSlice(value); ok {
				t.Ignore = list
			}
		case "timeout":
			if n, ok := asInt64(value); ok {
				t.Timeout = n
			}
		case "wait":
			if n, ok := asInt64(value); ok {
				t.Wait = n
			}
		case "actions":
			if list, ok := asStringSlice(value); ok {
				t.Actions = list
			}
		case "username":
			if s, ok := asString(value); ok {
				t.Username = s
			}
		case "password":
			if s, ok := asString(value); ok {
				t.Password = s
			}
		case "headers":
			if m, ok := asStringMap(value); ok {
				t.Headers = m
			}
		case "hideElements":
			if s, ok := asString(value); ok {
				t.HideElements = s
			}
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		if n == "" {
			return 0, true
		}
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func asStringSlice(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func asStringMap(v any) (map[string]string, bool) {
	switch m := v.(type) {
	case map[string]string:
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, item := range m {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}
