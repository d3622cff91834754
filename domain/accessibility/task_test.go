package accessibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyFields_WhitelistedKeys_Applied(t *testing.T) {
	task := &Task{}

	task.ApplyFields(map[string]any{
		"name":         "Docs",
		"url":          "https://example.com/docs",
		"standard":     "WCAG2AAA",
		"ignore":       []string{"rule-a", "rule-b"},
		"timeout":      "45000",
		"wait":         float64(2000),
		"actions":      []any{"click element #start"},
		"username":     "user",
		"password":     "secret",
		"headers":      map[string]any{"X-Token": "abc"},
		"hideElements": ".ads",
	})

	assert.Equal(t, "Docs", task.Name)
	assert.Equal(t, "https://example.com/docs", task.URL)
	assert.Equal(t, StandardWCAG2AAA, task.Standard)
	assert.Equal(t, []string{"rule-a", "rule-b"}, task.Ignore)
	assert.Equal(t, int64(45000), task.Timeout)
	assert.Equal(t, int64(2000), task.Wait)
	assert.Equal(t, []string{"click element #start"}, task.Actions)
	assert.Equal(t, "user", task.Username)
	assert.Equal(t, "secret", task.Password)
	assert.Equal(t, map[string]string{"X-Token": "abc"}, task.Headers)
	assert.Equal(t, ".ads", task.HideElements)
}

func TestApplyFields_UnknownKeys_SilentlyDropped(t *testing.T) {
	task := &Task{Name: "Docs"}

	task.ApplyFields(map[string]any{
		"id":         "attacker-chosen",
		"lastResult": map[string]any{"id": "fake"},
		"bogus":      true,
	})

	assert.Empty(t, task.ID)
	assert.Nil(t, task.LastResult)
	assert.Equal(t, "Docs", task.Name)
}

func TestApplyFields_AbsentKeys_LeaveFieldsUntouched(t *testing.T) {
	task := &Task{Name: "Docs", URL: "https://example.com", Timeout: 30000}

	task.ApplyFields(map[string]any{"name": "Renamed"})

	assert.Equal(t, "Renamed", task.Name)
	assert.Equal(t, "https://example.com", task.URL)
	assert.Equal(t, int64(30000), task.Timeout)
}

func TestApplyFields_EmptyNumericString_ZeroesField(t *testing.T) {
	task := &Task{Timeout: 30000}

	task.ApplyFields(map[string]any{"timeout": ""})

	assert.Equal(t, int64(0), task.Timeout)
}

func TestApplyFields_MalformedValues_Ignored(t *testing.T) {
	task := &Task{Timeout: 30000, Ignore: []string{"rule-a"}}

	task.ApplyFields(map[string]any{
		"timeout": "not-a-number",
		"ignore":  []any{1, 2},
	})

	assert.Equal(t, int64(30000), task.Timeout)
	assert.Equal(t, []string{"rule-a"}, task.Ignore)
}

func TestValidStandard(t *testing.T) {
	assert.True(t, ValidStandard(StandardSection508))
	assert.True(t, ValidStandard(StandardWCAG2A))
	assert.True(t, ValidStandard(StandardWCAG2AA))
	assert.True(t, ValidStandard(StandardWCAG2AAA))
	assert.False(t, ValidStandard(Standard("WCAG3")))
	assert.False(t, ValidStandard(Standard("")))
}

func TestTaskClone_DeepCopy(t *testing.T) {
	original := &Task{
		ID:         "task-1",
		Ignore:     []string{"rule-a"},
		Actions:    []string{"wait for 500"},
		Headers:    map[string]string{"X-Token": "abc"},
		LastResult: &ResultSummary{ID: "result-1", Date: time.Now()},
	}

	clone := original.Clone()
	clone.Ignore[0] = "mutated"
	clone.Actions[0] = "mutated"
	clone.Headers["X-Token"] = "mutated"
	clone.LastResult.ID = "mutated"

	assert.Equal(t, "rule-a", original.Ignore[0])
	assert.Equal(t, "wait for 500", original.Actions[0])
	assert.Equal(t, "abc", original.Headers["X-Token"])
	assert.Equal(t, "result-1", original.LastResult.ID)
}

func TestTaskClone_Nil(t *testing.T) {
	var task *Task
	assert.Nil(t, task.Clone())
}
