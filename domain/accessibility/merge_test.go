package accessibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeTask_NoExistingRecord_ReturnsExtractedClone(t *testing.T) {
	extracted := &Task{ID: "task-1", Name: "Docs", URL: "https://example.com", Standard: StandardWCAG2AA}

	merged := MergeTask(extracted, nil)

	require.NotSame(t, extracted, merged)
	assert.Equal(t, extracted, merged)
}

func TestMergeTask_IdentityFieldsFollowExtraction(t *testing.T) {
	extracted := &Task{ID: "task-1", Name: "Renamed", URL: "https://example.com/v2", Standard: StandardWCAG2AAA}
	existing := &Task{ID: "task-1", Name: "Docs", URL: "https://example.com", Standard: StandardWCAG2AA}

	merged := MergeTask(extracted, existing)

	assert.Equal(t, "Renamed", merged.Name)
	assert.Equal(t, "https://example.com/v2", merged.URL)
	assert.Equal(t, StandardWCAG2AAA, merged.Standard)
}

func TestMergeTask_ConfigPreservedWhenExtractionOmitsIt(t *testing.T) {
	extracted := &Task{ID: "task-1", Name: "Docs", URL: "https://example.com", Standard: StandardWCAG2AA}
	existing := &Task{
		ID:           "task-1",
		Name:         "Docs",
		URL:          "https://example.com",
		Standard:     StandardWCAG2AA,
		Ignore:       []string{"rule-a"},
		Timeout:      45000,
		Wait:         2000,
		Actions:      []string{"wait for 500"},
		Username:     "user",
		Password:     "secret",
		Headers:      map[string]string{"X-Token": "abc"},
		HideElements: ".ads",
	}

	merged := MergeTask(extracted, existing)

	// The rendered view carries no audit configuration; the durable
	// record must not lose it.
	assert.Equal(t, []string{"rule-a"}, merged.Ignore)
	assert.Equal(t, int64(45000), merged.Timeout)
	assert.Equal(t, int64(2000), merged.Wait)
	assert.Equal(t, []string{"wait for 500"}, merged.Actions)
	assert.Equal(t, "user", merged.Username)
	assert.Equal(t, "secret", merged.Password)
	assert.Equal(t, map[string]string{"X-Token": "abc"}, merged.Headers)
	assert.Equal(t, ".ads", merged.HideElements)
}

func TestMergeTask_LastResultPreservedWhenExtractionHasNone(t *testing.T) {
	summary := &ResultSummary{ID: "result-1", Date: time.Now(), Count: Count{Error: 3}}
	extracted := &Task{ID: "task-1", Name: "Docs", URL: "https://example.com", Standard: StandardWCAG2AA}
	existing := &Task{ID: "task-1", LastResult: summary}

	merged := MergeTask(extracted, existing)

	require.NotNil(t, merged.LastResult)
	assert.Equal(t, "result-1", merged.LastResult.ID)
	assert.Equal(t, 3, merged.LastResult.Count.Error)
}

func TestMergeTask_LastResultFollowsExtractionWhenPresent(t *testing.T) {
	extracted := &Task{
		ID:         "task-1",
		LastResult: &ResultSummary{ID: "result-2", Count: Count{Warning: 1}},
	}
	existing := &Task{
		ID:         "task-1",
		LastResult: &ResultSummary{ID: "result-1", Count: Count{Error: 3}},
	}

	merged := MergeTask(extracted, existing)

	require.NotNil(t, merged.LastResult)
	assert.Equal(t, "result-2", merged.LastResult.ID)
}

func TestMergeTask_ConfigFollowsExtractionWhenCarried(t *testing.T) {
	extracted := &Task{ID: "task-1", Timeout: 60000, Ignore: []string{"rule-b"}}
	existing := &Task{ID: "task-1", Timeout: 30000, Ignore: []string{"rule-a"}}

	merged := MergeTask(extracted, existing)

	assert.Equal(t, int64(60000), merged.Timeout)
	assert.Equal(t, []string{"rule-b"}, merged.Ignore)
}

func TestMergeTask_DoesNotMutateInputs(t *testing.T) {
	extracted := &Task{ID: "task-1", Name: "Renamed"}
	existing := &Task{ID: "task-1", Name: "Docs", Ignore: []string{"rule-a"}}

	merged := MergeTask(extracted, existing)
	merged.Ignore = append(merged.Ignore, "rule-b")
	merged.Name = "mutated"

	assert.Equal(t, "Renamed", extracted.Name)
	assert.Equal(t, "Docs", existing.Name)
	assert.Equal(t, []string{"rule-a"}, existing.Ignore)
}
