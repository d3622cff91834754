package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction_RecognizedForms(t *testing.T) {
	tests := []struct {
		name   string
		action string
	}{
		{"click element", "click element #login-button"},
		{"set field", "set field input[name=q] to accessibility"},
		{"wait for element visible", "wait for element .results to be visible"},
		{"wait for url", "wait for url to be https://example.com/done"},
		{"wait for duration", "wait for 500"},
		{"leading whitespace trimmed", "  click element #ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseAction(tt.action)
			require.NoError(t, err)
			assert.NotNil(t, parsed)
		})
	}
}

func TestParseAction_MalformedForms(t *testing.T) {
	tests := []struct {
		name   string
		action string
	}{
		{"unknown verb", "scroll to bottom"},
		{"set field without value", "set field input[name=q]"},
		{"wait element without suffix", "wait for element .results"},
		{"wait with non-numeric duration", "wait for a while"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAction(tt.action)
			assert.Error(t, err)
		})
	}
}

func TestParseActions_PreservesOrder(t *testing.T) {
	parsed, err := ParseActions([]string{
		"set field input[name=user] to admin",
		"click element #submit",
		"wait for 250",
	})

	require.NoError(t, err)
	assert.Len(t, parsed, 3)
}

func TestParseActions_StopsAtFirstMalformedAction(t *testing.T) {
	_, err := ParseActions([]string{
		"click element #submit",
		"do something impossible",
	})

	assert.Error(t, err)
}
