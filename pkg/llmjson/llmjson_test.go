package llmjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type triageReply struct {
	UrgencyLevel string   `json:"urgencyLevel"`
	RedFlags     []string `json:"redFlags"`
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "bare object", input: `{"a":1}`, want: `{"a":1}`, ok: true},
		{name: "json fence", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`, ok: true},
		{name: "plain fence", input: "```\n{\"a\":1}\n```", want: `{"a":1}`, ok: true},
		{name: "surrounding prose", input: "Here you go: {\"a\":{\"b\":2}} hope it helps", want: `{"a":{"b":2}}`, ok: true},
		{name: "no braces", input: "The patient should rest.", ok: false},
		{name: "closing before opening", input: "} nothing {", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("decodes fenced reply", func(t *testing.T) {
		var reply triageReply
		err := Decode("```json\n{\"urgencyLevel\":\"urgent\",\"redFlags\":[\"fever\"]}\n```", &reply)
		require.NoError(t, err)
		assert.Equal(t, "urgent", reply.UrgencyLevel)
		assert.Equal(t, []string{"fever"}, reply.RedFlags)
	})

	t.Run("no object", func(t *testing.T) {
		var reply triageReply
		assert.ErrorIs(t, Decode("sorry, I cannot help", &reply), ErrNoJSON)
	})

	t.Run("malformed object", func(t *testing.T) {
		var reply triageReply
		err := Decode(`{"urgencyLevel": }`, &reply)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoJSON)
	})
}
