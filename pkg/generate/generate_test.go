package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholderEchoesQuestion(t *testing.T) {
	reply, err := Placeholder{}.Generate(context.Background(), "where is my order?")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(reply, "[AUTO-REPLY]"))
	assert.Contains(t, reply, "where is my order?")
}

func TestPlaceholderTruncatesLongQuestions(t *testing.T) {
	long := strings.Repeat("x", 200)
	reply, err := Placeholder{}.Generate(context.Background(), long)
	require.NoError(t, err)

	assert.NotContains(t, reply, strings.Repeat("x", 51))
	assert.Contains(t, reply, strings.Repeat("x", 50))
}

func TestTruncateIsRuneSafe(t *testing.T) {
	assert.Equal(t, "привет", truncate("привет", 50))
	assert.Equal(t, "дл", truncate("длинный", 2))
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, defaultBaseURL, normalizeBaseURL(""))
	assert.Equal(t, "https://proxy.example.com", normalizeBaseURL("https://proxy.example.com/"))
}
