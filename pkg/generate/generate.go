// Package generate produces candidate reply text for inbound questions.
// The relay core treats the text as an opaque payload; swapping the
// generation strategy never touches relay state.
package generate

import (
	"context"
	"fmt"
)

// Generator produces a candidate reply for a user question.
type Generator interface {
	Generate(ctx context.Context, question string) (string, error)
}

// Placeholder is the default generator: a canned acknowledgment that
// stands in for any real generation strategy.
type Placeholder struct{}

func (Placeholder) Generate(_ context.Context, question string) (string, error) {
	return fmt.Sprintf(
		"[AUTO-REPLY] Thank you for your message: '%s...'. Our team will review this and get back to you shortly.",
		truncate(question, 50),
	), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
