package email

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMIMEMessage(t *testing.T) {
	msg := string(buildMIMEMessage(
		"planner@example.com",
		"student@example.com",
		"Today's schedule",
		"plain text part",
		"<p>html part</p>",
		"boundary42",
	))

	assert.Contains(t, msg, "From: planner@example.com\r\n")
	assert.Contains(t, msg, "To: student@example.com\r\n")
	assert.Contains(t, msg, "Subject: Today's schedule\r\n")
	assert.Contains(t, msg, `multipart/alternative; boundary="boundary42"`)
	assert.Contains(t, msg, "plain text part")
	assert.Contains(t, msg, "<p>html part</p>")
	assert.True(t, strings.HasSuffix(msg, "--boundary42--\r\n"))

	// Text part comes before the HTML part.
	assert.Less(t, strings.Index(msg, "text/plain"), strings.Index(msg, "text/html"))
}

func TestGenerateBoundaryIsUnique(t *testing.T) {
	a := generateBoundary()
	b := generateBoundary()
	require.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestSendRequiresConfiguration(t *testing.T) {
	s := NewSender(Config{})
	err := s.Send(context.Background(), "student@example.com", "subj", "text", "html")
	assert.Error(t, err)
}

func TestSendHonoursCancelledContext(t *testing.T) {
	s := NewSender(Config{Host: "smtp.example.com", Port: 587, From: "planner@example.com"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, "student@example.com", "subj", "text", "html")
	assert.ErrorIs(t, err, context.Canceled)
}
