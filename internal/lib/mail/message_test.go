package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	from := Address{Name: "Toolman", Email: "noreply@example.com"}
	to := Address{Name: "Alice", Email: "alice@example.com"}

	raw := string(BuildMessage(from, to, "Welcome", "plain body", "<p>html body</p>"))

	assert.Contains(t, raw, "From: ")
	assert.Contains(t, raw, "<noreply@example.com>")
	assert.Contains(t, raw, "<alice@example.com>")
	assert.Contains(t, raw, "Subject: ")
	assert.Contains(t, raw, "Date: ")
	assert.Contains(t, raw, "MIME-Version: 1.0")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "plain body")
	assert.Contains(t, raw, "<p>html body</p>")
	assert.Contains(t, raw, "Message-ID: <")
	assert.Contains(t, raw, "@example.com>")

	// plain часть должна идти раньше HTML
	assert.Less(t, strings.Index(raw, "text/plain"), strings.Index(raw, "text/html"))
}

func TestBuildMessage_UniqueMessageID(t *testing.T) {
	from := Address{Email: "noreply@example.com"}
	to := Address{Email: "alice@example.com"}

	first := string(BuildMessage(from, to, "s", "t", "h"))
	second := string(BuildMessage(from, to, "s", "t", "h"))

	extractID := func(raw string) string {
		for _, line := range strings.Split(raw, "\r\n") {
			if strings.HasPrefix(line, "Message-ID: ") {
				return line
			}
		}
		return ""
	}
	require.NotEmpty(t, extractID(first))
	assert.NotEqual(t, extractID(first), extractID(second))
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "plain@example.com", Address{Email: "plain@example.com"}.String())
	assert.Contains(t, Address{Name: "Bob", Email: "b@example.com"}.String(), "<b@example.com>")
}
