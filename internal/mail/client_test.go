package mail

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{
			"tags and breaks",
			"<p>Hello <b>world</b></p><p>second</p>",
			"Hello world\nsecond",
		},
		{
			"entities",
			"a &amp; b &lt;c&gt; &quot;d&quot;&nbsp;e",
			`a & b <c> "d" e`,
		},
		{
			"collapses blank runs",
			"one</p></p></p>two",
			"one\n\ntwo",
		},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripHTML(tt.in))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report_2026.pdf", sanitizeFilename("report 2026.pdf"))
	assert.Equal(t, "a_b_c.txt", sanitizeFilename("a/b\\c.txt"))
	assert.Equal(t, "attachment", sanitizeFilename(""))
}

func TestParseMIMEBodyPlainText(t *testing.T) {
	raw := "From: reporter@example.com\r\n" +
		"To: triage@example.com\r\n" +
		"Subject: Login broken\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Cannot log in since this morning.\r\n"

	text, html, atts := parseMIMEBody([]byte(raw))

	assert.Contains(t, text, "Cannot log in")
	assert.Empty(t, html)
	assert.Empty(t, atts)
}

func TestParseMIMEBodyMultipartWithAttachment(t *testing.T) {
	raw := strings.Join([]string{
		"From: reporter@example.com",
		"To: triage@example.com",
		"Subject: Crash report",
		`Content-Type: multipart/mixed; boundary="frontier"`,
		"",
		"--frontier",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"See the attached log.",
		"--frontier",
		"Content-Type: text/plain",
		`Content-Disposition: attachment; filename="crash.log"`,
		"",
		"panic: boom",
		"--frontier--",
		"",
	}, "\r\n")

	text, _, atts := parseMIMEBody([]byte(raw))

	assert.Contains(t, text, "See the attached log.")
	require.Len(t, atts, 1)

	att := atts[0]
	assert.Equal(t, "crash.log", att.Filename)
	assert.Equal(t, int64(len("panic: boom")), att.Size)

	require.NotEmpty(t, att.Path)
	defer os.Remove(att.Path)

	content, err := os.ReadFile(att.Path)
	require.NoError(t, err)
	assert.Equal(t, "panic: boom", string(content))
}
