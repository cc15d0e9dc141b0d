package model

import (
	"fmt"
	"strings"
	"time"
)

// Attachment holds metadata about a message attachment. Content is
// saved to a temporary file so the upload step can stream it without
// keeping the payload in memory.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Path        string
}

// HumanSize formats the attachment size for display. Whole values
// drop the decimal, so 10240 renders as "10 KB".
func (a Attachment) HumanSize() string {
	switch {
	case a.Size >= 1024*1024:
		return trimZero(fmt.Sprintf("%.1f", float64(a.Size)/(1024*1024))) + " MB"
	case a.Size >= 1024:
		return trimZero(fmt.Sprintf("%.1f", float64(a.Size)/1024)) + " KB"
	default:
		return fmt.Sprintf("%d B", a.Size)
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}

// Message is an inbound email as observed by the watcher.
type Message struct {
	// UID is the server-assigned IMAP UID within the selected folder.
	UID uint32

	// MessageID is the transport Message-ID header, empty when absent.
	MessageID string

	Subject string
	From    string
	To      []string
	Date    time.Time

	// TextBody is the extracted plain-text body. For HTML-only
	// messages it holds a stripped rendering of the HTML part.
	TextBody string

	Seen        bool
	Attachments []Attachment
}

// DedupKey returns the stable identifier used by the watcher's
// seen-set. The Message-ID header is preferred; messages without one
// fall back to subject plus send timestamp, which can under-deduplicate
// when two messages share both to the second.
func (m Message) DedupKey() string {
	if m.MessageID != "" {
		return m.MessageID
	}
	return fmt.Sprintf("%s-%d", m.Subject, m.Date.Unix())
}
