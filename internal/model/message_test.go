package model

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupKey(t *testing.T) {
	withID := Message{
		MessageID: "<abc@mail.example.com>",
		Subject:   "ignored",
	}
	assert.Equal(t, "<abc@mail.example.com>", withID.DedupKey())

	sent := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	withoutID := Message{Subject: "Login broken", Date: sent}
	assert.Equal(
		t,
		"Login broken-"+strconv.FormatInt(sent.Unix(), 10),
		withoutID.DedupKey(),
	)

	// Same subject and timestamp collapse to the same key.
	other := Message{Subject: "Login broken", Date: sent}
	assert.Equal(t, withoutID.DedupKey(), other.DedupKey())
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1 KB"},
		{10 * 1024, "10 KB"},
		{1536, "1.5 KB"},
		{2 * 1024 * 1024, "2 MB"},
		{int64(2.5 * 1024 * 1024), "2.5 MB"},
	}

	for _, tt := range tests {
		att := Attachment{Size: tt.size}
		assert.Equal(t, tt.expected, att.HumanSize())
	}
}
