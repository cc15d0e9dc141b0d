package model

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "INBOX", cfg.Mailbox.Folder)
	assert.Equal(t, "993", cfg.Mailbox.IMAPPort)
	assert.True(t, cfg.Mailbox.TLS)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.NotEmpty(t, cfg.Watch.HistoryDB)
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.Mailbox.IMAPHost = "imap.example.com"
	cfg.Mailbox.Username = "triage@example.com"
	cfg.Plane.BaseURL = "https://plane.example.com"
	cfg.Plane.Workspace = "acme"
	cfg.Plane.FilterTag = "plane"
	cfg.Watch.PollIntervalMS = 10000
	cfg.Watch.SendConfirmation = true

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "imap.example.com", loaded.Mailbox.IMAPHost)
	assert.Equal(t, "triage@example.com", loaded.Mailbox.Username)
	assert.Equal(t, "INBOX", loaded.Mailbox.Folder)
	assert.Equal(t, "https://plane.example.com", loaded.Plane.BaseURL)
	assert.Equal(t, "acme", loaded.Plane.Workspace)
	assert.Equal(t, "plane", loaded.Plane.FilterTag)
	assert.Equal(t, 10*time.Second, loaded.PollInterval())
	assert.True(t, loaded.Watch.SendConfirmation)
}
