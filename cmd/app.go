package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nvkha/mailplane/internal/credential"
	"github.com/nvkha/mailplane/internal/mail"
	"github.com/nvkha/mailplane/internal/model"
	"github.com/nvkha/mailplane/internal/plane"
	"github.com/nvkha/mailplane/internal/store"
	"github.com/nvkha/mailplane/internal/triage"
	"github.com/nvkha/mailplane/internal/watch"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg     *model.AppConfig
	imap    *mail.IMAPClient
	service *plane.Service
	runner  *triage.Runner
	history store.Store
	seen    watch.Deduper
}

// newApp loads configuration, resolves credentials, and constructs
// the triage pipeline. withHistory controls whether the local history
// database is opened; callers that opened it must Close the app.
func newApp(withHistory bool) (*app, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	// Secrets left out of the config file come from the keyring.
	if cfg.Mailbox.Password == "" {
		if pw, err := credential.Get(credential.KeyIMAPPassword); err == nil {
			cfg.Mailbox.Password = pw
		}
	}
	if cfg.Plane.APIKey == "" {
		if key, err := credential.Get(credential.KeyPlaneAPIKey); err == nil {
			cfg.Plane.APIKey = key
		}
	}

	a := &app{cfg: cfg}

	a.imap = mail.NewIMAPClient(
		cfg.Mailbox.IMAPHost, cfg.Mailbox.IMAPPort,
		cfg.Mailbox.Username, cfg.Mailbox.Password,
		cfg.Mailbox.TLS,
	)

	a.service = plane.NewService(
		cfg.Plane.BaseURL, cfg.Plane.Workspace, cfg.Plane.APIKey,
	)

	if withHistory {
		h, err := store.NewSQLiteStore(cfg.Watch.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("opening triage history: %w", err)
		}
		a.history = h
	}

	if cfg.Watch.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Watch.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		a.seen = watch.NewRedisSeen(redis.NewClient(opts))
	} else {
		a.seen = watch.NewMemorySeen()
	}

	orch := triage.New(a.service, triage.Options{
		FilterTag: cfg.Plane.FilterTag,
		Project:   cfg.Plane.Project,
	})

	runnerCfg := triage.RunnerConfig{
		Uploader: a.service,
		History:  a.history,
	}
	if cfg.Watch.SendConfirmation {
		runnerCfg.Notify = a.sendConfirmation
	}
	a.runner = triage.NewRunner(orch, runnerCfg)

	return a, nil
}

// Close releases resources held by the app.
func (a *app) Close() error {
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

// sendConfirmation replies to the sender after a successful triage.
func (a *app) sendConfirmation(msg model.Message, res model.Result) error {
	verb := "updated"
	if res.Action == model.ActionCreated {
		verb = "created"
	}

	ref := res.WorkItemKey
	if ref == "" {
		ref = res.WorkItemID
	}

	body := fmt.Sprintf(
		"Your email has been received and work item %s was %s.\n",
		ref, verb,
	)

	return mail.SendConfirmation(mail.SMTPConfig{
		Host:     a.cfg.Mailbox.SMTPHost,
		Port:     a.cfg.Mailbox.SMTPPort,
		Username: a.cfg.Mailbox.Username,
		Password: a.cfg.Mailbox.Password,
		TLS:      a.cfg.Mailbox.TLS,
	}, mail.Confirmation{
		To:        msg.From,
		Subject:   msg.Subject,
		Body:      body,
		InReplyTo: msg.MessageID,
	})
}
