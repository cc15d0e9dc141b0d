// Package watch runs the mailbox polling loop: discover unseen
// messages, deduplicate them, dispatch matching rules, and flag the
// batch seen on the server.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nvkha/mailplane/internal/model"
	"github.com/nvkha/mailplane/internal/rules"
)

// Mailbox is the slice of the IMAP client the watcher depends on.
// *mail.IMAPClient satisfies it; tests substitute a fake.
type Mailbox interface {
	FetchUnseen(ctx context.Context, folder string) ([]model.Message, error)
	MarkSeen(ctx context.Context, folder string, uids []uint32) error
}

// Config controls one watch session.
type Config struct {
	// Folder is the mailbox folder to poll. Defaults to "INBOX".
	Folder string

	// Interval is the sleep between poll cycles. Defaults to 5s.
	Interval time.Duration

	// OnStart is called once, right before the first poll cycle.
	OnStart func()

	// OnError is called for every absorbed error: poll-cycle I/O
	// failures, dedup failures, and handler errors. The loop always
	// continues at the next interval.
	OnError func(error)

	// Rules are evaluated against every newly discovered message; all
	// matching handlers fire, in declaration order.
	Rules []rules.Rule
}

// Watcher owns the state of one watch session: the seen-filter and
// the background polling goroutine. One instance per session; several
// watchers can run side by side.
type Watcher struct {
	mailbox Mailbox
	seen    Deduper
	cfg     Config

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Start begins polling in a background goroutine and returns the
// running watcher. seen may be nil, in which case a fresh in-memory
// seen-set is used.
func Start(mailbox Mailbox, seen Deduper, cfg Config) *Watcher {
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if seen == nil {
		seen = NewMemorySeen()
	}

	w := &Watcher{
		mailbox: mailbox,
		seen:    seen,
		cfg:     cfg,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	go w.run()
	return w
}

// Stop ends the watch session cooperatively: the stop signal is
// observed at the next loop boundary, so at most one in-flight cycle
// completes. Stop blocks until the polling goroutine has exited and
// is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

// RunOnce performs a single poll cycle synchronously, without
// starting a session. Used by the one-shot process command.
func RunOnce(mailbox Mailbox, seen Deduper, cfg Config) {
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	if seen == nil {
		seen = NewMemorySeen()
	}

	w := &Watcher{mailbox: mailbox, seen: seen, cfg: cfg}
	w.pollOnce()
}

// run is the polling loop. An initial cycle runs immediately, then
// one per interval until Stop.
func (w *Watcher) run() {
	defer close(w.doneCh)

	slog.Info("mailbox watcher starting",
		"folder", w.cfg.Folder,
		"interval", w.cfg.Interval,
	)

	if w.cfg.OnStart != nil {
		w.cfg.OnStart()
	}

	w.pollOnce()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			slog.Info("mailbox watcher stopping")
			return
		case <-ticker.C:
			w.pollOnce()
		}
	}
}

// pollOnce runs a single cycle. Identifiers are recorded in the
// seen-filter before handlers run: a handler failure leaves the
// message marked seen and it is not retried (at-most-once dispatch,
// trading retry-on-failure for duplicate-avoidance). The fetched
// batch, new messages and duplicates alike, is flagged seen on the
// server; a message whose dedup check failed stays unseen so the next
// cycle retries it.
func (w *Watcher) pollOnce() {
	ctx := context.Background()

	messages, err := w.mailbox.FetchUnseen(ctx, w.cfg.Folder)
	if err != nil {
		w.reportError(fmt.Errorf("poll cycle: %w", err))
		return
	}
	if len(messages) == 0 {
		return
	}

	slog.Debug("poll cycle found messages", "count", len(messages))

	uids := make([]uint32, 0, len(messages))
	for _, msg := range messages {
		isNew, err := w.seen.IsNew(ctx, msg.DedupKey())
		if err != nil {
			// Not flagged seen, so the next cycle's unseen search
			// returns the message again.
			w.reportError(fmt.Errorf("dedup check: %w", err))
			continue
		}

		uids = append(uids, msg.UID)
		if !isNew {
			continue
		}

		w.dispatch(ctx, msg)
	}

	if len(uids) == 0 {
		return
	}
	if err := w.mailbox.MarkSeen(ctx, w.cfg.Folder, uids); err != nil {
		w.reportError(fmt.Errorf("flagging batch seen: %w", err))
	}
}

// dispatch fires every matching rule handler for one message.
func (w *Watcher) dispatch(ctx context.Context, msg model.Message) {
	for _, rule := range rules.Apply(w.cfg.Rules, msg) {
		if rule.Handler == nil {
			continue
		}
		if err := w.runHandler(ctx, rule, msg); err != nil {
			w.reportError(fmt.Errorf(
				"rule %q on %q: %w", rule.Name, msg.Subject, err,
			))
		}
	}
}

// runHandler isolates a single handler invocation so a panicking
// handler cannot kill the poll loop.
func (w *Watcher) runHandler(
	ctx context.Context, rule rules.Rule, msg model.Message,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return rule.Handler(ctx, msg)
}

func (w *Watcher) reportError(err error) {
	slog.Error("watcher error", "error", err)
	if w.cfg.OnError != nil {
		w.cfg.OnError(err)
	}
}
