// Package mail wraps go-imap v2 and net/smtp for the watched inbox:
// fetching unseen messages with parsed bodies and attachment payloads,
// flagging batches as seen, and sending confirmation replies.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nvkha/mailplane/internal/model"
)

// IMAPClient wraps go-imap v2 for connecting to and querying IMAP
// servers. Connections are opened per operation and closed before
// returning, so a failed poll cycle never leaks a session.
type IMAPClient struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(
	host, port, username, password string, tls bool,
) *IMAPClient {
	return &IMAPClient{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
	}
}

// Connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout on the returned client.
func (c *IMAPClient) Connect(
	_ context.Context,
) (*imapclient.Client, error) {
	addr := c.host + ":" + c.port

	var client *imapclient.Client
	var err error

	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf(
			"authentication failed for %s: %w", c.username, err,
		)
	}

	return client, nil
}

// ValidateConnection verifies IMAP credentials by connecting,
// authenticating, and selecting the folder. Returns the username on
// success.
func (c *IMAPClient) ValidateConnection(
	ctx context.Context, folder string,
) (string, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return "", fmt.Errorf("validating mailbox connection: %w", err)
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return "", fmt.Errorf("selecting %s: %w", folder, err)
	}

	return c.username, nil
}

// FetchUnseen connects, selects the folder read-write, and returns
// every message not flagged \Seen with its parsed body and attachment
// payloads saved to temporary files. Messages are returned in the
// order of the server's search result. Fetching peeks at bodies so
// the seen flag stays under the caller's control.
func (c *IMAPClient) FetchUnseen(
	ctx context.Context, folder string,
) ([]model.Message, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", folder, err)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var messages []model.Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		m := messageFromBuffer(buf)

		if raw := buf.FindBodySection(bodySection); raw != nil {
			textBody, htmlBody, attachments := parseMIMEBody(raw)
			m.TextBody = textBody
			if m.TextBody == "" && htmlBody != "" {
				m.TextBody = stripHTML(htmlBody)
			}
			m.Attachments = attachments
		}

		messages = append(messages, m)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching unseen messages: %w", err)
	}

	return messages, nil
}

// MarkSeen connects, selects the folder, and adds the \Seen flag to
// every given UID.
func (c *IMAPClient) MarkSeen(
	ctx context.Context, folder string, uids []uint32,
) error {
	if len(uids) == 0 {
		return nil
	}

	client, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", folder, err)
	}

	imapUIDs := make([]imap.UID, len(uids))
	for i, uid := range uids {
		imapUIDs[i] = imap.UID(uid)
	}

	storeCmd := client.Store(imap.UIDSetNum(imapUIDs...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)

	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("flagging messages seen: %w", err)
	}
	return nil
}

// messageFromBuffer extracts a model.Message from a fetch buffer.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer) model.Message {
	m := model.Message{
		UID: uint32(buf.UID),
	}

	if buf.Envelope != nil {
		m.MessageID = buf.Envelope.MessageID
		m.Subject = buf.Envelope.Subject
		m.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			m.From = buf.Envelope.From[0].Addr()
		}
		for _, to := range buf.Envelope.To {
			m.To = append(m.To, to.Addr())
		}
	}

	for _, flag := range buf.Flags {
		if flag == imap.FlagSeen {
			m.Seen = true
		}
	}

	return m
}

// parseMIMEBody parses a raw RFC 2822 message using go-message and
// extracts the text/plain body, text/html body, and attachments.
// Attachment content is written to temporary files so the upload step
// can stream it later.
func parseMIMEBody(raw []byte) (
	textBody string, htmlBody string, attachments []model.Attachment,
) {
	reader := bytes.NewReader(raw)

	mr, err := mail.CreateReader(reader)
	if err != nil {
		// If parsing fails, try treating the whole thing as plain text
		return string(raw), "", nil
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				textBody = string(body)
			case strings.HasPrefix(contentType, "text/html"):
				htmlBody = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			att := model.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        int64(len(body)),
			}
			if path, err := saveAttachment(filename, body); err == nil {
				att.Path = path
			}
			attachments = append(attachments, att)
		}
	}

	return textBody, htmlBody, attachments
}

// saveAttachment writes attachment content to a temporary file and
// returns its path.
func saveAttachment(filename string, content []byte) (string, error) {
	f, err := os.CreateTemp("", "mailplane-*-"+sanitizeFilename(filename))
	if err != nil {
		return "", fmt.Errorf("creating attachment temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing attachment content: %w", err)
	}
	return f.Name(), nil
}

// fileUnsafeChars matches characters that are unsafe in a temp file name.
var fileUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func sanitizeFilename(s string) string {
	if s == "" {
		return "attachment"
	}
	return fileUnsafeChars.ReplaceAllString(s, "_")
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering for HTML-only
// messages.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
