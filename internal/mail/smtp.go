package mail

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig holds the SMTP server settings for sending confirmation
// replies.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
}

// Confirmation describes a reply to the sender of a processed email.
// InReplyTo threads the confirmation under the original message when
// its Message-ID is known.
type Confirmation struct {
	To        string
	Subject   string
	Body      string
	InReplyTo string
}

// SendConfirmation composes and sends a confirmation email. It is not
// part of the triage pipeline; a send failure is reported to the
// caller and never affects the triage outcome.
func SendConfirmation(cfg SMTPConfig, conf Confirmation) error {
	from := cfg.Username

	subject := conf.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", conf.To))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	if conf.InReplyTo != "" {
		msg.WriteString(fmt.Sprintf("In-Reply-To: <%s>\r\n", conf.InReplyTo))
		msg.WriteString(fmt.Sprintf("References: <%s>\r\n", conf.InReplyTo))
	}
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(conf.Body)

	addr := cfg.Host + ":" + cfg.Port

	if cfg.TLS {
		return sendSMTPWithTLS(addr, cfg, from, conf.To, msg.String())
	}
	return sendSMTPWithStartTLS(addr, cfg, from, conf.To, msg.String())
}

// sendSMTPWithTLS sends an email over an implicit TLS connection.
func sendSMTPWithTLS(
	addr string, cfg SMTPConfig, from, to, body string,
) error {
	tlsConfig := &tls.Config{ServerName: cfg.Host}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	return sendMailViaSMTPClient(client, from, to, body)
}

// sendSMTPWithStartTLS sends an email using STARTTLS.
func sendSMTPWithStartTLS(
	addr string, cfg SMTPConfig, from, to, body string,
) error {
	conn, err := net.DialTimeout("tcp", addr, 30*time.Second)
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: cfg.Host}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("SMTP STARTTLS: %w", err)
	}

	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	return sendMailViaSMTPClient(client, from, to, body)
}

// sendMailViaSMTPClient sends a message using an already-authenticated
// SMTP client.
func sendMailViaSMTPClient(
	client *smtp.Client, from, to, body string,
) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}

	if _, err := writer.Write([]byte(body)); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}
