package report

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
)

// Subject and Body are the fixed report email template.
const (
	Subject = "USA Jobs - Monthly top 30 Jobs related to Data Engineering in Chicago Area"
	Body    = `In the attachment you can find the daily .csv file containing list of Data Engineering related jobs in Chicago.
The list will be updated if there any new jobs for the month, displaying most recently posted job.
`
)

// AttachmentName is the dated file name the CSV is sent under.
func AttachmentName(day time.Time) string {
	return fmt.Sprintf("%s - Data jobs report.csv", day.Format("2006-01-02"))
}

// Sender delivers a fully composed RFC 5322 message.
type Sender interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// Mailer composes the report email and hands it to a Sender. There is a
// single delivery attempt.
type Mailer struct {
	From   string
	Sender Sender
	Now    func() time.Time
	log    *slog.Logger
}

// NewMailer returns a Mailer sending as from.
func NewMailer(from string, sender Sender) *Mailer {
	return &Mailer{
		From:   from,
		Sender: sender,
		Now:    time.Now,
		log:    slog.Default().With("component", "mailer"),
	}
}

// SendReport attaches the CSV at csvPath and mails it to recipient.
func (m *Mailer) SendReport(ctx context.Context, csvPath, recipient string) error {
	data, err := os.ReadFile(csvPath)
	if err != nil {
		return fmt.Errorf("read report %s: %w", csvPath, err)
	}

	msg, err := m.Compose(recipient, data)
	if err != nil {
		return fmt.Errorf("compose report: %w", err)
	}

	if err := m.Sender.Send(ctx, m.From, []string{recipient}, msg); err != nil {
		return fmt.Errorf("send report to %s: %w", recipient, err)
	}
	m.log.Info("report sent", "to", recipient, "bytes", len(msg))
	return nil
}

// Compose builds a multipart/mixed message: a plain-text body and the CSV
// as a base64 attachment.
func (m *Mailer) Compose(recipient string, attachment []byte) ([]byte, error) {
	now := m.Now()

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Address: m.From}})
	h.SetAddressList("To", []*mail.Address{{Address: recipient}})
	h.SetSubject(Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(th)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, Body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	var ah mail.AttachmentHeader
	ah.SetContentType("application/octet-stream", nil)
	ah.SetFilename(AttachmentName(now))
	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return nil, err
	}
	if _, err := aw.Write(attachment); err != nil {
		return nil, err
	}
	if err := aw.Close(); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SMTPSender delivers over an authenticated session, upgrading with
// STARTTLS before authenticating.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (s *SMTPSender) Send(ctx context.Context, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if err := client.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}
	return client.Quit()
}
