package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maxaizer/autoapply/internal/config"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers messages through an SMTP relay.
type SMTPSender struct {
	cfg      config.MailConfig
	sendMail sendFunc
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}
}

// Send returns the Message-ID of the delivered message.
func (s *SMTPSender) Send(ctx context.Context, msg models.OutboundMessage) (string, error) {
	if err := validateMessage(msg); err != nil {
		return "", err
	}

	messageID := newMessageID(s.cfg.From)
	raw := buildMessage(s.cfg.From, s.replyTo(msg), msg, messageID, time.Now())

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	// net/smtp has no context support, so the send runs aside and the caller may stop waiting
	result := make(chan error, 1)
	go func() {
		result <- s.sendMail(addr, auth, s.cfg.From, []string{msg.To}, raw)
	}()

	select {
	case err := <-result:
		if err != nil {
			return "", errors.Wrapf(err, "failed to send mail to %s", msg.To)
		}
		return messageID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *SMTPSender) replyTo(msg models.OutboundMessage) string {
	if msg.ReplyTo != "" {
		return msg.ReplyTo
	}
	return s.cfg.ReplyTo
}

// LogSender only logs messages. Used when no SMTP host is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg models.OutboundMessage) (string, error) {
	if err := validateMessage(msg); err != nil {
		return "", err
	}
	id := "dry-run-" + uuid.NewString()
	log.WithFields(log.Fields{"to": msg.To, "subject": msg.Subject, "message_id": id}).
		Info("mail dry run, message not sent")
	return id, nil
}

func validateMessage(msg models.OutboundMessage) error {
	if strings.TrimSpace(msg.To) == "" || !strings.Contains(msg.To, "@") {
		return fmt.Errorf("invalid recipient %q", msg.To)
	}
	if strings.ContainsAny(msg.To+msg.Subject+msg.ReplyTo, "\r\n") {
		return fmt.Errorf("header values must not contain line breaks")
	}
	return nil
}

func newMessageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return "<" + uuid.NewString() + "@" + domain + ">"
}

func buildMessage(from, replyTo string, msg models.OutboundMessage, messageID string, date time.Time) []byte {
	var buf bytes.Buffer
	header := func(k, v string) {
		buf.WriteString(k + ": " + v + "\r\n")
	}

	header("From", from)
	header("To", msg.To)
	if replyTo != "" {
		header("Reply-To", replyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("Message-ID", messageID)
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	header("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return buf.Bytes()
}
