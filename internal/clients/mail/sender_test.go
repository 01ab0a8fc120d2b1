package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/maxaizer/autoapply/internal/config"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSender(fn sendFunc) *SMTPSender {
	s := NewSMTPSender(config.MailConfig{Host: "smtp.example.com", Port: 587, From: "me@example.com"})
	s.sendMail = fn
	return s
}

func Test_SMTPSender_Send_ShouldBuildMessageAndReturnID(t *testing.T) {
	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	sender := testSender(func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	})

	id, err := sender.Send(context.Background(), models.OutboundMessage{
		To: "ceo@acme.io", Subject: "Hello", Body: "line1\nline2", ReplyTo: "me+reply@example.com",
	})

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@example.com>"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"ceo@acme.io"}, gotTo)
	raw := string(gotMsg)
	assert.Contains(t, raw, "Reply-To: me+reply@example.com\r\n")
	assert.Contains(t, raw, "Message-ID: "+id)
	assert.Contains(t, raw, "line1\r\nline2")
}

func Test_SMTPSender_Send_WhenRelayFails_ShouldWrapError(t *testing.T) {
	sender := testSender(func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("550 mailbox unavailable")
	})

	_, err := sender.Send(context.Background(), models.OutboundMessage{To: "hr@acme.io", Subject: "s"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "550 mailbox unavailable")
}

func Test_SMTPSender_Send_WhenContextDone_ShouldStopWaiting(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	sender := testSender(func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sender.Send(ctx, models.OutboundMessage{To: "hr@acme.io"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_Send_WhenHeaderInjection_ShouldReject(t *testing.T) {
	_, err := LogSender{}.Send(context.Background(), models.OutboundMessage{
		To: "hr@acme.io", Subject: "hi\r\nBcc: victim@example.com",
	})
	assert.Error(t, err)

	_, err = LogSender{}.Send(context.Background(), models.OutboundMessage{To: "nobody"})
	assert.Error(t, err)
}
