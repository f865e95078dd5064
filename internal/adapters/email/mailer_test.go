package email

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	got *ses.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(MailerConfig{Provider: "noop"}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Send("a@example.com", "hi", "<p>hi</p>", "hi"))

	_, err = NewMailer(MailerConfig{Provider: "ses"}, nil)
	require.Error(t, err, "region is required")

	_, err = NewMailer(MailerConfig{Provider: "smtp"}, nil)
	require.Error(t, err)
}

func TestSESMailer_Send(t *testing.T) {
	client := &fakeSES{}
	m, err := newSESMailer(client, "noreply@velvetden.example", "Velvet Den", slog.Default())
	require.NoError(t, err)

	require.NoError(t, m.Send("alice@example.com", "Welcome", "<p>hi</p>", ""))
	require.NotNil(t, client.got)
	assert.Equal(t, `"Velvet Den" <noreply@velvetden.example>`, aws.ToString(client.got.Source))
	assert.Equal(t, []string{"alice@example.com"}, client.got.Destination.ToAddresses)
	assert.Equal(t, "Welcome", aws.ToString(client.got.Message.Subject.Data))
	assert.Equal(t, "<p>hi</p>", aws.ToString(client.got.Message.Body.Html.Data))
	assert.Nil(t, client.got.Message.Body.Text)
}

func TestSESMailer_Errors(t *testing.T) {
	_, err := newSESMailer(&fakeSES{}, "", "", slog.Default())
	require.Error(t, err)

	m, err := newSESMailer(&fakeSES{err: errors.New("throttled")}, "noreply@velvetden.example", "", slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "<noreply@velvetden.example>", m.source)

	require.Error(t, m.Send("a@example.com", "s", "", ""), "empty body")
	err = m.Send("a@example.com", "s", "", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
