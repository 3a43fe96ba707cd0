package email

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gatewaysync/pkg/config"
	pkgerrors "github.com/angelmondragon/gatewaysync/pkg/errors"
)

type fakeSendClient struct {
	sent []*mail.SGMailV3
	resp *rest.Response
	err  error
}

func (f *fakeSendClient) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestSendBuildsMessage(t *testing.T) {
	client := &fakeSendClient{resp: &rest.Response{StatusCode: http.StatusAccepted}}
	sender := newSender(client, "orders@example.com", "Orders")

	err := sender.Send(context.Background(), Message{
		To:      " buyer@example.com ",
		ToName:  "Buyer",
		BCC:     []string{"ops@example.com", "BUYER@example.com"},
		Subject: "Order GS-1001 confirmed",
		HTML:    "<p>thanks</p>",
		Text:    "thanks",
	})
	require.NoError(t, err)
	require.Len(t, client.sent, 1)

	sent := client.sent[0]
	assert.Equal(t, "orders@example.com", sent.From.Address)
	assert.Equal(t, "Order GS-1001 confirmed", sent.Subject)
	require.Len(t, sent.Personalizations, 1)
	require.Len(t, sent.Personalizations[0].To, 1)
	assert.Equal(t, "buyer@example.com", sent.Personalizations[0].To[0].Address)
	require.Len(t, sent.Personalizations[0].BCC, 1, "recipient is not copied to themselves")
	require.Len(t, sent.Content, 2)
	assert.Equal(t, "text/plain", sent.Content[0].Type)
}

func TestSendValidation(t *testing.T) {
	client := &fakeSendClient{resp: &rest.Response{StatusCode: http.StatusAccepted}}
	sender := newSender(client, "orders@example.com", "Orders")

	err := sender.Send(context.Background(), Message{To: "not-an-email", Subject: "hi", Text: "x"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = sender.Send(context.Background(), Message{To: "a@example.com", Subject: "hi"})
	require.Error(t, err, "a body is required")
	assert.Empty(t, client.sent)
}

func TestSendProviderFailure(t *testing.T) {
	client := &fakeSendClient{resp: &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}}
	sender := newSender(client, "orders@example.com", "Orders")

	err := sender.Send(context.Background(), Message{To: "a@example.com", Subject: "hi", Text: "x"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	client.err = errors.New("dial tcp: timeout")
	err = sender.Send(context.Background(), Message{To: "a@example.com", Subject: "hi", Text: "x"})
	require.Error(t, err)
}

func TestNewSenderWithoutKey(t *testing.T) {
	sender, err := NewSender(config.SendgridConfig{})
	require.NoError(t, err)
	assert.Nil(t, sender)

	_, err = NewSender(config.SendgridConfig{APIKey: "SG.key", DefaultFrom: "nope"})
	require.Error(t, err)

	var nilSender *Sender
	require.Error(t, nilSender.Send(context.Background(), Message{}))
}
