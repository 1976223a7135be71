package email

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circlemart/circlemart-backend/pkg/config"
)

type fakeAPI struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeAPI) SendWithContext(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, m)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status, Body: "body"}, nil
}

func TestSendBuildsSingleEmail(t *testing.T) {
	api := &fakeAPI{status: 202}
	client := &SendGridClient{api: api, fromName: "CircleMart", from: "no-reply@example.com"}

	err := client.Send(context.Background(), Message{
		ToName:   "Ada",
		ToEmail:  "ada@example.com",
		Subject:  "Welcome",
		Text:     "hi",
		HTML:     "<p>hi</p>",
		Category: "welcome",
	})
	require.NoError(t, err)
	require.Len(t, api.sent, 1)

	sent := api.sent[0]
	assert.Equal(t, "no-reply@example.com", sent.From.Address)
	assert.Equal(t, "Welcome", sent.Subject)
	require.Len(t, sent.Personalizations, 1)
	assert.Equal(t, "ada@example.com", sent.Personalizations[0].To[0].Address)
	assert.Equal(t, []string{"welcome"}, sent.Categories)
}

func TestSendSurfacesProviderErrors(t *testing.T) {
	client := &SendGridClient{api: &fakeAPI{status: 401}, from: "x@example.com"}
	require.Error(t, client.Send(context.Background(), Message{ToEmail: "a@example.com"}))

	client = &SendGridClient{api: &fakeAPI{err: errors.New("dial")}, from: "x@example.com"}
	require.Error(t, client.Send(context.Background(), Message{ToEmail: "a@example.com"}))

	require.Error(t, client.Send(context.Background(), Message{}))
}

func TestNewSendGridClientRequiresKey(t *testing.T) {
	_, err := NewSendGridClient(config.SendgridConfig{DefaultFrom: "x@example.com"})
	require.Error(t, err)

	c, err := NewSendGridClient(config.SendgridConfig{APIKey: "SG.key", DefaultFrom: "x@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}
