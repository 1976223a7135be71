package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/circlemart/circlemart-backend/pkg/email"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []email.Message
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg email.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("expected deadline on send context")
	}
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recordingSender) sent() []email.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]email.Message(nil), r.msgs...)
}

func TestSendGroupApprovalRendersTemplates(t *testing.T) {
	sender := &recordingSender{}
	svc, err := NewService(sender, logger.Nop(), time.Second)
	require.NoError(t, err)

	svc.SendGroupApproval(context.Background(), "Ada", "ada@example.com", "Book Club", "https://circlemart.local/groups/book-club")
	svc.Wait()

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	require.Equal(t, "ada@example.com", msgs[0].ToEmail)
	require.Equal(t, "You're in: Book Club", msgs[0].Subject)
	require.True(t, strings.Contains(msgs[0].HTML, `href="https://circlemart.local/groups/book-club"`))
	require.Equal(t, "group_approval", msgs[0].Category)
}

func TestSendSurvivesCancelledCallerContext(t *testing.T) {
	sender := &recordingSender{}
	svc, err := NewService(sender, logger.Nop(), time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.SendWelcome(ctx, "Grace", "grace@example.com")
	svc.SendGroupRejection(ctx, "Grace", "grace@example.com", "<Chess>")
	svc.Wait()

	msgs := sender.sent()
	require.Len(t, msgs, 2)
	for _, msg := range msgs {
		if msg.Category == "group_rejection" {
			require.Contains(t, msg.HTML, "&lt;Chess&gt;")
		}
	}
}

func TestSendErrorsAreSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("provider down")}
	svc, err := NewService(sender, logger.Nop(), 0)
	require.NoError(t, err)

	svc.SendWelcome(context.Background(), "Linus", "linus@example.com")
	svc.Wait()
	require.Len(t, sender.sent(), 1)
}

func TestNewServiceRequiresSender(t *testing.T) {
	_, err := NewService(nil, nil, 0)
	require.Error(t, err)
}
