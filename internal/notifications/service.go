package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/circlemart/circlemart-backend/pkg/email"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
)

// Notifier sends transactional emails. Calls never block on delivery and
// never return delivery errors.
type Notifier interface {
	SendWelcome(ctx context.Context, name, address string)
	SendGroupApproval(ctx context.Context, name, address, groupName, link string)
	SendGroupRejection(ctx context.Context, name, address, groupName string)
}

type Service struct {
	sender  email.Sender
	logg    *logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

const defaultSendTimeout = 10 * time.Second

// NewService wires the email notifier.
func NewService(sender email.Sender, logg *logger.Logger, timeout time.Duration) (*Service, error) {
	if sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "email sender required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Service{sender: sender, logg: logg, timeout: timeout}, nil
}

func (s *Service) SendWelcome(ctx context.Context, name, address string) {
	s.dispatch(ctx, "welcome", address, name, welcomeTemplates, templateData{Name: name})
}

func (s *Service) SendGroupApproval(ctx context.Context, name, address, groupName, link string) {
	s.dispatch(ctx, "group_approval", address, name, groupApprovalTemplates, templateData{
		Name:      name,
		GroupName: groupName,
		Link:      link,
	})
}

func (s *Service) SendGroupRejection(ctx context.Context, name, address, groupName string) {
	s.dispatch(ctx, "group_rejection", address, name, groupRejectionTemplates, templateData{
		Name:      name,
		GroupName: groupName,
	})
}

// Wait blocks until every in-flight send has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) dispatch(ctx context.Context, kind, address, name string, tmpl templateSet, data templateData) {
	logCtx := s.logg.WithFields(context.WithoutCancel(ctx), map[string]any{
		"email_kind": kind,
	})

	subject, text, html, err := tmpl.render(data)
	if err != nil {
		s.logg.Error(logCtx, "notifications.render_failed", err)
		return
	}
	msg := email.Message{
		ToName:   name,
		ToEmail:  address,
		Subject:  subject,
		Text:     text,
		HTML:     html,
		Category: kind,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logg.Error(logCtx, "notifications.send_panic", fmt.Errorf("panic: %v", r))
			}
		}()

		sendCtx, cancel := context.WithTimeout(logCtx, s.timeout)
		defer cancel()
		if err := s.sender.Send(sendCtx, msg); err != nil {
			s.logg.Error(logCtx, "notifications.send_failed", err)
			return
		}
		s.logg.Info(logCtx, "notifications.sent")
	}()
}

// Discard is a Notifier that drops everything.
type Discard struct{}

func (Discard) SendWelcome(context.Context, string, string)                       {}
func (Discard) SendGroupApproval(context.Context, string, string, string, string) {}
func (Discard) SendGroupRejection(context.Context, string, string, string)        {}
