package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/registration-service/internal/config"
	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/events"
)

// NotificationService reacts to domain events with outbound
// notifications. Delivery is an external collaborator; failures here are
// logged and never reach the state transition that triggered them.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketBooked, n.handleTicketBooked)
	n.dispatcher.Subscribe(events.EventApplicationStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventPhaseTwoSubmitted, n.handlePhaseTwoSubmitted)
	n.dispatcher.Subscribe(events.EventMembershipCreated, n.handleMembershipCreated)
}

func (n *NotificationService) handleTicketBooked(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketBooked", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailStub(ctx, event, "booking confirmation")
	return nil
}

// handleStatusChanged sends the phase 2 invite when an applicant is
// shortlisted. The invite link is keyed by ticket id.
func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ApplicationStatusChangedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("ApplicationStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))

	if payload.NewStatus == domain.ApplicationStatusShortlisted {
		link := fmt.Sprintf("%s/%s", strings.TrimRight(n.cfg.PhaseTwoBaseURL, "/"), event.TicketID)
		n.logger.Info("phase 2 invite",
			zap.String("to", payload.UserEmail),
			zap.String("link", link))
		n.sendEmailStub(ctx, event, "phase 2 invite")
	}
	return nil
}

func (n *NotificationService) handlePhaseTwoSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("PhaseTwoSubmitted", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailStub(ctx, event, "application completed")
	return nil
}

func (n *NotificationService) handleMembershipCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("MembershipCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailStub(ctx, event, "membership welcome")
	return nil
}

func (n *NotificationService) sendEmailStub(_ context.Context, event events.Event, kind string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("kind", kind),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
