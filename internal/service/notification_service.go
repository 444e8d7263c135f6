package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/gas-service-portal/internal/config"
	"github.com/spec-kit/gas-service-portal/internal/domain"
	"github.com/spec-kit/gas-service-portal/internal/events"
)

// NotificationService turns request events into log lines and, when a webhook
// is configured, outbound HTTP callbacks.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	client     *http.Client
	// async is false in tests so deliveries happen before Publish returns.
	async    bool
	inflight sync.WaitGroup
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.WebhookTimeout()},
		async:      true,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventRequestStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventRequestAssigned, n.handleAssigned)
	n.dispatcher.Subscribe(events.EventRequestCommentAdded, n.handleCommentAdded)
}

func (n *NotificationService) handleRequestCreated(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.RequestCreatedPayload)
	fields := []zap.Field{
		zap.String("request_id", event.RequestID),
		zap.String("customer_id", payload.CustomerID),
		zap.String("type", string(payload.Type)),
		zap.String("priority", string(payload.Priority)),
	}
	if isEmergency(payload) {
		n.logger.Warn("emergency service request filed", fields...)
	} else {
		n.logger.Info("RequestCreated", fields...)
	}
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("RequestStatusChanged", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("RequestAssigned", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	n.logger.Debug("RequestCommentAdded", zap.String("request_id", event.RequestID), zap.String("actor", event.Actor.UserID))
	return nil
}

func isEmergency(p events.RequestCreatedPayload) bool {
	return p.Type == domain.RequestTypeGasLeak || p.Priority == domain.RequestPriorityUrgent
}

func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return
	}
	deliver := func(ctx context.Context) {
		if err := n.postWebhook(ctx, url, event); err != nil {
			n.logger.Warn("webhook delivery failed",
				zap.String("event_type", string(event.Type)),
				zap.String("request_id", event.RequestID),
				zap.Error(err))
		}
	}
	if !n.async {
		deliver(ctx)
		return
	}
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		deliver(context.WithoutCancel(ctx))
	}()
}

// Drain waits for in-flight webhook deliveries or until ctx is done.
func (n *NotificationService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *NotificationService) postWebhook(ctx context.Context, url string, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, n.cfg.WebhookTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(event.Type))
	req.Header.Set("X-Event-Timestamp", event.Timestamp.UTC().Format(time.RFC3339))

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
