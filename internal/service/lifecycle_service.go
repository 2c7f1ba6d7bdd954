package service

import (
	"context"
	"fmt"
	"strings"

	"ai-livecourse-be/internal/pkg/logger"
	"ai-livecourse-be/pkg/events"
	pktNats "ai-livecourse-be/pkg/nats"
)

// ILifecycleAuditService consumes course lifecycle events off the NATS bus
// and records them as a structured audit trail. Other services (analytics,
// billing) can attach their own durable consumers to the same stream.
type ILifecycleAuditService interface {
	Start()
}

type lifecycleAuditService struct {
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewLifecycleAuditService(sub *pktNats.Subscriber, log logger.ILogger) ILifecycleAuditService {
	return &lifecycleAuditService{subscriber: sub, logger: log}
}

// Start begins listening to the event bus. A nil subscriber means NATS is not
// configured; the audit trail is skipped and the engine runs as usual.
func (s *lifecycleAuditService) Start() {
	if s.subscriber == nil {
		s.logger.Warn("LifecycleAuditService", "NATS not configured, lifecycle audit disabled", nil)
		return
	}

	err := s.subscriber.Subscribe("events.>", "course-lifecycle-audit", s.handleEvent)
	if err != nil {
		s.logger.Error("LifecycleAuditService", "Failed to start lifecycle subscriber", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info("LifecycleAuditService", "Lifecycle audit started, listening to events.>", nil)
}

func (s *lifecycleAuditService) handleEvent(_ context.Context, event events.Event) error {
	// The NATS subject includes the stream prefix; strip it for the type code.
	typeCode := strings.TrimPrefix(event.EventType(), "events.")

	payload := event.Payload()
	sessionID, _ := payload["session_id"].(string)

	s.logger.Info("LifecycleAuditService", fmt.Sprintf("Lifecycle event: %s", typeCode), map[string]interface{}{
		"type":       typeCode,
		"session_id": sessionID,
		"payload":    payload,
	})
	return nil
}
