package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-livecourse-be/internal/pkg/logger"
	"ai-livecourse-be/internal/repository/contract"
	"ai-livecourse-be/pkg/course/session"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// SnapshotPublisher decouples session mutations from the database: the store
// hands it snapshots synchronously, and the write happens on the consumer
// side. Implements session.PersistSink.
type SnapshotPublisher struct {
	pubSub    *gochannel.GoChannel
	topicName string
}

func NewSnapshotPublisher(pubSub *gochannel.GoChannel, topicName string) *SnapshotPublisher {
	return &SnapshotPublisher{pubSub: pubSub, topicName: topicName}
}

func (p *SnapshotPublisher) Persist(snap session.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return p.pubSub.Publish(p.topicName, msg)
}

type ISnapshotConsumerService interface {
	Consume(ctx context.Context) error
}

type snapshotConsumerService struct {
	pubSub       *gochannel.GoChannel
	topicName    string
	snapshotRepo contract.SnapshotRepository
	logger       logger.ILogger
}

func NewSnapshotConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	snapshotRepo contract.SnapshotRepository,
	log logger.ILogger,
) ISnapshotConsumerService {
	return &snapshotConsumerService{
		pubSub:       pubSub,
		topicName:    topicName,
		snapshotRepo: snapshotRepo,
		logger:       log,
	}
}

func (cs *snapshotConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *snapshotConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	// Snapshots are last-writer-wins per session, so a failed write is safe
	// to ack: the next mutation re-publishes the full state.
	defer msg.Ack()

	var snap session.Snapshot
	if err := json.Unmarshal(msg.Payload, &snap); err != nil {
		cs.logger.Warn("SnapshotConsumer", "Malformed snapshot payload", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := cs.snapshotRepo.Upsert(ctx, snap.SessionID, msg.Payload); err != nil {
		cs.logger.Warn("SnapshotConsumer", "Failed to persist snapshot", map[string]interface{}{
			"session_id": snap.SessionID,
			"error":      err.Error(),
		})
	}
}
