package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"calsync/internal/calendar/domain"
	"calsync/internal/calendar/usecase"

	"cloud.google.com/go/pubsub"
)

// reportEvent is the event attribute set on published run reports.
const reportEvent = "calendar_sync.completed"

// PubSubTrigger runs the sync whenever a tick arrives on a subscription,
// typically fed by a Cloud Scheduler job.
type PubSubTrigger struct {
	client      *pubsub.Client
	subName     string
	syncUsecase usecase.SyncUsecase
	publisher   ReportPublisher
}

// NewPubSubTrigger creates a trigger. publisher may be nil.
func NewPubSubTrigger(client *pubsub.Client, subName string, syncUsecase usecase.SyncUsecase, publisher ReportPublisher) *PubSubTrigger {
	return &PubSubTrigger{
		client:      client,
		subName:     subName,
		syncUsecase: syncUsecase,
		publisher:   publisher,
	}
}

// Start blocks receiving ticks until ctx is done.
func (t *PubSubTrigger) Start(ctx context.Context) error {
	sub := t.client.Subscription(t.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check subscription %s: %w", t.subName, err)
	}
	if !exists {
		return fmt.Errorf("subscription %s does not exist", t.subName)
	}

	// one tick at a time; overlapping runs across instances are stopped by the lease
	sub.ReceiveSettings.MaxOutstandingMessages = 1
	sub.ReceiveSettings.NumGoroutines = 1

	log.Printf("[PubSub] Listening for sync ticks on subscription: %s", t.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		log.Printf("[PubSub] Received tick %s", msg.ID)
		// runs can outlive the ack deadline
		msg.Ack()
		runSync(ctx, t.syncUsecase, t.publisher, "pubsub")
	})
	if err != nil {
		return fmt.Errorf("receive on %s: %w", t.subName, err)
	}
	return nil
}

// TopicPublisher publishes run reports as JSON to a topic.
type TopicPublisher struct {
	topic *pubsub.Topic
}

func NewTopicPublisher(client *pubsub.Client, topicID string) *TopicPublisher {
	return &TopicPublisher{topic: client.Topic(topicID)}
}

func (p *TopicPublisher) PublishReport(ctx context.Context, report *domain.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event": reportEvent},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish run report: %w", err)
	}
	log.Printf("[PubSub] Published run report %s", id)
	return nil
}

// Stop flushes pending publishes.
func (p *TopicPublisher) Stop() {
	p.topic.Stop()
}
