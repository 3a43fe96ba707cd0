package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/pkg/config"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
	"github.com/angelmondragon/gatewaysync/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config     config.OutboxConfig
	Logger     *logger.Logger
	DB         txRunner
	Broker     interface{ Ping(context.Context) error }
	Publishers func(topic string) publisher
	Repository outboxRepository
	DLQ        dlqRepository
	Resolver   eventResolver
}

// Service drains outbox_events to Pub/Sub. Each batch runs in one
// transaction so row locks, publish marks and dead-letter rows commit
// together.
type Service struct {
	logg        *logger.Logger
	db          txRunner
	broker      interface{ Ping(context.Context) error }
	publishers  func(topic string) publisher
	repo        outboxRepository
	dlq         dlqRepository
	resolver    eventResolver
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database is required")
	case p.Publishers == nil:
		return nil, errors.New("publisher factory is required")
	case p.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case p.DLQ == nil:
		return nil, errors.New("dlq repository is required")
	case p.Resolver == nil:
		return nil, errors.New("event resolver is required")
	}
	s := &Service{
		logg:        p.Logger,
		db:          p.DB,
		broker:      p.Broker,
		publishers:  p.Publishers,
		repo:        p.Repository,
		dlq:         p.DLQ,
		resolver:    p.Resolver,
		batchSize:   p.Config.BatchSize,
		maxAttempts: p.Config.MaxAttempts,
		poll:        time.Duration(p.Config.PollIntervalMS) * time.Millisecond,
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.poll <= 0 {
		s.poll = defaultPollInterval
	}
	return s, nil
}

// Run polls until ctx is canceled. A full batch is followed immediately by
// the next one; batch errors back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if s.broker != nil {
		if err := s.broker.Ping(ctx); err != nil {
			return fmt.Errorf("pubsub ping: %w", err)
		}
	}

	backoff := s.poll
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		drained, err := s.drain(ctx)
		wait := s.poll
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			backoff = min(backoff*2, maxBackoff)
			wait = backoff
		case drained == s.batchSize:
			backoff = s.poll
			continue
		default:
			backoff = s.poll
		}
		if err := sleep(ctx, jitter(wait)); err != nil {
			return err
		}
	}
}

type disposition int

const (
	published disposition = iota
	retry
	terminal
)

// drain handles one batch and returns how many rows it saw.
func (s *Service) drain(ctx context.Context) (int, error) {
	var seen int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		seen = len(rows)
		for _, row := range rows {
			if err := s.settle(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return seen, err
}

// settle publishes row and records the outcome. Only bookkeeping failures
// are returned; they abort the batch transaction.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"outbox_type":   row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})
	outcome, reason, pubErr := s.publish(ctx, row)
	switch outcome {
	case published:
		if err := s.repo.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		s.logg.Info(ctx, "outbox event published")
	case retry:
		s.logg.Warn(ctx, "outbox publish failed: "+pubErr.Error())
		if err := s.repo.MarkFailedTx(tx, row.ID, pubErr); err != nil {
			return fmt.Errorf("mark failed %s: %w", row.ID, err)
		}
	case terminal:
		s.logg.Warn(s.logg.WithField(ctx, "error_reason", reason), "outbox event dead-lettered: "+pubErr.Error())
		msg := pubErr.Error()
		entry := models.OutboxDLQ{
			EventID:       row.ID,
			EventType:     row.EventType,
			AggregateType: row.AggregateType,
			AggregateID:   row.AggregateID,
			Payload:       row.Payload,
			ErrorReason:   reason,
			ErrorMessage:  &msg,
			AttemptCount:  row.AttemptCount,
			FailedAt:      time.Now().UTC(),
		}
		if err := s.dlq.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("insert dlq %s: %w", row.ID, err)
		}
		if err := s.repo.MarkTerminalTx(tx, row.ID, pubErr, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", row.ID, err)
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, row models.OutboxEvent) (disposition, enums.OutboxDLQErrorReason, error) {
	resolved, err := s.resolver.Resolve(row)
	if err != nil {
		reason, ok := registry.ReasonOf(err)
		if !ok {
			reason = enums.OutboxDLQReasonNonRetryable
		}
		return terminal, reason, err
	}
	topic := resolved.Descriptor.Topic
	pub := s.publishers(topic)
	if pub == nil {
		return terminal, enums.OutboxDLQReasonUnroutable, fmt.Errorf("no publisher for topic %s", topic)
	}

	msg := &gcppubsub.Message{
		Data: row.Payload,
		// one key per aggregate keeps an order's status changes in sequence
		OrderingKey: string(row.AggregateType) + ":" + row.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if src := resolved.Envelope.Source; src != nil && src.GatewayEventID != "" {
		msg.Attributes["gateway_event_id"] = src.GatewayEventID
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return terminal, enums.OutboxDLQReasonNonRetryable, fmt.Errorf("publisher for %s returned no result", topic)
	}
	if _, err := result.Get(publishCtx); err != nil {
		if row.AttemptCount+1 >= s.maxAttempts {
			return terminal, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, err)
		}
		return retry, "", err
	}
	return published, "", nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func jitter(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}

// gcpPublisher adapts *pubsub.Publisher to the publisher interface.
type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{p: p}
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return orderedResult{
		result: g.p.Publish(ctx, msg),
		resume: func() { g.p.ResumePublish(msg.OrderingKey) },
	}
}

// orderedResult resumes the ordering key after a failure; the client pauses
// a key on its first publish error.
type orderedResult struct {
	result *gcppubsub.PublishResult
	resume func()
}

func (o orderedResult) Get(ctx context.Context) (string, error) {
	id, err := o.result.Get(ctx)
	if err != nil {
		o.resume()
	}
	return id, err
}
