package main

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/gatewaysync/internal/consumers/analytics"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type processor interface {
	Process(ctx context.Context, msg analytics.Message) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Subscription receiver
	Consumer     processor
	// Dependencies are pinged once before receiving starts.
	Dependencies map[string]pinger
}

// Service pulls domain events off the analytics subscription. A message is
// acked once the consumer accepts it and nacked for redelivery otherwise.
type Service struct {
	logg     *logger.Logger
	sub      receiver
	consumer processor
	deps     map[string]pinger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Subscription == nil {
		return nil, errors.New("subscription is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("consumer is required")
	}
	return &Service{
		logg:     params.Logger,
		sub:      params.Subscription,
		consumer: params.Consumer,
		deps:     params.Dependencies,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	for name, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "analytics worker receiving")
	return s.sub.Receive(ctx, s.handle)
}

func (s *Service) handle(ctx context.Context, msg *gcppubsub.Message) {
	if s.settle(ctx, analytics.Message{ID: msg.ID, Attributes: msg.Attributes, Data: msg.Data}) {
		msg.Ack()
		return
	}
	msg.Nack()
}

// settle reports whether the message should be acked.
func (s *Service) settle(ctx context.Context, msg analytics.Message) bool {
	if err := s.consumer.Process(ctx, msg); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "message_id", msg.ID), "analytics message failed; nacking", err)
		return false
	}
	return true
}
