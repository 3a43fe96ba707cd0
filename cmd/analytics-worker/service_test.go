package main

import (
	"context"
	"errors"
	"io"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gatewaysync/internal/consumers/analytics"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

func TestSettleAcksOnlyAcceptedMessages(t *testing.T) {
	proc := &fakeProcessor{}
	svc := newTestService(t, &fakeReceiver{}, proc, nil)

	assert.True(t, svc.settle(context.Background(), analytics.Message{ID: "m1"}))

	proc.err = errors.New("bigquery unavailable")
	assert.False(t, svc.settle(context.Background(), analytics.Message{ID: "m2"}))
	assert.Equal(t, []string{"m1", "m2"}, proc.seen)
}

func TestRunStopsOnFailedPing(t *testing.T) {
	recv := &fakeReceiver{}
	svc := newTestService(t, recv, &fakeProcessor{}, map[string]pinger{
		"redis": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
	assert.False(t, recv.called)
}

func TestRunReceivesAfterPings(t *testing.T) {
	recv := &fakeReceiver{err: context.Canceled}
	svc := newTestService(t, recv, &fakeProcessor{}, map[string]pinger{
		"bigquery": pingFunc(func(context.Context) error { return nil }),
	})

	err := svc.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, recv.called)
}

func TestNewServiceValidation(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	_, err := NewService(ServiceParams{Logger: logg, Consumer: &fakeProcessor{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logg, Subscription: &fakeReceiver{}})
	require.Error(t, err)
}

func newTestService(t *testing.T, recv receiver, proc processor, deps map[string]pinger) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Subscription: recv,
		Consumer:     proc,
		Dependencies: deps,
	})
	require.NoError(t, err)
	return svc
}

type fakeReceiver struct {
	called bool
	err    error
}

func (f *fakeReceiver) Receive(context.Context, func(context.Context, *gcppubsub.Message)) error {
	f.called = true
	return f.err
}

type fakeProcessor struct {
	seen []string
	err  error
}

func (f *fakeProcessor) Process(_ context.Context, msg analytics.Message) error {
	f.seen = append(f.seen, msg.ID)
	return f.err
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
