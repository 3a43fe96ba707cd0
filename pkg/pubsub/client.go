// Package pubsub wraps the Pub/Sub v2 client for publishing and consuming
// domain events.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/gatewaysync/pkg/config"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub domain topic is required")
)

type Client struct {
	client    *pubsub.Client
	projectID string
	topic     string
}

// NewClient dials Pub/Sub and checks the domain topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	topic := strings.TrimSpace(cfg.DomainTopic)
	if topic == "" {
		return nil, errTopicRequired
	}

	psClient, err := pubsub.NewClient(ctx, projectID, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, projectID: projectID, topic: topic}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	logg.Info(logg.WithField(ctx, "topic", c.TopicName(topic)), "pubsub client initialized")
	return c, nil
}

// Publisher returns an ordered publisher for topic (an id or a full
// resource name). Messages sharing an ordering key are delivered in order.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	name := c.TopicName(topic)
	if name == "" {
		return nil
	}
	p := c.client.Publisher(name)
	p.EnableMessageOrdering = true
	return p
}

// Subscriber returns a receiver for subscription (an id or a full resource
// name), or nil when none is configured.
func (c *Client) Subscriber(subscription string, maxOutstanding int) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	name := c.SubscriptionName(subscription)
	if name == "" {
		return nil
	}
	sub := c.client.Subscriber(name)
	if maxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	}
	return sub
}

// Ping fails when the domain topic is missing or unreachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	name := c.TopicName(c.topic)
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("topic %q does not exist", name)
	}
	return fmt.Errorf("checking topic %q: %w", name, err)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// TopicName expands a topic id to projects/<project>/topics/<id>.
func (c *Client) TopicName(topic string) string {
	topic = strings.TrimSpace(topic)
	if c == nil || topic == "" {
		return ""
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic
	}
	return fmt.Sprintf("projects/%s/topics/%s", c.projectID, topic)
}

// SubscriptionName expands a subscription id to
// projects/<project>/subscriptions/<id>.
func (c *Client) SubscriptionName(subscription string) string {
	subscription = strings.TrimSpace(subscription)
	if c == nil || subscription == "" {
		return ""
	}
	if strings.HasPrefix(subscription, "projects/") && strings.Contains(subscription, "/subscriptions/") {
		return subscription
	}
	return fmt.Sprintf("projects/%s/subscriptions/%s", c.projectID, subscription)
}
