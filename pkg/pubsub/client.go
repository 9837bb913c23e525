package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"

	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/gcp"
	"github.com/wecr8/damp-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("pubsub: gcp project id is required")
	errTopicRequired     = errors.New("pubsub: events topic is required")
	errNilClient         = errors.New("pubsub: client not initialized")
)

// Client owns the Pub/Sub v2 connection for the domain events topic and,
// in the analytics worker, its subscription.
type Client struct {
	ps      *pubsub.Client
	project string
	cfg     config.PubSubConfig

	// subscribed makes Ping also verify the analytics subscription.
	subscribed atomic.Bool
}

// NewClient requires the events topic to exist already.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger, opts ...option.ClientOption) (*Client, error) {
	project := strings.TrimSpace(gcpCfg.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.EventsTopic) == "" {
		return nil, errTopicRequired
	}

	ps, err := pubsub.NewClient(ctx, project, append(gcp.ClientOptions(gcpCfg), opts...)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: new client: %w", err)
	}
	c := &Client{ps: ps, project: project, cfg: cfg}
	if err := c.checkTopic(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	logg.Info(logg.WithField(ctx, "topic", c.topic(cfg.EventsTopic)), "pubsub ready")
	return c, nil
}

func (c *Client) topic(id string) string {
	if c == nil {
		return ""
	}
	return gcp.ResourceName(c.project, "topics", id)
}

func (c *Client) subscription(id string) string {
	if c == nil {
		return ""
	}
	return gcp.ResourceName(c.project, "subscriptions", id)
}

func (c *Client) checkTopic(ctx context.Context) error {
	name := c.topic(c.cfg.EventsTopic)
	if _, err := c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name}); err != nil {
		if gcp.IsNotFound(err) {
			return fmt.Errorf("pubsub: topic %s does not exist", name)
		}
		return fmt.Errorf("pubsub: get topic %s: %w", name, err)
	}
	return nil
}

func (c *Client) checkSubscription(ctx context.Context) error {
	name := c.subscription(c.cfg.AnalyticsSubscription)
	if name == "" {
		return errors.New("pubsub: analytics subscription is required")
	}
	if _, err := c.ps.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name}); err != nil {
		if gcp.IsNotFound(err) {
			return fmt.Errorf("pubsub: subscription %s does not exist", name)
		}
		return fmt.Errorf("pubsub: get subscription %s: %w", name, err)
	}
	return nil
}

// AnalyticsSubscription checks the configured subscription exists and
// returns a subscriber for it.
func (c *Client) AnalyticsSubscription(ctx context.Context) (*pubsub.Subscriber, error) {
	if c == nil || c.ps == nil {
		return nil, errNilClient
	}
	if err := c.checkSubscription(ctx); err != nil {
		return nil, err
	}
	c.subscribed.Store(true)
	return c.Subscription(c.cfg.AnalyticsSubscription), nil
}

// Subscription accepts a short id or a full resource name.
func (c *Client) Subscription(id string) *pubsub.Subscriber {
	name := c.subscription(id)
	if name == "" || c.ps == nil {
		return nil
	}
	return c.ps.Subscriber(name)
}

func (c *Client) Publisher(id string) *pubsub.Publisher {
	name := c.topic(id)
	if name == "" || c.ps == nil {
		return nil
	}
	return c.ps.Publisher(name)
}

func (c *Client) EventsPublisher() *pubsub.Publisher {
	if c == nil {
		return nil
	}
	return c.Publisher(c.cfg.EventsTopic)
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errNilClient
	}
	if err := c.checkTopic(ctx); err != nil {
		return err
	}
	if c.subscribed.Load() {
		return c.checkSubscription(ctx)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Close()
}
