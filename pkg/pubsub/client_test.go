package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wecr8/damp-backend/pkg/config"
)

func TestResourceNamesUseProject(t *testing.T) {
	c := &Client{project: "damp-prod"}
	require.Equal(t, "projects/damp-prod/topics/damp-events", c.topic("damp-events"))
	require.Equal(t, "projects/damp-prod/subscriptions/damp-events-analytics", c.subscription("damp-events-analytics"))
	require.Empty(t, (&Client{}).topic("t"))
}

func TestNewClientRequiresProjectAndTopic(t *testing.T) {
	ctx := context.Background()
	_, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{EventsTopic: "t"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errTopicRequired)
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("t"))
	require.Nil(t, c.Subscription("s"))
	require.Nil(t, c.EventsPublisher())
	require.NoError(t, c.Close())
	require.ErrorIs(t, c.Ping(context.Background()), errNilClient)
	_, err := c.AnalyticsSubscription(context.Background())
	require.ErrorIs(t, err, errNilClient)
}
