package ontology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGRPCClient_RequiresAddress(t *testing.T) {
	cfg := DefaultConfig()
	client, err := NewGRPCClient(cfg, nil)
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()
	assert.EqualValues(t, 5, cfg.MinRequests)
	assert.Equal(t, 0.5, cfg.FailureThreshold)
	assert.Positive(t, cfg.Timeout)
	assert.Positive(t, cfg.Interval)
}

func TestNewNoOpClient(t *testing.T) {
	client := NewNoOpClient()
	ctx := context.Background()

	result, err := client.SubmitArticle(ctx, ArticleRef{ArticleID: "publisher-1-article-1"})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrDisabled)

	assert.ErrorIs(t, client.Health(ctx), ErrDisabled)
	assert.NoError(t, client.Close())
}
