package tts

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim-dev/speakpath/internal/telemetry/metrics"
	pkgtesting "github.com/jhkim-dev/speakpath/pkg/testing"
)

// needs a running redis instance, skipped unless REDIS_HOST is set
func TestClient_VoicesCache_Integration(t *testing.T) {
	if os.Getenv("REDIS_HOST") == "" {
		t.Skip("REDIS_HOST not set, skipping redis integration test")
	}

	ctx, rdb := pkgtesting.GetRedisClientAndCtx(t)
	t.Cleanup(func() {
		rdb.Del(ctx, voicesCacheKey)
		require.NoError(t, rdb.Close())
	})
	rdb.Del(ctx, voicesCacheKey)

	apiCallsCount := 0
	testServer := newVoicesTestServer(t, &apiCallsCount)
	t.Cleanup(testServer.Close)

	client := NewClient(testServer.URL, "test-api-key", testServer.Client(), rdb, metrics.NewTestManager())

	voices, err := client.GetVoices(ctx, false)
	require.NoError(t, err)
	require.Len(t, voices, 2)
	assert.Equal(t, 1, apiCallsCount)

	// second call is served from the redis cache
	cached, err := client.GetVoices(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, voices, cached)
	assert.Equal(t, 1, apiCallsCount)

	// force refresh goes back to the API
	_, err = client.GetVoices(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, apiCallsCount)
}
