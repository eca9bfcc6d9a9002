package clients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/models"
)

func TestValkeyCacheUnhealthyIsMiss(t *testing.T) {
	vc := &ValkeyCache{}

	_, ok := vc.Get(context.Background(), "sentiment:m:abc")
	vc.Set(context.Background(), "sentiment:m:abc", models.PredictionResult{Sentiment: "POSITIVE"})

	assert.False(t, ok)
	assert.Equal(t, "unhealthy", vc.Status())

	vc.Healthy().Store(true)
	assert.Equal(t, "ok", vc.Status())
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{nil, false},
		{errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), true},
		{errors.New("read: i/o timeout"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, isConnectionError(tt.err), "%v", tt.err)
	}
}

func TestValkeyCacheSetExpires(t *testing.T) {
	server := miniredis.RunT(t)
	ctx := context.Background()

	vc, err := NewValkeyCache(ctx, config.CacheConfig{Address: server.Addr(), TTL: time.Hour})
	require.NoError(t, err)
	defer vc.Close()

	key := "sentiment:cardiffnlp:abc"
	vc.Set(ctx, key, models.PredictionResult{Sentiment: "POSITIVE", Confidence: 85, Emoji: "😊"})

	assert.Equal(t, time.Hour, server.TTL(key))

	got, ok := vc.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "POSITIVE", got.Sentiment)
	assert.Equal(t, 85.0, got.Confidence)

	server.FastForward(time.Hour)
	_, ok = vc.Get(ctx, key)
	assert.False(t, ok)
}
