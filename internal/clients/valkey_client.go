package clients

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/models"
)

// ValkeyCache caches mapped prediction results. It is safe for concurrent
// use. While marked unhealthy every lookup is a miss and writes are skipped.
type ValkeyCache struct {
	Client  valkey.Client
	ttl     time.Duration
	healthy atomic.Bool
}

func NewValkeyCache(ctx context.Context, cfg config.CacheConfig) (*ValkeyCache, error) {
	opts := valkey.ClientOption{
		InitAddress: []string{
			cfg.Address,
		},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
		DisableCache:     true,
	}

	if cfg.TLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	vc := &ValkeyCache{Client: client, ttl: cfg.TTL}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := vc.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}

	vc.healthy.Store(true)
	slog.Info("[ValkeyClient] Successfully connected to valkey",
		slog.String("address", cfg.Address))
	return vc, nil
}

func (vc *ValkeyCache) Ping(ctx context.Context) error {
	return vc.Client.Do(ctx, vc.Client.B().Ping().Build()).Error()
}

// Healthy exposes the flag driven by the health monitor.
func (vc *ValkeyCache) Healthy() *atomic.Bool {
	return &vc.healthy
}

func (vc *ValkeyCache) Status() string {
	if vc.healthy.Load() {
		return "ok"
	}
	return "unhealthy"
}

func (vc *ValkeyCache) Get(ctx context.Context, key string) (models.PredictionResult, bool) {
	var result models.PredictionResult
	if !vc.healthy.Load() {
		return result, false
	}

	res := vc.DoWithRetry(ctx, func() valkey.Completed {
		return vc.Client.B().Get().Key(key).Build()
	}, 2)
	raw, err := res.AsBytes()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			vc.markIfConnectionError(err)
			slog.Warn("[ValkeyClient] Cache lookup failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return result, false
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		slog.Warn("[ValkeyClient] Dropping undecodable cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return result, false
	}
	return result, true
}

func (vc *ValkeyCache) Set(ctx context.Context, key string, result models.PredictionResult) {
	if !vc.healthy.Load() {
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		return
	}

	res := vc.DoWithRetry(ctx, func() valkey.Completed {
		cmd := vc.Client.B().Set().Key(key).Value(string(body))
		if vc.ttl <= 0 {
			return cmd.Build()
		}
		return cmd.Ex(vc.ttl).Build()
	}, 2)
	if err := res.Error(); err != nil {
		vc.markIfConnectionError(err)
		slog.Warn("[ValkeyClient] Cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

func (vc *ValkeyCache) Close() {
	vc.Client.Close()
}

// DoWithRetry takes a builder because a command is recycled by the client
// once executed.
func (vc *ValkeyCache) DoWithRetry(ctx context.Context, build func() valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.Client.Do(ctx, build())
		if err := result.Error(); err == nil || valkey.IsValkeyNil(err) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		time.Sleep(250 * time.Millisecond)
	}

	return result
}

func (vc *ValkeyCache) markIfConnectionError(err error) {
	if isConnectionError(err) {
		vc.healthy.Store(false)
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
