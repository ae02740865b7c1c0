package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
)

// Commands is the subset of the redis client the publisher uses
type Commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// SnapshotPublisher stores the latest snapshot under a key and announces it on a channel
type SnapshotPublisher struct {
	client  Commands
	key     string
	channel string
	logger  *zap.Logger
}

// NewClient connects to the redis instance behind url
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewSnapshotPublisher creates a new SnapshotPublisher
func NewSnapshotPublisher(client Commands, key, channel string, logger *zap.Logger) *SnapshotPublisher {
	return &SnapshotPublisher{client: client, key: key, channel: channel, logger: logger}
}

// Publish implements domain.SnapshotPublisher
func (p *SnapshotPublisher) Publish(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := p.client.Set(ctx, p.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	p.logger.Debug("snapshot published", zap.String("channel", p.channel), zap.Int64("receivers", receivers))
	return nil
}

// Latest returns the last stored snapshot, nil when none was published yet
func (p *SnapshotPublisher) Latest(ctx context.Context) (*domain.Snapshot, error) {
	data, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// LogPublisher is used when no redis is configured; it only logs the headline numbers
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a new LogPublisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish implements domain.SnapshotPublisher
func (p *LogPublisher) Publish(_ context.Context, snapshot *domain.Snapshot) error {
	if snapshot == nil || snapshot.Global == nil {
		return nil
	}
	p.logger.Info("snapshot",
		zap.Int("total_trades", snapshot.Global.TotalTrades),
		zap.Float64("total_profit", snapshot.Global.TotalProfit),
		zap.Int("open_trades", len(snapshot.OpenTrades)),
	)
	return nil
}
