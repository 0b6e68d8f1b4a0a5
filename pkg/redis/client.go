package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/onurcolak/waapi-campaign-service/environments"
	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/pkg/logger"
)

type Client struct {
	client valkey.Client
}

const (
	progressKeyPrefix = "campaign_progress:"
	progressTTL       = 24 * time.Hour
)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

func progressKey(campaignID int64) string {
	return progressKeyPrefix + strconv.FormatInt(campaignID, 10)
}

// CacheProgress stores the latest progress snapshot of a campaign run.
func (c *Client) CacheProgress(ctx context.Context, p domain.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	cmd := c.client.B().Set().Key(progressKey(p.CampaignID)).Value(string(data)).Ex(progressTTL).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to cache progress: %w", err)
	}

	logger.Debugf("Cached progress for campaign %d (%d sent, %d failed)", p.CampaignID, p.SuccessCount, p.FailureCount)

	return nil
}

// GetProgress returns the cached snapshot, or nil when none is cached.
func (c *Client) GetProgress(ctx context.Context, campaignID int64) (*domain.Progress, error) {
	result := c.client.Do(ctx, c.client.B().Get().Key(progressKey(campaignID)).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached progress: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached progress: %w", err)
	}

	var p domain.Progress
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}

	return &p, nil
}

// DeleteProgress drops the snapshot, used when a campaign is deleted.
func (c *Client) DeleteProgress(ctx context.Context, campaignID int64) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(progressKey(campaignID)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete cached progress: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
