package redis

import (
	"context"
	"log/slog"

	"github.com/aretw0/geofence/internal/logging"
	backend "github.com/redis/go-redis/v9"
)

// Publisher implements ports.RetirementListener by publishing every retired
// region identifier on a Redis pub/sub channel, so processes other than the
// one handling transitions can follow rotations.
type Publisher struct {
	client  *backend.Client
	channel string
	logger  *slog.Logger
}

// NewPublisher creates a publisher on the configured channel.
func NewPublisher(client *backend.Client, logger *slog.Logger, opts ...Option) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{
		client:  client,
		channel: buildOptions(opts).channel,
		logger:  logger,
	}
}

// Channel returns the pub/sub channel name.
func (p *Publisher) Channel() string {
	return p.channel
}

// Retired publishes id. Failures are logged; the rotation itself is unaffected.
func (p *Publisher) Retired(ctx context.Context, id string) {
	if err := p.client.Publish(ctx, p.channel, id).Err(); err != nil {
		p.logger.Warn("failed to publish retirement", "region", id, "error", err)
	}
}
