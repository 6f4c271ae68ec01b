package notification

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// streamMaxLen caps the stream approximately; consumers are expected to keep up.
const streamMaxLen = 100000

func NewRedisPublisher(ctx context.Context, url, stream string) (Publisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to ping redis")
	}
	return newRedisPublisher(client, stream), nil
}

func newRedisPublisher(client redis.UniversalClient, stream string) Publisher {
	return &redisPublisher{client: client, stream: stream}
}

type redisPublisher struct {
	client redis.UniversalClient
	stream string
}

func (p *redisPublisher) Publish(ctx context.Context, msg Message) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"id":          msg.ID.String(),
			"type":        msg.Type,
			"occurred_at": msg.OccurredAt.Format(time.RFC3339Nano),
			"payload":     string(msg.Payload),
		},
	}).Err()
	return errors.Wrapf(err, "failed to publish %s to redis stream %s", msg.Type, p.stream)
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}
