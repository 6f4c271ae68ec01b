package notification

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	// Failures is the number of consecutive failures that opens the breaker.
	Failures uint32
	// Cooldown is how long the breaker stays open before letting a probe through.
	Cooldown time.Duration
}

var DefaultBreakerSettings = BreakerSettings{Failures: 5, Cooldown: 30 * time.Second}

// WithCircuitBreaker stops calling a broker that keeps failing. While the breaker is
// open Publish fails immediately with gobreaker.ErrOpenState.
func WithCircuitBreaker(name string, publisher Publisher, settings BreakerSettings, logger logrus.FieldLogger) Publisher {
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"sink": name,
				"from": from.String(),
				"to":   to.String(),
			}).Warn("notification circuit breaker state changed")
		},
	})
	return &breakerPublisher{publisher: publisher, breaker: breaker}
}

type breakerPublisher struct {
	publisher Publisher
	breaker   *gobreaker.CircuitBreaker[struct{}]
}

func (p *breakerPublisher) Publish(ctx context.Context, msg Message) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(ctx, msg)
	})
	return err
}

func (p *breakerPublisher) Close() error {
	return p.publisher.Close()
}
