package notification

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// NewLogPublisher writes every message to the service log. It is the default sink
// when no broker is configured.
func NewLogPublisher(logger logrus.FieldLogger) Publisher {
	return &logPublisher{logger: logger}
}

type logPublisher struct {
	logger logrus.FieldLogger
}

func (p *logPublisher) Publish(_ context.Context, msg Message) error {
	p.logger.WithFields(logrus.Fields{
		"message_id":  msg.ID,
		"event":       msg.Type,
		"occurred_at": msg.OccurredAt,
		"payload":     string(msg.Payload),
	}).Info("event published")
	return nil
}

func (p *logPublisher) Close() error {
	return nil
}

// NewMultiPublisher fans a message out to every publisher. A failing sink does not
// stop delivery to the others; all failures are returned together.
func NewMultiPublisher(publishers ...Publisher) Publisher {
	return multiPublisher(publishers)
}

type multiPublisher []Publisher

func (m multiPublisher) Publish(ctx context.Context, msg Message) error {
	var result *multierror.Error
	for _, p := range m {
		if err := p.Publish(ctx, msg); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (m multiPublisher) Close() error {
	var result *multierror.Error
	for _, p := range m {
		if err := p.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
