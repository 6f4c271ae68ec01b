package notification

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	commondomain "orderservice/pkg/common/domain"
)

var (
	ErrQueueFull        = errors.New("notification queue is full")
	ErrDispatcherClosed = errors.New("notification dispatcher is closed")
)

const publishTimeout = 5 * time.Second

// Dispatcher is an EventDispatcher that hands events to a background worker.
// Dispatch never blocks: when the queue is full the event is dropped.
type Dispatcher struct {
	mu        sync.RWMutex
	closed    bool
	queue     chan Message
	publisher Publisher
	logger    logrus.FieldLogger
}

var _ commondomain.EventDispatcher = (*Dispatcher)(nil)

func NewDispatcher(publisher Publisher, buffer int, logger logrus.FieldLogger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		queue:     make(chan Message, buffer),
		publisher: publisher,
		logger:    logger,
	}
}

func (d *Dispatcher) Dispatch(event commondomain.Event) error {
	msg, err := NewMessage(event)
	if err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		d.logger.WithFields(logrus.Fields{"event": msg.Type, "message_id": msg.ID}).Warn("notification queue is full, event dropped")
		return ErrQueueFull
	}
}

// Run publishes queued messages until Close is called and the queue is drained.
func (d *Dispatcher) Run() {
	for msg := range d.queue {
		d.publish(msg)
	}
}

// Close stops accepting events. Messages already queued are still published by Run.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

func (d *Dispatcher) publish(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, msg); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"event":      msg.Type,
			"message_id": msg.ID,
		}).Error("failed to publish event")
	}
}

// SyncDispatcher publishes every event inline. Used by short-lived commands
// that exit before a background worker could drain.
type SyncDispatcher struct {
	publisher Publisher
	logger    logrus.FieldLogger
}

var _ commondomain.EventDispatcher = (*SyncDispatcher)(nil)

func NewSyncDispatcher(publisher Publisher, logger logrus.FieldLogger) *SyncDispatcher {
	return &SyncDispatcher{publisher: publisher, logger: logger}
}

func (d *SyncDispatcher) Dispatch(event commondomain.Event) error {
	msg, err := NewMessage(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return errors.Wrapf(d.publisher.Publish(ctx, msg), "failed to publish %s", msg.Type)
}
