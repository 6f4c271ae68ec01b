package main

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"orderservice/pkg/notification"
	"orderservice/pkg/storage"
	"orderservice/pkg/storage/memstore"
	"orderservice/pkg/storage/sqlstore"
)

const memoryDriver = "memory"

var ErrUnknownSink = errors.New("unknown notification sink")

func openStorage(ctx context.Context, cfg *config, logger logrus.FieldLogger) (storage.UnitOfWork, func() error, error) {
	if cfg.StorageDriver == memoryDriver {
		logger.Warn("using in-memory storage, data is lost on exit")
		return memstore.New(), func() error { return nil }, nil
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MigrateOnStart {
		if err := sqlstore.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("database schema is up to date")
	}
	return sqlstore.NewStore(db), db.Close, nil
}

func openDatabase(ctx context.Context, cfg *config) (*sqlx.DB, error) {
	if cfg.StorageDriver == memoryDriver {
		return nil, errors.Wrap(sqlstore.ErrUnsupportedDriver, "in-memory storage has no database")
	}
	return sqlstore.Open(ctx, cfg.database())
}

func newPublisher(ctx context.Context, cfg *config, logger logrus.FieldLogger) (notification.Publisher, error) {
	var publishers []notification.Publisher
	closeAll := func() {
		_ = notification.NewMultiPublisher(publishers...).Close()
	}

	for _, sink := range cfg.NotificationSinks {
		sink = strings.ToLower(strings.TrimSpace(sink))
		var (
			publisher notification.Publisher
			err       error
		)
		switch sink {
		case "":
			continue
		case "log":
			publishers = append(publishers, notification.NewLogPublisher(logger))
			continue
		case "amqp":
			publisher, err = notification.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		case "kafka":
			publisher = notification.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		case "redis":
			publisher, err = notification.NewRedisPublisher(ctx, cfg.RedisURL, cfg.RedisStream)
		default:
			closeAll()
			return nil, errors.Wrap(ErrUnknownSink, sink)
		}
		if err != nil {
			closeAll()
			return nil, errors.Wrapf(err, "failed to connect %s sink", sink)
		}
		publishers = append(publishers, notification.WithCircuitBreaker(sink, publisher, notification.DefaultBreakerSettings, logger))
	}

	if len(publishers) == 1 {
		return publishers[0], nil
	}
	return notification.NewMultiPublisher(publishers...), nil
}
