package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"orderservice/pkg/notification"
	"orderservice/pkg/order/application/service"
	"orderservice/pkg/transport"
	"orderservice/pkg/transport/rpc"
)

func serviceCommand() *cli.Command {
	return &cli.Command{
		Name:   "service",
		Usage:  "serve the order API over HTTP and gRPC",
		Action: runService,
	}
}

func runService(c *cli.Context) error {
	cfg, err := parseEnv()
	if err != nil {
		return err
	}
	logger, err := cfg.logger()
	if err != nil {
		return err
	}

	ctx := c.Context
	uow, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer logClose(logger, "storage", closeStorage)

	publisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer logClose(logger, "publishers", publisher.Close)

	dispatcher := notification.NewDispatcher(publisher, cfg.NotificationBuffer, logger)
	orders := service.NewOrderService(uow, dispatcher, logger)

	httpServer := &http.Server{
		Addr:              cfg.ServeHTTPAddress,
		Handler:           transport.NewRouter(orders, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(rpc.UnaryLoggingInterceptor(logger)))
	rpc.RegisterOrderServiceServer(grpcServer, rpc.NewServer(orders, logger))

	grpcListener, err := net.Listen("tcp", cfg.ServeGRPCAddress)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", cfg.ServeGRPCAddress)
	}

	killSignalChan := getKillSignalChan()
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		dispatcher.Run()
		return nil
	})
	group.Go(func() error {
		logger.WithField("address", cfg.ServeHTTPAddress).Info("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("address", cfg.ServeGRPCAddress).Info("starting grpc server")
		return errors.Wrap(grpcServer.Serve(grpcListener), "grpc server failed")
	})
	group.Go(func() error {
		select {
		case <-groupCtx.Done():
		case killSignal := <-killSignalChan:
			logger.WithField("signal", killSignal.String()).Info("shutting down")
		}
		return shutdown(cfg.ShutdownTimeout, httpServer, grpcServer, dispatcher)
	})

	return group.Wait()
}

func shutdown(timeout time.Duration, httpServer *http.Server, grpcServer *grpc.Server, dispatcher *notification.Dispatcher) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := httpServer.Shutdown(ctx)

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		grpcServer.Stop()
	}

	dispatcher.Close()
	return errors.Wrap(err, "failed to shutdown http server")
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}

func logClose(logger logrus.FieldLogger, name string, closer func() error) {
	if err := closer(); err != nil {
		logger.WithError(err).Warnf("failed to close %s", name)
	}
}
