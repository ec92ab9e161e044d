package main // activity consumer entry point

import (
	"context"   // cancellation on shutdown
	"errors"    // recognise a cancelled run
	"os"        // os.Interrupt
	"os/signal" // catch SIGINT/SIGTERM
	"syscall"   // SIGTERM

	"github.com/joho/godotenv"   // load .env for local development
	"github.com/sirupsen/logrus" // structured logging

	"github.com/iliyamo/mindful-backend/internal/config" // consumer settings
	"github.com/iliyamo/mindful-backend/internal/queue"  // activity queue consumer
)

func main() {
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	cfg := config.LoadConsumer()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: cfg.RabbitMQURL, LogDir: cfg.LogDir}
	logrus.WithFields(logrus.Fields{"queue": queue.ActivityQueue, "log_dir": cfg.LogDir}).Info("activity-consumer: starting")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logrus.WithError(err).Fatal("activity-consumer: stopped")
	}
	logrus.Info("activity-consumer: stopped")
}
