package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/mq"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/notify"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store/drivers/postgres"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store/drivers/sqlite"
)

// OpenStore connects to the configured database. Migrations are not applied.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.DatabaseDriver {
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.Postgres.URL())
	case DriverSQLite, "":
		return sqlite.NewStore(cfg.DatabaseFile)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

// Migrate applies every pending migration for the configured driver.
func Migrate(ctx context.Context, cfg Config) error {
	db, err := OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return nil
}

// OpenBroker connects to the message broker backing the rabbitmq and pubsub
// notifiers.
func OpenBroker(ctx context.Context, cfg Config) (mq.Backend, error) {
	switch cfg.Notifier {
	case NotifierRabbitMQ:
		return mq.NewRabbitMQClient(cfg.RabbitMQ)
	case NotifierPubSub:
		return mq.NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("notifier %q has no broker", cfg.Notifier)
	}
}

// newNotifier builds the Notifier the dispatcher delivers through. The
// returned backend is nil unless a broker was opened.
func newNotifier(ctx context.Context, cfg Config, logger *slog.Logger) (notify.Notifier, mq.Backend, error) {
	switch cfg.Notifier {
	case NotifierSMTP:
		n, err := notify.NewSMTPNotifier(cfg.SMTP)
		if err != nil {
			return nil, nil, err
		}
		return n, nil, nil

	case NotifierRabbitMQ, NotifierPubSub:
		backend, err := OpenBroker(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to %s: %w", cfg.Notifier, err)
		}
		return &notify.QueueNotifier{Publisher: mq.New(backend), Channel: cfg.NotifierChannel}, backend, nil

	default:
		return &notify.LogNotifier{Logger: logger}, nil, nil
	}
}
