package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/app"
)

var mailerCmd = &cobra.Command{
	Use:   "mailer",
	Short: "Relays queued notifications to SMTP",
	Long: `Consumes the notification channel from RabbitMQ or Pub/Sub and delivers
each message over SMTP. Requires NOTIFIER=rabbitmq or NOTIFIER=pubsub and
SMTP_HOST.

	identity mailer
`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := app.LoadConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.Notifier != app.NotifierRabbitMQ && cfg.Notifier != app.NotifierPubSub {
			return fmt.Errorf("mailer needs a broker, NOTIFIER is %q", cfg.Notifier)
		}
		if cfg.SMTP.Host == "" {
			return fmt.Errorf("mailer needs SMTP_HOST")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return app.RunMailer(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(mailerCmd)
}
