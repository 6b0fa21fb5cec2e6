package main

import (
	"context"
	"log/slog"
	"net/smtp"
	"os"
	"strings"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/pulsecrm/pulse/pkg/cmd"
	"github.com/pulsecrm/pulse/pkg/log"
	"github.com/pulsecrm/pulse/pkg/mailer"
	"github.com/pulsecrm/pulse/pkg/notify"
	"github.com/pulsecrm/pulse/pkg/protocol"
)

func main() {
	command := &cli.Command{
		Name:                  "pulse-worker",
		EnableShellCompletion: true,
		Usage:                 "Deliver queued email alerts and outbound messages",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus provider (gochannel, kafka)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "smtp-addr",
				Usage:   "SMTP server address (host:port); mail is logged when unset",
				Sources: cli.EnvVars("SMTP_ADDR"),
			},
			&cli.StringFlag{
				Name:    "smtp-from",
				Usage:   "Sender address for email alerts",
				Value:   "pulse@localhost",
				Sources: cli.EnvVars("SMTP_FROM"),
			},
			&cli.StringFlag{
				Name:    "smtp-username",
				Usage:   "SMTP auth username (plain auth when set)",
				Sources: cli.EnvVars("SMTP_USERNAME"),
			},
			&cli.StringFlag{
				Name:    "smtp-password",
				Usage:   "SMTP auth password",
				Sources: cli.EnvVars("SMTP_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("pulse-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Pulse Worker")

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
			if err != nil {
				return err
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			worker := NewDeliveryWorker(
				workerID,
				eventBus,
				buildMailer(command, logger),
				notify.NewHTTPPoster(0),
				logger,
			)

			err = worker.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start delivery worker", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func buildMailer(command *cli.Command, logger *slog.Logger) protocol.Mailer {
	addr := command.String("smtp-addr")
	if addr == "" {
		return mailer.NewLogMailer(logger)
	}

	var auth smtp.Auth

	if username := command.String("smtp-username"); username != "" {
		host, _, _ := strings.Cut(addr, ":")
		auth = smtp.PlainAuth("", username, command.String("smtp-password"), host)
	}

	return mailer.NewSMTPMailer(addr, command.String("smtp-from"), auth)
}
