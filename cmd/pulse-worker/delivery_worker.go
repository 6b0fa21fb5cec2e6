// Package main provides the Pulse delivery worker, which drains queued
// email alerts and outbound messages from the event bus.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pulsecrm/pulse/pkg/eventbus"
	"github.com/pulsecrm/pulse/pkg/events"
	"github.com/pulsecrm/pulse/pkg/protocol"
)

type DeliveryWorker struct {
	id       string
	logger   *slog.Logger
	eventBus eventbus.EventBus
	mailer   protocol.Mailer
	poster   protocol.Poster
}

func NewDeliveryWorker(
	id string,
	eventBus eventbus.EventBus,
	mailer protocol.Mailer,
	poster protocol.Poster,
	logger *slog.Logger,
) *DeliveryWorker {
	return &DeliveryWorker{
		id:       id,
		logger:   logger.With("module", "delivery-worker", "worker_id", id),
		eventBus: eventBus,
		mailer:   mailer,
		poster:   poster,
	}
}

func (w *DeliveryWorker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting delivery worker")

	err := w.eventBus.Handle(events.EmailQueuedEvent, w.handleEmailQueued)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.OutboundQueuedEvent, w.handleOutboundQueued)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Delivery worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	w.logger.InfoContext(ctx, "Shutting down delivery worker...")

	return nil
}

func (w *DeliveryWorker) handleEmailQueued(ctx context.Context, event any) error {
	queued, ok := event.(*events.EmailQueued)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for EmailQueued")

		return nil
	}

	logger := w.logger.With("event_id", queued.ID, "recipients", len(queued.To))
	logger.InfoContext(ctx, "Delivering queued email")

	if err := w.mailer.Send(ctx, queued.To, queued.Subject, queued.Body); err != nil {
		logger.ErrorContext(ctx, "Failed to deliver email", "error", err)

		return err
	}

	return nil
}

func (w *DeliveryWorker) handleOutboundQueued(ctx context.Context, event any) error {
	queued, ok := event.(*events.OutboundQueued)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for OutboundQueued")

		return nil
	}

	logger := w.logger.With("event_id", queued.ID, "url", queued.URL)
	logger.InfoContext(ctx, "Delivering queued outbound message")

	if err := w.poster.Post(ctx, queued.URL, queued.Payload); err != nil {
		logger.ErrorContext(ctx, "Failed to deliver outbound message", "error", err)

		return err
	}

	return nil
}
