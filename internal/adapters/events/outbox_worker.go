package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/certificate-service/internal/ports"
)

// OutboxWorker drains the certificate outbox: it claims unpublished rows with a
// per-cycle token, pushes them to the publisher and records the result. Rows
// that keep failing past the retry budget are dead-lettered so one poison event
// cannot stall the stream.
type OutboxWorker struct {
	outbox    ports.OutboxRepository
	publisher ports.EventPublisher
	logger    *slog.Logger

	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
	nowFn      func() time.Time
}

type OutboxWorkerConfig struct {
	Interval   time.Duration
	BatchSize  int
	ClaimTTL   time.Duration
	MaxRetries int
}

func NewOutboxWorker(outbox ports.OutboxRepository, publisher ports.EventPublisher, logger *slog.Logger, cfg OutboxWorkerConfig) *OutboxWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxWorker{
		outbox:     outbox,
		publisher:  publisher,
		logger:     logger,
		interval:   cfg.Interval,
		batchSize:  cfg.BatchSize,
		claimTTL:   cfg.ClaimTTL,
		maxRetries: cfg.MaxRetries,
		nowFn:      time.Now,
	}
}

// Run blocks until ctx is cancelled, draining one batch per tick.
func (w *OutboxWorker) Run(ctx context.Context) {
	w.logger.InfoContext(ctx, "outbox worker started",
		"module", "events",
		"layer", "adapter",
		"operation", "outbox_run",
		"outcome", "start",
		"interval", w.interval.String(),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "outbox worker stopped",
				"module", "events",
				"layer", "adapter",
				"operation", "outbox_run",
				"outcome", "stopped",
			)
			return
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce claims and publishes at most one batch. Exposed for tests and for
// on-demand flushes at shutdown.
func (w *OutboxWorker) DrainOnce(ctx context.Context) {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimUnpublished(ctx, w.batchSize, claimToken, w.nowFn().Add(w.claimTTL))
	if err != nil {
		w.logger.ErrorContext(ctx, "outbox claim failed",
			"module", "events",
			"layer", "adapter",
			"operation", "outbox_claim",
			"outcome", "error",
			"error", err,
		)
		return
	}

	for _, record := range records {
		if ctx.Err() != nil {
			return
		}
		err := w.publisher.Publish(ctx, record.EventType, record.PartitionKey, record.Payload)
		now := w.nowFn()
		if err == nil {
			if markErr := w.outbox.MarkPublished(ctx, record.OutboxID, claimToken, now); markErr != nil {
				w.logger.ErrorContext(ctx, "outbox mark published failed",
					"module", "events",
					"layer", "adapter",
					"operation", "outbox_publish",
					"outcome", "error",
					"outbox_id", record.OutboxID,
					"error", markErr,
				)
			}
			continue
		}

		if record.RetryCount+1 >= w.maxRetries {
			w.logger.ErrorContext(ctx, "outbox event dead-lettered",
				"module", "events",
				"layer", "adapter",
				"operation", "outbox_publish",
				"outcome", "dead_lettered",
				"outbox_id", record.OutboxID,
				"event_type", record.EventType,
				"retry_count", record.RetryCount+1,
				"error", err,
			)
			_ = w.outbox.MarkDeadLettered(ctx, record.OutboxID, claimToken, err.Error(), now)
			continue
		}

		w.logger.WarnContext(ctx, "outbox publish failed, will retry",
			"module", "events",
			"layer", "adapter",
			"operation", "outbox_publish",
			"outcome", "retry",
			"outbox_id", record.OutboxID,
			"event_type", record.EventType,
			"retry_count", record.RetryCount+1,
			"error", err,
		)
		_ = w.outbox.MarkFailed(ctx, record.OutboxID, claimToken, err.Error(), now)
	}
}
