package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campushq/certificate-service/internal/domain"
	"github.com/campushq/certificate-service/internal/ports"
)

// OutboxRepository drives the publish-retry workflow for certificate lifecycle
// events. Claims use SKIP LOCKED so multiple workers never pick the same batch,
// and every state change is guarded by the claim token that acquired the rows.
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	model := toOutboxModel(event)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

func (r *OutboxRepository) ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	var models []certOutboxModel
	err := r.db.WithContext(ctx).Raw(`
		UPDATE certificate_outbox
		SET claim_token = ?, claim_until = ?
		WHERE outbox_id IN (
			SELECT outbox_id FROM certificate_outbox
			WHERE published_at IS NULL
			  AND dead_lettered_at IS NULL
			  AND (claim_until IS NULL OR claim_until < now())
			ORDER BY created_at ASC
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		claimToken, claimUntil, limit,
	).Scan(&models).Error
	if err != nil {
		return nil, fmt.Errorf("claim unpublished outbox events: %w", err)
	}
	out := make([]ports.OutboxRecord, 0, len(models))
	for _, m := range models {
		out = append(out, toOutboxRecord(m))
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&certOutboxModel{}).
		Where("outbox_id = ? AND claim_token = ? AND published_at IS NULL", outboxID, claimToken).
		Updates(map[string]any{
			"published_at": at,
			"claim_token":  nil,
			"claim_until":  nil,
		})
	if res.Error != nil {
		return fmt.Errorf("mark outbox event published: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&certOutboxModel{}).
		Where("outbox_id = ? AND claim_token = ? AND published_at IS NULL", outboxID, claimToken).
		Updates(map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_error":    errMsg,
			"last_error_at": at,
			"claim_token":   nil,
			"claim_until":   nil,
		})
	if res.Error != nil {
		return fmt.Errorf("mark outbox event failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OutboxRepository) MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&certOutboxModel{}).
		Where("outbox_id = ? AND claim_token = ? AND published_at IS NULL", outboxID, claimToken).
		Updates(map[string]any{
			"retry_count":      gorm.Expr("retry_count + 1"),
			"last_error":       errMsg,
			"last_error_at":    at,
			"dead_lettered_at": at,
			"claim_token":      nil,
			"claim_until":      nil,
		})
	if res.Error != nil {
		return fmt.Errorf("mark outbox event dead-lettered: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
