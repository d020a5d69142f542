package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/campushq/certificate-service/internal/domain"
)

// AuditLogRepository is the Postgres-backed append-only trail. Rows are only
// ever inserted; ordering per certificate is the bigserial id.
type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	model := toAuditModel(entry)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *AuditLogRepository) ListByCertificate(ctx context.Context, certificateID string) ([]domain.AuditEntry, error) {
	var models []auditEntryModel
	err := r.db.WithContext(ctx).
		Where("certificate_id = ?", certificateID).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	out := make([]domain.AuditEntry, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainAudit(m))
	}
	return out, nil
}
