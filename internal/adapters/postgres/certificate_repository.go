package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campushq/certificate-service/internal/domain"
	"github.com/campushq/certificate-service/internal/ports"
)

// CertificateRepository persists certificates in Postgres. The partial unique
// index on (participant_id, event_id) where status is not revoked is the last
// line of defense for the one-active-certificate invariant; a violation is
// surfaced as domain.ErrAlreadyExists so the application can re-read the winner.
type CertificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

func (r *CertificateRepository) CreateTx(ctx context.Context, params ports.CreateCertificateTxParams) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := toCertificateModel(params.Certificate)
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		for _, a := range params.Artifacts {
			artifact := toArtifactModel(params.Certificate.CertificateID, a)
			if err := tx.Create(&artifact).Error; err != nil {
				return err
			}
		}
		audit := toAuditModel(params.Created)
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}
		outbox := toOutboxModel(params.Event)
		return tx.Create(&outbox).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

func (r *CertificateRepository) GetByID(ctx context.Context, certificateID string) (domain.Certificate, error) {
	var model certificateModel
	err := r.db.WithContext(ctx).
		Where("certificate_id = ?", certificateID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Certificate{}, domain.ErrNotFound
		}
		return domain.Certificate{}, fmt.Errorf("get certificate by id: %w", err)
	}
	return toDomainCertificate(model), nil
}

func (r *CertificateRepository) GetActiveByPair(ctx context.Context, participantID, eventID uuid.UUID) (domain.Certificate, error) {
	var model certificateModel
	err := r.db.WithContext(ctx).
		Where("participant_id = ? AND event_id = ? AND status <> ?", participantID, eventID, string(domain.StatusRevoked)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Certificate{}, domain.ErrNotFound
		}
		return domain.Certificate{}, fmt.Errorf("get active certificate by pair: %w", err)
	}
	return toDomainCertificate(model), nil
}

func (r *CertificateRepository) ListByEvent(ctx context.Context, eventID uuid.UUID, limit, offset int) ([]domain.Certificate, error) {
	var models []certificateModel
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("issued_at DESC, certificate_id DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list certificates by event: %w", err)
	}
	out := make([]domain.Certificate, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainCertificate(m))
	}
	return out, nil
}

func (r *CertificateRepository) ChangeStatusTx(ctx context.Context, params ports.StatusChangeTxParams) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model certificateModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("certificate_id = ?", params.CertificateID).
			First(&model).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		// Re-check under lock: a concurrent lifecycle call may have won.
		if !domain.Status(model.Status).CanTransition(params.Next) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidState, model.Status, params.Next)
		}

		updates := map[string]any{
			"status":     string(params.Next),
			"updated_at": params.At,
		}
		if params.Next == domain.StatusRevoked {
			updates["revoked_at"] = params.At
			updates["revoke_reason"] = params.RevokeReason
		}
		if err := tx.Model(&certificateModel{}).
			Where("certificate_id = ?", params.CertificateID).
			Updates(updates).Error; err != nil {
			return err
		}

		audit := toAuditModel(params.Audit)
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}
		if params.Event != nil {
			outbox := toOutboxModel(*params.Event)
			if err := tx.Create(&outbox).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidState) {
			return err
		}
		return fmt.Errorf("change certificate status: %w", err)
	}
	return nil
}

func (r *CertificateRepository) ReplaceArtifactsTx(ctx context.Context, params ports.ReplaceArtifactsTxParams) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&certificateModel{}).
			Where("certificate_id = ? AND status <> ?", params.CertificateID, string(domain.StatusRevoked)).
			Updates(map[string]any{
				"template_version": params.TemplateVersion,
				"updated_at":       params.At,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		if err := tx.Where("certificate_id = ?", params.CertificateID).
			Delete(&artifactModel{}).Error; err != nil {
			return err
		}
		for _, a := range params.Artifacts {
			artifact := toArtifactModel(params.CertificateID, a)
			if err := tx.Create(&artifact).Error; err != nil {
				return err
			}
		}
		audit := toAuditModel(params.Audit)
		return tx.Create(&audit).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("replace certificate artifacts: %w", err)
	}
	return nil
}

func (r *CertificateRepository) RecordDownloadTx(ctx context.Context, certificateID string, at time.Time, audit domain.AuditEntry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&certificateModel{}).
			Where("certificate_id = ?", certificateID).
			Updates(map[string]any{
				"download_count":  gorm.Expr("download_count + 1"),
				"last_downloaded": at,
				"updated_at":      at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		model := toAuditModel(audit)
		return tx.Create(&model).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("record certificate download: %w", err)
	}
	return nil
}

func (r *CertificateRepository) ListArtifacts(ctx context.Context, certificateID string) ([]domain.Artifact, error) {
	var models []artifactModel
	err := r.db.WithContext(ctx).
		Where("certificate_id = ?", certificateID).
		Order("format ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list certificate artifacts: %w", err)
	}
	out := make([]domain.Artifact, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainArtifact(m))
	}
	return out, nil
}
