package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/campushq/certificate-service/internal/domain"
	"github.com/campushq/certificate-service/internal/ports"
)

// Accept marks formal acceptance, moving generated -> issued. From that point
// the certificate counts as eligible to download by policy gates upstream.
func (s *Service) Accept(ctx context.Context, certificateID string, actor ports.Actor, origin string) (IssueResponse, error) {
	cert, err := s.certificates.GetByID(ctx, certificateID)
	if err != nil {
		return IssueResponse{}, err
	}
	if !s.canManage(cert, actor) {
		return IssueResponse{}, domain.ErrForbidden
	}
	if !cert.Status.CanTransition(domain.StatusIssued) {
		return IssueResponse{}, fmt.Errorf("%w: cannot accept certificate in status %s", domain.ErrInvalidState, cert.Status)
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"certificate_id": cert.CertificateID,
		"participant_id": cert.ParticipantID,
		"event_id":       cert.EventID,
		"accepted_at":    now,
	})
	event := lifecycleEvent("certificate.issued", cert, payload, now)
	err = s.certificates.ChangeStatusTx(ctx, ports.StatusChangeTxParams{
		CertificateID: certificateID,
		Next:          domain.StatusIssued,
		At:            now,
		Audit:         s.newAudit(certificateID, domain.AuditUpdated, actor, "accepted: status issued", origin),
		Event:         &event,
	})
	if err != nil {
		return IssueResponse{}, err
	}
	cert.Status = domain.StatusIssued
	return toIssueResponse(cert), nil
}

// Revoke is terminal and reachable from any non-terminal state. The record is
// never deleted; revocation is a status so the audit history survives.
func (s *Service) Revoke(ctx context.Context, certificateID, reason string, actor ports.Actor, origin string) error {
	if strings.TrimSpace(reason) == "" {
		return wrapInvalidInput("revocation reason is required")
	}
	cert, err := s.certificates.GetByID(ctx, certificateID)
	if err != nil {
		return err
	}
	if !s.canManage(cert, actor) {
		return domain.ErrForbidden
	}
	if !cert.Status.CanTransition(domain.StatusRevoked) {
		return fmt.Errorf("%w: certificate is already revoked", domain.ErrInvalidState)
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"certificate_id": cert.CertificateID,
		"participant_id": cert.ParticipantID,
		"event_id":       cert.EventID,
		"reason":         reason,
		"revoked_at":     now,
	})
	event := lifecycleEvent("certificate.revoked", cert, payload, now)
	return s.certificates.ChangeStatusTx(ctx, ports.StatusChangeTxParams{
		CertificateID: certificateID,
		Next:          domain.StatusRevoked,
		RevokeReason:  strings.TrimSpace(reason),
		At:            now,
		Audit:         s.newAudit(certificateID, domain.AuditRevoked, actor, "revoked: "+strings.TrimSpace(reason), origin),
		Event:         &event,
	})
}

// Regenerate re-renders the stored artifacts, e.g. after a template change. The
// snapshot fields are write-once and stay untouched; only the artifacts and the
// template version tag move, and an updated audit entry records the replacement.
func (s *Service) Regenerate(ctx context.Context, certificateID string, actor ports.Actor, origin string) error {
	cert, err := s.certificates.GetByID(ctx, certificateID)
	if err != nil {
		return err
	}
	if !s.canManage(cert, actor) {
		return domain.ErrForbidden
	}
	if cert.Revoked() {
		return fmt.Errorf("%w: cannot regenerate a revoked certificate", domain.ErrInvalidState)
	}

	cert.TemplateVersion = s.cfg.TemplateVersion
	artifacts := s.renderArtifacts(ctx, cert)
	now := s.nowFn()
	return s.certificates.ReplaceArtifactsTx(ctx, ports.ReplaceArtifactsTxParams{
		CertificateID:   certificateID,
		Artifacts:       artifacts,
		TemplateVersion: s.cfg.TemplateVersion,
		At:              now,
		Audit:           s.newAudit(certificateID, domain.AuditUpdated, actor, "artifacts regenerated, template "+s.cfg.TemplateVersion, origin),
	})
}
