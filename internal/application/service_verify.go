package application

import (
	"context"
	"errors"

	"github.com/campushq/certificate-service/internal/domain"
	"github.com/campushq/certificate-service/internal/ports"
)

// Verify is the public, unauthenticated lookup. An absent or revoked certificate
// yields {valid:false} without distinguishing the two, so the endpoint leaks no
// internal state. The view reflects the snapshot captured at issuance, never the
// current event record.
func (s *Service) Verify(ctx context.Context, certificateID, origin string) (VerificationResult, error) {
	if s.throttle != nil && origin != "" {
		allowed, err := s.throttle.Allow(ctx, "verify:"+origin, s.cfg.VerifyRateThreshold, s.cfg.VerifyRateWindow)
		if err == nil && !allowed {
			return VerificationResult{}, domain.ErrRateLimited
		}
	}

	if !domain.ValidCertificateID(certificateID) {
		return VerificationResult{Valid: false}, nil
	}

	cert, err := s.certificates.GetByID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return VerificationResult{Valid: false}, nil
		}
		return VerificationResult{}, err
	}
	if cert.Revoked() {
		return VerificationResult{Valid: false}, nil
	}

	// Best-effort: a failed audit write must never fail the verification
	// response, but it is logged for reconciliation.
	entry := s.newAudit(cert.CertificateID, domain.AuditVerified, ports.Actor{Name: "public"}, "public verification lookup", origin)
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed on verification",
			"operation", "verify",
			"outcome", "audit_write_failed",
			"certificate_id", cert.CertificateID,
			"error", err,
		)
	}

	view := toVerifiedCertificate(cert)
	return VerificationResult{Valid: true, Certificate: &view}, nil
}

func toVerifiedCertificate(cert domain.Certificate) VerifiedCertificate {
	snap := cert.Snapshot
	skills := snap.Skills
	if skills == nil {
		skills = []string{}
	}
	return VerifiedCertificate{
		CertificateID:   cert.CertificateID,
		ParticipantName: snap.ParticipantName,
		EventTitle:      snap.EventTitle,
		EventDuration:   snap.DurationLabel,
		EventDates:      snap.DateRangeLabel(),
		Venue:           snap.EventVenue,
		Mode:            snap.EventMode,
		IssuedDate:      cert.IssuedAt,
		Status:          string(cert.Status),
		Skills:          skills,
	}
}
