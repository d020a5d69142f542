package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/campushq/certificate-service/internal/domain"
	"github.com/campushq/certificate-service/internal/ports"
)

// formatFallbackOrder is the documented default-resolution rule for artifact
// selection: the requested format first, then document, image, text. A download
// never fails solely because one specific format is missing when another exists.
var formatFallbackOrder = []domain.ArtifactFormat{
	domain.FormatDocument,
	domain.FormatImage,
	domain.FormatText,
}

// Download returns a stored artifact for the certificate's subject, its issuer,
// or an elevated role. The counter increment, last-downloaded timestamp and the
// downloaded audit entry commit atomically with respect to concurrent downloads.
func (s *Service) Download(ctx context.Context, certificateID string, actor ports.Actor, format domain.ArtifactFormat, origin string) (DownloadResult, error) {
	cert, err := s.certificates.GetByID(ctx, certificateID)
	if err != nil {
		return DownloadResult{}, err
	}
	if !s.canRead(cert, actor) {
		return DownloadResult{}, domain.ErrForbidden
	}
	if cert.Revoked() {
		return DownloadResult{}, fmt.Errorf("%w: certificate is revoked", domain.ErrInvalidState)
	}

	artifacts, err := s.certificates.ListArtifacts(ctx, certificateID)
	if err != nil {
		return DownloadResult{}, err
	}
	artifact, ok := selectArtifact(artifacts, format)
	if !ok {
		return DownloadResult{}, fmt.Errorf("%w: no stored artifact in any format", domain.ErrNotFound)
	}

	entry := s.newAudit(certificateID, domain.AuditDownloaded, actor, "downloaded "+string(artifact.Format), origin)
	if err := s.certificates.RecordDownloadTx(ctx, certificateID, s.nowFn(), entry); err != nil {
		return DownloadResult{}, err
	}

	return DownloadResult{
		FileName:    artifact.FileName,
		ContentType: artifact.ContentType,
		Content:     artifact.Content,
	}, nil
}

func selectArtifact(artifacts []domain.Artifact, requested domain.ArtifactFormat) (domain.Artifact, bool) {
	byFormat := make(map[domain.ArtifactFormat]domain.Artifact, len(artifacts))
	for _, a := range artifacts {
		byFormat[a.Format] = a
	}
	if requested != "" {
		if a, ok := byFormat[requested]; ok {
			return a, true
		}
	}
	for _, f := range formatFallbackOrder {
		if a, ok := byFormat[f]; ok {
			return a, true
		}
	}
	return domain.Artifact{}, false
}

// Get returns the full detail view, including the audit trail, for callers
// allowed to see it.
func (s *Service) Get(ctx context.Context, certificateID string, actor ports.Actor) (CertificateDetail, error) {
	cert, err := s.certificates.GetByID(ctx, certificateID)
	if err != nil {
		return CertificateDetail{}, err
	}
	if !s.canRead(cert, actor) {
		return CertificateDetail{}, domain.ErrForbidden
	}
	trail, err := s.audit.ListByCertificate(ctx, certificateID)
	if err != nil {
		return CertificateDetail{}, err
	}
	return toCertificateDetail(cert, trail), nil
}

// ListByEvent serves issuer dashboards; restricted to elevated roles.
func (s *Service) ListByEvent(ctx context.Context, eventID uuid.UUID, actor ports.Actor, limit, offset int) ([]CertificateDetail, error) {
	if !actor.Elevated() {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	certs, err := s.certificates.ListByEvent(ctx, eventID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]CertificateDetail, 0, len(certs))
	for _, cert := range certs {
		out = append(out, toCertificateDetail(cert, nil))
	}
	return out, nil
}

func toCertificateDetail(cert domain.Certificate, trail []domain.AuditEntry) CertificateDetail {
	snap := cert.Snapshot
	views := make([]AuditEntryView, 0, len(trail))
	for _, e := range trail {
		views = append(views, AuditEntryView{
			Action:     string(e.Action),
			Actor:      e.Actor,
			Detail:     e.Detail,
			Origin:     e.Origin,
			OccurredAt: e.OccurredAt,
		})
	}
	skills := snap.Skills
	if skills == nil {
		skills = []string{}
	}
	return CertificateDetail{
		CertificateID:   cert.CertificateID,
		ParticipantID:   cert.ParticipantID,
		EventID:         cert.EventID,
		ParticipantName: snap.ParticipantName,
		EventTitle:      snap.EventTitle,
		EventDuration:   snap.DurationLabel,
		EventDates:      snap.DateRangeLabel(),
		Venue:           snap.EventVenue,
		Mode:            snap.EventMode,
		Skills:          skills,
		Status:          string(cert.Status),
		IssuedDate:      cert.IssuedAt,
		VerificationURL: cert.VerificationURL,
		DownloadCount:   cert.DownloadCount,
		LastDownloaded:  cert.LastDownloaded,
		RevokeReason:    cert.RevokeReason,
		AuditTrail:      views,
	}
}
