package postgres

import (
	"encoding/json"

	"github.com/campushq/certificate-service/internal/domain"
	"github.com/campushq/certificate-service/internal/ports"
)

func skillsToJSON(skills []string) string {
	if skills == nil {
		skills = []string{}
	}
	raw, err := json.Marshal(skills)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func skillsFromJSON(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var skills []string
	if err := json.Unmarshal([]byte(raw), &skills); err != nil || skills == nil {
		return []string{}
	}
	return skills
}

func toCertificateModel(cert domain.Certificate) certificateModel {
	return certificateModel{
		CertificateID:     cert.CertificateID,
		ParticipantID:     cert.ParticipantID,
		EventID:           cert.EventID,
		IssuerID:          cert.IssuerID,
		ParticipantName:   cert.Snapshot.ParticipantName,
		EventTitle:        cert.Snapshot.EventTitle,
		EventVenue:        cert.Snapshot.EventVenue,
		EventMode:         cert.Snapshot.EventMode,
		DurationLabel:     cert.Snapshot.DurationLabel,
		StartDate:         cert.Snapshot.StartDate,
		EndDate:           cert.Snapshot.EndDate,
		Skills:            skillsToJSON(cert.Snapshot.Skills),
		TemplateVersion:   cert.TemplateVersion,
		SchemaVersion:     cert.SchemaVersion,
		GeneratorVersion:  cert.GeneratorVersion,
		VerificationURL:   cert.VerificationURL,
		VerificationToken: cert.VerificationToken,
		Status:            string(cert.Status),
		IssuedAt:          cert.IssuedAt,
		RevokedAt:         cert.RevokedAt,
		RevokeReason:      cert.RevokeReason,
		DownloadCount:     cert.DownloadCount,
		LastDownloaded:    cert.LastDownloaded,
		CreatedAt:         cert.CreatedAt,
		UpdatedAt:         cert.UpdatedAt,
	}
}

func toDomainCertificate(m certificateModel) domain.Certificate {
	return domain.Certificate{
		CertificateID: m.CertificateID,
		ParticipantID: m.ParticipantID,
		EventID:       m.EventID,
		IssuerID:      m.IssuerID,
		Snapshot: domain.Snapshot{
			ParticipantName: m.ParticipantName,
			EventTitle:      m.EventTitle,
			EventVenue:      m.EventVenue,
			EventMode:       m.EventMode,
			DurationLabel:   m.DurationLabel,
			StartDate:       m.StartDate,
			EndDate:         m.EndDate,
			Skills:          skillsFromJSON(m.Skills),
		},
		TemplateVersion:   m.TemplateVersion,
		SchemaVersion:     m.SchemaVersion,
		GeneratorVersion:  m.GeneratorVersion,
		VerificationURL:   m.VerificationURL,
		VerificationToken: m.VerificationToken,
		Status:            domain.Status(m.Status),
		IssuedAt:          m.IssuedAt,
		RevokedAt:         m.RevokedAt,
		RevokeReason:      m.RevokeReason,
		DownloadCount:     m.DownloadCount,
		LastDownloaded:    m.LastDownloaded,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toArtifactModel(certificateID string, a domain.Artifact) artifactModel {
	return artifactModel{
		CertificateID: certificateID,
		Format:        string(a.Format),
		ContentType:   a.ContentType,
		FileName:      a.FileName,
		Content:       a.Content,
		SizeBytes:     a.SizeBytes,
		RenderedAt:    a.RenderedAt,
	}
}

func toDomainArtifact(m artifactModel) domain.Artifact {
	return domain.Artifact{
		Format:      domain.ArtifactFormat(m.Format),
		ContentType: m.ContentType,
		FileName:    m.FileName,
		Content:     m.Content,
		SizeBytes:   m.SizeBytes,
		RenderedAt:  m.RenderedAt,
	}
}

func toAuditModel(e domain.AuditEntry) auditEntryModel {
	var origin *string
	if e.Origin != "" {
		o := e.Origin
		origin = &o
	}
	return auditEntryModel{
		CertificateID: e.CertificateID,
		Action:        string(e.Action),
		Actor:         e.Actor,
		Detail:        e.Detail,
		Origin:        origin,
		OccurredAt:    e.OccurredAt,
	}
}

func toDomainAudit(m auditEntryModel) domain.AuditEntry {
	origin := ""
	if m.Origin != nil {
		origin = *m.Origin
	}
	return domain.AuditEntry{
		ID:            m.ID,
		CertificateID: m.CertificateID,
		Action:        domain.AuditAction(m.Action),
		Actor:         m.Actor,
		Detail:        m.Detail,
		Origin:        origin,
		OccurredAt:    m.OccurredAt,
	}
}

func toOutboxModel(event ports.OutboxEvent) certOutboxModel {
	return certOutboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(event.Payload),
		CreatedAt:    event.OccurredAt,
		FirstSeenAt:  event.OccurredAt,
	}
}

func toOutboxRecord(m certOutboxModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:       m.OutboxID,
		EventType:      m.EventType,
		PartitionKey:   m.PartitionKey,
		Payload:        []byte(m.Payload),
		RetryCount:     m.RetryCount,
		LastError:      m.LastError,
		CreatedAt:      m.CreatedAt,
		PublishedAt:    m.PublishedAt,
		LastErrorAt:    m.LastErrorAt,
		ClaimToken:     m.ClaimToken,
		ClaimUntil:     m.ClaimUntil,
		DeadLetteredAt: m.DeadLetteredAt,
	}
}

func toDomainParticipant(m participantModel) domain.Participant {
	return domain.Participant{
		ParticipantID: m.ParticipantID,
		FullName:      m.FullName,
		Email:         m.Email,
	}
}

func toDomainEvent(m eventModel) domain.Event {
	return domain.Event{
		EventID:   m.EventID,
		Title:     m.Title,
		Venue:     m.Venue,
		Mode:      m.Mode,
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
		Duration:  m.Duration,
		Skills:    skillsFromJSON(m.Skills),
	}
}
