package application

import (
	"time"

	"github.com/google/uuid"
)

type IssueRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	EventID       uuid.UUID `json:"event_id"`
}

type IssueResponse struct {
	CertificateID   string    `json:"certificate_id"`
	ParticipantName string    `json:"participant_name"`
	EventTitle      string    `json:"event_title"`
	IssuedDate      time.Time `json:"issued_date"`
	VerificationURL string    `json:"verification_url"`
	Status          string    `json:"status"`
}

type BatchIssueRequest struct {
	EventID uuid.UUID `json:"event_id"`
}

type BatchItemSuccess struct {
	ParticipantID   uuid.UUID `json:"participant_id"`
	ParticipantName string    `json:"participant_name"`
	CertificateID   string    `json:"certificate_id"`
}

type BatchItemFailure struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Reason        string    `json:"reason"`
}

type BatchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

type BatchIssueResponse struct {
	Successful []BatchItemSuccess `json:"successful"`
	Failed     []BatchItemFailure `json:"failed"`
	Summary    BatchSummary       `json:"summary"`
}

// VerifiedCertificate is the display-safe public view: no binary artifacts, no
// audit trail, no issuer contact details beyond what the certificate displays.
type VerifiedCertificate struct {
	CertificateID   string    `json:"certificate_id"`
	ParticipantName string    `json:"participant_name"`
	EventTitle      string    `json:"event_title"`
	EventDuration   string    `json:"event_duration"`
	EventDates      string    `json:"event_dates"`
	Venue           string    `json:"venue"`
	Mode            string    `json:"mode"`
	IssuedDate      time.Time `json:"issued_date"`
	Status          string    `json:"status"`
	Skills          []string  `json:"skills"`
}

type VerificationResult struct {
	Valid       bool                 `json:"valid"`
	Certificate *VerifiedCertificate `json:"certificate,omitempty"`
}

type DownloadResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

type AuditEntryView struct {
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	Detail     string    `json:"detail"`
	Origin     string    `json:"origin"`
	OccurredAt time.Time `json:"occurred_at"`
}

type CertificateDetail struct {
	CertificateID   string           `json:"certificate_id"`
	ParticipantID   uuid.UUID        `json:"participant_id"`
	EventID         uuid.UUID        `json:"event_id"`
	ParticipantName string           `json:"participant_name"`
	EventTitle      string           `json:"event_title"`
	EventDuration   string           `json:"event_duration"`
	EventDates      string           `json:"event_dates"`
	Venue           string           `json:"venue"`
	Mode            string           `json:"mode"`
	Skills          []string         `json:"skills"`
	Status          string           `json:"status"`
	IssuedDate      time.Time        `json:"issued_date"`
	VerificationURL string           `json:"verification_url"`
	DownloadCount   int64            `json:"download_count"`
	LastDownloaded  *time.Time       `json:"last_downloaded,omitempty"`
	RevokeReason    string           `json:"revoke_reason,omitempty"`
	AuditTrail      []AuditEntryView `json:"audit_trail"`
}

type RevokeRequest struct {
	Reason string `json:"reason"`
}
