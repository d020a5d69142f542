package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the certificate lifecycle state. Transitions are monotonic:
// draft -> generated -> issued, with revoked terminal and reachable from any
// non-terminal state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusGenerated Status = "generated"
	StatusIssued    Status = "issued"
	StatusRevoked   Status = "revoked"
)

// CanTransition reports whether moving from s to next is a legal lifecycle step.
// There is no transition out of revoked.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusGenerated || next == StatusRevoked
	case StatusGenerated:
		return next == StatusIssued || next == StatusRevoked
	case StatusIssued:
		return next == StatusRevoked
	default:
		return false
	}
}

// ArtifactFormat identifies a rendered output of the template renderer.
type ArtifactFormat string

const (
	FormatDocument ArtifactFormat = "document"
	FormatImage    ArtifactFormat = "image"
	FormatText     ArtifactFormat = "text"
)

// Artifact is one stored rendering of a certificate. Artifacts are written once at
// issuance (or replaced wholesale on regenerate) and reused for every download.
type Artifact struct {
	Format      ArtifactFormat
	ContentType string
	FileName    string
	Content     []byte
	SizeBytes   int64
	RenderedAt  time.Time
}

// AuditAction tags an entry in a certificate's append-only audit trail.
type AuditAction string

const (
	AuditCreated    AuditAction = "created"
	AuditGenerated  AuditAction = "generated"
	AuditDownloaded AuditAction = "downloaded"
	AuditVerified   AuditAction = "verified"
	AuditRevoked    AuditAction = "revoked"
	AuditUpdated    AuditAction = "updated"
)

// AuditEntry is one lifecycle event attached to a certificate. Entries are never
// edited or deleted; ordering within one certificate is append order.
type AuditEntry struct {
	ID            int64
	CertificateID string
	Action        AuditAction
	Actor         string
	Detail        string
	Origin        string
	OccurredAt    time.Time
}

// Snapshot is the denormalized subject data captured at issuance time. It is
// write-once: the displayed content of a certificate never changes even if the
// source event record is edited later.
type Snapshot struct {
	ParticipantName string
	EventTitle      string
	EventVenue      string
	EventMode       string
	DurationLabel   string
	StartDate       time.Time
	EndDate         time.Time
	Skills          []string
}

// Certificate is the issued completion record, the central aggregate of this service.
type Certificate struct {
	CertificateID string
	ParticipantID uuid.UUID
	EventID       uuid.UUID
	IssuerID      uuid.UUID

	Snapshot Snapshot

	TemplateVersion  string
	SchemaVersion    string
	GeneratorVersion string

	VerificationURL   string
	VerificationToken string

	Status    Status
	IssuedAt  time.Time
	RevokedAt *time.Time
	RevokeReason string

	DownloadCount  int64
	LastDownloaded *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Revoked reports whether the certificate is in the terminal state.
func (c Certificate) Revoked() bool { return c.Status == StatusRevoked }

// Participant is the externally-owned subject of a certificate, consumed read-only.
type Participant struct {
	ParticipantID uuid.UUID
	FullName      string
	Email         string
}

// Event is the externally-owned event record, consumed read-only. Only the fields
// snapshotted onto certificates are modeled here.
type Event struct {
	EventID   uuid.UUID
	Title     string
	Venue     string
	Mode      string
	StartDate time.Time
	EndDate   time.Time
	Duration  string
	Skills    []string
}

// SnapshotFrom captures the write-once subject fields from the externally-owned
// records, applying the documented default-resolution rules: missing duration
// becomes "1 Day", missing skills become an empty list.
func SnapshotFrom(p Participant, e Event) Snapshot {
	duration := e.Duration
	if duration == "" {
		duration = "1 Day"
	}
	skills := e.Skills
	if skills == nil {
		skills = []string{}
	}
	return Snapshot{
		ParticipantName: p.FullName,
		EventTitle:      e.Title,
		EventVenue:      e.Venue,
		EventMode:       e.Mode,
		DurationLabel:   duration,
		StartDate:       e.StartDate,
		EndDate:         e.EndDate,
		Skills:          skills,
	}
}

// DateRangeLabel renders the snapshot dates for display. Equal start and end
// collapse to a single date.
func (s Snapshot) DateRangeLabel() string {
	const layout = "02 Jan 2006"
	if s.StartDate.IsZero() {
		return ""
	}
	start := s.StartDate.Format(layout)
	if s.EndDate.IsZero() || s.EndDate.Format(layout) == start {
		return start
	}
	return start + " - " + s.EndDate.Format(layout)
}
