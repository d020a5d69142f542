package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/certificate-service/internal/domain"
)

// CreateCertificateTxParams captures everything persisted when a certificate is
// issued. The certificate row, its rendered artifacts, the initial audit entry
// and the outbox event commit in one transaction: either all are visible to
// readers or none are.
type CreateCertificateTxParams struct {
	Certificate domain.Certificate
	Artifacts   []domain.Artifact
	Created     domain.AuditEntry
	Event       OutboxEvent
}

// StatusChangeTxParams drives accept/revoke transitions. The repository verifies
// the transition against the current row under lock so concurrent lifecycle calls
// cannot race past the state machine.
type StatusChangeTxParams struct {
	CertificateID string
	Next          domain.Status
	RevokeReason  string
	At            time.Time
	Audit         domain.AuditEntry
	Event         *OutboxEvent
}

// ReplaceArtifactsTxParams supports regeneration: stored artifacts are replaced
// wholesale, the template version tag moves forward, and an updated audit entry
// is appended. Snapshot fields are never touched.
type ReplaceArtifactsTxParams struct {
	CertificateID   string
	Artifacts       []domain.Artifact
	TemplateVersion string
	At              time.Time
	Audit           domain.AuditEntry
}

// CertificateRepository is the durable store of issued certificates.
// GetActiveByPair and the transactional create enforce the at-most-one
// non-revoked certificate per (participant, event) invariant together with the
// store's unique constraint.
type CertificateRepository interface {
	CreateTx(ctx context.Context, params CreateCertificateTxParams) error
	GetByID(ctx context.Context, certificateID string) (domain.Certificate, error)
	GetActiveByPair(ctx context.Context, participantID, eventID uuid.UUID) (domain.Certificate, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, limit, offset int) ([]domain.Certificate, error)
	ChangeStatusTx(ctx context.Context, params StatusChangeTxParams) error
	ReplaceArtifactsTx(ctx context.Context, params ReplaceArtifactsTxParams) error
	// RecordDownloadTx increments the download counter with an SQL expression,
	// sets last_downloaded and appends the downloaded audit entry atomically, so
	// concurrent downloads of the same certificate never lose counter updates.
	RecordDownloadTx(ctx context.Context, certificateID string, at time.Time, audit domain.AuditEntry) error
	ListArtifacts(ctx context.Context, certificateID string) ([]domain.Artifact, error)
}

// AuditLog is the append-only trail. Every component appends through this port
// instead of writing rows directly, so ordering and schema stay centralized.
type AuditLog interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ListByCertificate(ctx context.Context, certificateID string) ([]domain.AuditEntry, error)
}

// OutboxEvent is the write-side lifecycle event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for lifecycle events.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
