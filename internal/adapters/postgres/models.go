package postgres

import (
	"time"

	"github.com/google/uuid"
)

type certificateModel struct {
	CertificateID     string     `gorm:"column:certificate_id;primaryKey"`
	ParticipantID     uuid.UUID  `gorm:"column:participant_id;type:uuid"`
	EventID           uuid.UUID  `gorm:"column:event_id;type:uuid"`
	IssuerID          uuid.UUID  `gorm:"column:issuer_id;type:uuid"`
	ParticipantName   string     `gorm:"column:participant_name"`
	EventTitle        string     `gorm:"column:event_title"`
	EventVenue        string     `gorm:"column:event_venue"`
	EventMode         string     `gorm:"column:event_mode"`
	DurationLabel     string     `gorm:"column:duration_label"`
	StartDate         time.Time  `gorm:"column:start_date"`
	EndDate           time.Time  `gorm:"column:end_date"`
	Skills            string     `gorm:"column:skills;type:jsonb"`
	TemplateVersion   string     `gorm:"column:template_version"`
	SchemaVersion     string     `gorm:"column:schema_version"`
	GeneratorVersion  string     `gorm:"column:generator_version"`
	VerificationURL   string     `gorm:"column:verification_url"`
	VerificationToken string     `gorm:"column:verification_token"`
	Status            string     `gorm:"column:status"`
	IssuedAt          time.Time  `gorm:"column:issued_at"`
	RevokedAt         *time.Time `gorm:"column:revoked_at"`
	RevokeReason      string     `gorm:"column:revoke_reason"`
	DownloadCount     int64      `gorm:"column:download_count"`
	LastDownloaded    *time.Time `gorm:"column:last_downloaded"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (certificateModel) TableName() string { return "certificates" }

type artifactModel struct {
	ArtifactID    uuid.UUID `gorm:"column:artifact_id;type:uuid;default:gen_random_uuid();primaryKey"`
	CertificateID string    `gorm:"column:certificate_id"`
	Format        string    `gorm:"column:format"`
	ContentType   string    `gorm:"column:content_type"`
	FileName      string    `gorm:"column:file_name"`
	Content       []byte    `gorm:"column:content"`
	SizeBytes     int64     `gorm:"column:size_bytes"`
	RenderedAt    time.Time `gorm:"column:rendered_at"`
}

func (artifactModel) TableName() string { return "certificate_artifacts" }

type auditEntryModel struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	CertificateID string    `gorm:"column:certificate_id"`
	Action        string    `gorm:"column:action"`
	Actor         string    `gorm:"column:actor"`
	Detail        string    `gorm:"column:detail"`
	Origin        *string   `gorm:"column:origin"`
	OccurredAt    time.Time `gorm:"column:occurred_at"`
}

func (auditEntryModel) TableName() string { return "certificate_audit_log" }

type certOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	FirstSeenAt    time.Time  `gorm:"column:first_seen_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (certOutboxModel) TableName() string { return "certificate_outbox" }

// Externally-owned tables, read-only through the directory adapters.

type participantModel struct {
	ParticipantID uuid.UUID `gorm:"column:participant_id;type:uuid;primaryKey"`
	FullName      string    `gorm:"column:full_name"`
	Email         string    `gorm:"column:email"`
}

func (participantModel) TableName() string { return "participants" }

type eventModel struct {
	EventID   uuid.UUID `gorm:"column:event_id;type:uuid;primaryKey"`
	Title     string    `gorm:"column:title"`
	Venue     string    `gorm:"column:venue"`
	Mode      string    `gorm:"column:mode"`
	StartDate time.Time `gorm:"column:start_date"`
	EndDate   time.Time `gorm:"column:end_date"`
	Duration  string    `gorm:"column:duration"`
	Skills    string    `gorm:"column:skills;type:jsonb"`
}

func (eventModel) TableName() string { return "events" }

type registrationModel struct {
	RegistrationID uuid.UUID `gorm:"column:registration_id;type:uuid;primaryKey"`
	ParticipantID  uuid.UUID `gorm:"column:participant_id"`
	EventID        uuid.UUID `gorm:"column:event_id"`
	Status         string    `gorm:"column:status"`
}

func (registrationModel) TableName() string { return "registrations" }
