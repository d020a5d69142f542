package application

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/certificate-service/internal/domain"
	"github.com/campushq/certificate-service/internal/ports"
)

// Config is the application-level tuning injected at bootstrap. Layout and
// version tags live here rather than as package state so old certificates keep
// rendering the way they were issued.
type Config struct {
	VerificationBaseURL string
	TemplateVersion     string
	SchemaVersion       string
	GeneratorVersion    string

	IDMaxAttempts   int
	RenderTimeout   time.Duration
	IssuanceLockTTL time.Duration
	BatchWorkers    int

	VerifyRateThreshold int
	VerifyRateWindow    time.Duration

	DefaultFormats []domain.ArtifactFormat
}

type Service struct {
	cfg           Config
	logger        *slog.Logger
	certificates  ports.CertificateRepository
	audit         ports.AuditLog
	outbox        ports.OutboxRepository
	participants  ports.ParticipantDirectory
	events        ports.EventDirectory
	registrations ports.RegistrationDirectory
	renderer      ports.Renderer
	locks         ports.IssuanceLockStore
	throttle      ports.VerifyThrottle
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Logger        *slog.Logger
	Certificates  ports.CertificateRepository
	Audit         ports.AuditLog
	Outbox        ports.OutboxRepository
	Participants  ports.ParticipantDirectory
	Events        ports.EventDirectory
	Registrations ports.RegistrationDirectory
	Renderer      ports.Renderer
	Locks         ports.IssuanceLockStore
	Throttle      ports.VerifyThrottle
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.IDMaxAttempts <= 0 {
		cfg.IDMaxAttempts = 3
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 15 * time.Second
	}
	if cfg.IssuanceLockTTL <= 0 {
		cfg.IssuanceLockTTL = 30 * time.Second
	}
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 4
	}
	if len(cfg.DefaultFormats) == 0 {
		cfg.DefaultFormats = []domain.ArtifactFormat{domain.FormatDocument, domain.FormatImage}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:           cfg,
		logger:        logger.With("module", "application", "layer", "service"),
		certificates:  deps.Certificates,
		audit:         deps.Audit,
		outbox:        deps.Outbox,
		participants:  deps.Participants,
		events:        deps.Events,
		registrations: deps.Registrations,
		renderer:      deps.Renderer,
		locks:         deps.Locks,
		throttle:      deps.Throttle,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

func pairLockKey(participantID, eventID uuid.UUID) string {
	return "issue:" + participantID.String() + ":" + eventID.String()
}

func (s *Service) verificationURL(certificateID string) string {
	return s.cfg.VerificationBaseURL + "/verify/v1/" + certificateID
}

func (s *Service) newAudit(certificateID string, action domain.AuditAction, actor ports.Actor, detail, origin string) domain.AuditEntry {
	name := actor.Name
	if name == "" {
		name = actor.UserID.String()
	}
	return domain.AuditEntry{
		CertificateID: certificateID,
		Action:        action,
		Actor:         name,
		Detail:        detail,
		Origin:        origin,
		OccurredAt:    s.nowFn(),
	}
}

func toIssueResponse(cert domain.Certificate) IssueResponse {
	return IssueResponse{
		CertificateID:   cert.CertificateID,
		ParticipantName: cert.Snapshot.ParticipantName,
		EventTitle:      cert.Snapshot.EventTitle,
		IssuedDate:      cert.IssuedAt,
		VerificationURL: cert.VerificationURL,
		Status:          string(cert.Status),
	}
}

func (s *Service) canManage(cert domain.Certificate, actor ports.Actor) bool {
	return actor.Elevated() || actor.UserID == cert.IssuerID
}

func (s *Service) canRead(cert domain.Certificate, actor ports.Actor) bool {
	return s.canManage(cert, actor) || actor.UserID == cert.ParticipantID
}

func lifecycleEvent(eventType string, cert domain.Certificate, payload []byte, at time.Time) ports.OutboxEvent {
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: cert.CertificateID,
		Payload:      payload,
		OccurredAt:   at,
	}
}

func failureReason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func wrapInvalidInput(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
}
