package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/certificate-service/internal/domain"
	"github.com/campushq/certificate-service/internal/ports"
)

type fakeAudit struct {
	mu         sync.Mutex
	entries    []domain.AuditEntry
	failAppend bool
}

func (f *fakeAudit) Append(ctx context.Context, entry domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend {
		return errors.New("audit store down")
	}
	f.append(entry)
	return nil
}

func (f *fakeAudit) append(entry domain.AuditEntry) {
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
}

func (f *fakeAudit) ListByCertificate(ctx context.Context, certificateID string) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditEntry, 0)
	for _, e := range f.entries {
		if e.CertificateID == certificateID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return nil
}

func (f *fakeOutbox) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

// fakeCertificates mirrors the store's behavior closely enough for the service
// invariants: the active-pair uniqueness check runs under the same lock as the
// write, exactly like the partial unique index does in Postgres.
type fakeCertificates struct {
	mu        sync.Mutex
	byID      map[string]domain.Certificate
	artifacts map[string][]domain.Artifact
	audit     *fakeAudit
	outbox    *fakeOutbox
}

func newFakeCertificates(audit *fakeAudit, outbox *fakeOutbox) *fakeCertificates {
	return &fakeCertificates{
		byID:      make(map[string]domain.Certificate),
		artifacts: make(map[string][]domain.Artifact),
		audit:     audit,
		outbox:    outbox,
	}
}

func (f *fakeCertificates) CreateTx(ctx context.Context, params ports.CreateCertificateTxParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cert := params.Certificate
	if _, ok := f.byID[cert.CertificateID]; ok {
		return domain.ErrAlreadyExists
	}
	for _, existing := range f.byID {
		if existing.ParticipantID == cert.ParticipantID && existing.EventID == cert.EventID && !existing.Revoked() {
			return domain.ErrAlreadyExists
		}
	}
	f.byID[cert.CertificateID] = cert
	f.artifacts[cert.CertificateID] = append([]domain.Artifact(nil), params.Artifacts...)
	f.audit.mu.Lock()
	f.audit.append(params.Created)
	f.audit.mu.Unlock()
	_ = f.outbox.Enqueue(ctx, params.Event)
	return nil
}

func (f *fakeCertificates) GetByID(ctx context.Context, certificateID string) (domain.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cert, ok := f.byID[certificateID]
	if !ok {
		return domain.Certificate{}, domain.ErrNotFound
	}
	return cert, nil
}

func (f *fakeCertificates) GetActiveByPair(ctx context.Context, participantID, eventID uuid.UUID) (domain.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cert := range f.byID {
		if cert.ParticipantID == participantID && cert.EventID == eventID && !cert.Revoked() {
			return cert, nil
		}
	}
	return domain.Certificate{}, domain.ErrNotFound
}

func (f *fakeCertificates) ListByEvent(ctx context.Context, eventID uuid.UUID, limit, offset int) ([]domain.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Certificate, 0)
	for _, cert := range f.byID {
		if cert.EventID == eventID {
			out = append(out, cert)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCertificates) ChangeStatusTx(ctx context.Context, params ports.StatusChangeTxParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cert, ok := f.byID[params.CertificateID]
	if !ok {
		return domain.ErrNotFound
	}
	if !cert.Status.CanTransition(params.Next) {
		return domain.ErrInvalidState
	}
	cert.Status = params.Next
	cert.UpdatedAt = params.At
	if params.Next == domain.StatusRevoked {
		at := params.At
		cert.RevokedAt = &at
		cert.RevokeReason = params.RevokeReason
	}
	f.byID[params.CertificateID] = cert
	f.audit.mu.Lock()
	f.audit.append(params.Audit)
	f.audit.mu.Unlock()
	if params.Event != nil {
		_ = f.outbox.Enqueue(ctx, *params.Event)
	}
	return nil
}

func (f *fakeCertificates) ReplaceArtifactsTx(ctx context.Context, params ports.ReplaceArtifactsTxParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cert, ok := f.byID[params.CertificateID]
	if !ok || cert.Revoked() {
		return domain.ErrNotFound
	}
	cert.TemplateVersion = params.TemplateVersion
	cert.UpdatedAt = params.At
	f.byID[params.CertificateID] = cert
	f.artifacts[params.CertificateID] = append([]domain.Artifact(nil), params.Artifacts...)
	f.audit.mu.Lock()
	f.audit.append(params.Audit)
	f.audit.mu.Unlock()
	return nil
}

func (f *fakeCertificates) RecordDownloadTx(ctx context.Context, certificateID string, at time.Time, audit domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cert, ok := f.byID[certificateID]
	if !ok {
		return domain.ErrNotFound
	}
	cert.DownloadCount++
	cert.LastDownloaded = &at
	cert.UpdatedAt = at
	f.byID[certificateID] = cert
	f.audit.mu.Lock()
	f.audit.append(audit)
	f.audit.mu.Unlock()
	return nil
}

func (f *fakeCertificates) ListArtifacts(ctx context.Context, certificateID string) ([]domain.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Artifact(nil), f.artifacts[certificateID]...), nil
}

type fakeParticipants struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Participant
}

func (f *fakeParticipants) GetByID(ctx context.Context, participantID uuid.UUID) (domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[participantID]
	if !ok {
		return domain.Participant{}, domain.ErrNotFound
	}
	return p, nil
}

type fakeEvents struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Event
}

func (f *fakeEvents) GetByID(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[eventID]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return e, nil
}

func (f *fakeEvents) set(e domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[e.EventID] = e
}

type fakeRegistrations struct {
	mu      sync.Mutex
	byEvent map[uuid.UUID][]uuid.UUID
}

func (f *fakeRegistrations) IsRegistered(ctx context.Context, participantID, eventID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.byEvent[eventID] {
		if id == participantID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRegistrations) ListEventParticipants(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.byEvent[eventID]...), nil
}

type fakeRenderer struct {
	mu      sync.Mutex
	failAll bool
	calls   int
}

func (f *fakeRenderer) Render(ctx context.Context, data ports.RenderData, formats []domain.ArtifactFormat) ([]domain.Artifact, error) {
	f.mu.Lock()
	f.calls++
	fail := f.failAll
	f.mu.Unlock()
	if fail {
		return nil, errors.New("template engine exploded")
	}
	out := make([]domain.Artifact, 0, len(formats))
	for _, format := range formats {
		out = append(out, domain.Artifact{
			Format:      format,
			ContentType: "application/octet-stream",
			FileName:    data.CertificateID + "." + string(format),
			Content:     []byte("rendered:" + string(format) + ":" + data.Snapshot.ParticipantName),
			SizeBytes:   int64(len("rendered:" + string(format) + ":" + data.Snapshot.ParticipantName)),
			RenderedAt:  time.Now().UTC(),
		})
	}
	return out, nil
}

type fakeLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func (f *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocks) Release(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	return nil
}

type fakeThrottle struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *fakeThrottle) Allow(ctx context.Context, key string, threshold int, window time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key] <= threshold, nil
}

type fixture struct {
	service       *Service
	certificates  *fakeCertificates
	audit         *fakeAudit
	outbox        *fakeOutbox
	participants  *fakeParticipants
	events        *fakeEvents
	registrations *fakeRegistrations
	renderer      *fakeRenderer
	locks         *fakeLocks
	throttle      *fakeThrottle

	participantID uuid.UUID
	eventID       uuid.UUID
	admin         ports.Actor
}

func defaultTestConfig() Config {
	return Config{
		VerificationBaseURL: "http://certs.test",
		TemplateVersion:     "v2",
		SchemaVersion:       "2024-1",
		GeneratorVersion:    "go-1",
		VerifyRateThreshold: 5,
		VerifyRateWindow:    time.Minute,
	}
}

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func newFixtureWithConfig(cfg Config) *fixture {
	audit := &fakeAudit{}
	outbox := &fakeOutbox{}
	certificates := newFakeCertificates(audit, outbox)
	participants := &fakeParticipants{byID: make(map[uuid.UUID]domain.Participant)}
	events := &fakeEvents{byID: make(map[uuid.UUID]domain.Event)}
	registrations := &fakeRegistrations{byEvent: make(map[uuid.UUID][]uuid.UUID)}
	renderer := &fakeRenderer{}
	locks := &fakeLocks{held: make(map[string]bool)}
	throttle := &fakeThrottle{counts: make(map[string]int)}

	f := &fixture{
		certificates:  certificates,
		audit:         audit,
		outbox:        outbox,
		participants:  participants,
		events:        events,
		registrations: registrations,
		renderer:      renderer,
		locks:         locks,
		throttle:      throttle,
		participantID: uuid.New(),
		eventID:       uuid.New(),
		admin: ports.Actor{
			UserID: uuid.New(),
			Name:   "Dr. Mensah",
			Role:   "ADMIN",
		},
	}

	participants.byID[f.participantID] = domain.Participant{
		ParticipantID: f.participantID,
		FullName:      "Ada Okafor",
		Email:         "ada@campus.test",
	}
	events.byID[f.eventID] = domain.Event{
		EventID:   f.eventID,
		Title:     "Cloud Computing Workshop",
		Venue:     "Main Auditorium",
		Mode:      "In-Person",
		StartDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		Duration:  "3 Days",
		Skills:    []string{"AWS", "Docker"},
	}
	registrations.byEvent[f.eventID] = []uuid.UUID{f.participantID}

	f.service = NewService(Dependencies{
		Config:        cfg,
		Certificates:  certificates,
		Audit:         audit,
		Outbox:        outbox,
		Participants:  participants,
		Events:        events,
		Registrations: registrations,
		Renderer:      renderer,
		Locks:         locks,
		Throttle:      throttle,
	})
	return f
}

// addParticipant registers another participant for the fixture event.
func (f *fixture) addParticipant(name string) uuid.UUID {
	id := uuid.New()
	f.participants.mu.Lock()
	f.participants.byID[id] = domain.Participant{ParticipantID: id, FullName: name}
	f.participants.mu.Unlock()
	f.registrations.mu.Lock()
	f.registrations.byEvent[f.eventID] = append(f.registrations.byEvent[f.eventID], id)
	f.registrations.mu.Unlock()
	return id
}
