package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/certificate-service/internal/domain"
	"github.com/campushq/certificate-service/internal/ports"
)

// Issue creates exactly one certificate for the (participant, event) pair. The
// existence check and the write run under a per-pair lock; the store's unique
// index is the backstop if the lock expires mid-flight. A duplicate attempt
// fails with the existing identifier rather than writing a second record.
func (s *Service) Issue(ctx context.Context, req IssueRequest, actor ports.Actor, origin string) (IssueResponse, error) {
	if !actor.Elevated() {
		return IssueResponse{}, domain.ErrForbidden
	}
	if req.ParticipantID == uuid.Nil || req.EventID == uuid.Nil {
		return IssueResponse{}, wrapInvalidInput("participant_id and event_id are required")
	}
	return s.issueOne(ctx, req.ParticipantID, req.EventID, actor, origin)
}

func (s *Service) issueOne(ctx context.Context, participantID, eventID uuid.UUID, actor ports.Actor, origin string) (IssueResponse, error) {
	lockKey := pairLockKey(participantID, eventID)
	acquired, err := s.acquirePairLock(ctx, lockKey)
	if err != nil {
		return IssueResponse{}, fmt.Errorf("%w: acquire issuance lock: %v", domain.ErrUnavailable, err)
	}
	if !acquired {
		// A sibling request holds the pair. If it already committed, surface its
		// identifier; otherwise the caller retries.
		if existing, lookupErr := s.certificates.GetActiveByPair(ctx, participantID, eventID); lookupErr == nil {
			return IssueResponse{}, &domain.DuplicateError{CertificateID: existing.CertificateID}
		}
		return IssueResponse{}, fmt.Errorf("%w: issuance in progress for pair", domain.ErrUnavailable)
	}
	defer func() { _ = s.locks.Release(ctx, lockKey) }()

	participant, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return IssueResponse{}, fmt.Errorf("%w: participant", domain.ErrNotFound)
		}
		return IssueResponse{}, err
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return IssueResponse{}, fmt.Errorf("%w: event", domain.ErrNotFound)
		}
		return IssueResponse{}, err
	}

	registered, err := s.registrations.IsRegistered(ctx, participantID, eventID)
	if err != nil {
		return IssueResponse{}, err
	}
	if !registered {
		return IssueResponse{}, fmt.Errorf("%w: participant is not registered for this event", domain.ErrInvalidState)
	}

	if existing, err := s.certificates.GetActiveByPair(ctx, participantID, eventID); err == nil {
		return IssueResponse{}, &domain.DuplicateError{CertificateID: existing.CertificateID}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return IssueResponse{}, err
	}

	certificateID, err := s.generateIdentifier(ctx)
	if err != nil {
		return IssueResponse{}, err
	}

	now := s.nowFn()
	snapshot := domain.SnapshotFrom(participant, event)
	cert := domain.Certificate{
		CertificateID:     certificateID,
		ParticipantID:     participantID,
		EventID:           eventID,
		IssuerID:          actor.UserID,
		Snapshot:          snapshot,
		TemplateVersion:   s.cfg.TemplateVersion,
		SchemaVersion:     s.cfg.SchemaVersion,
		GeneratorVersion:  s.cfg.GeneratorVersion,
		VerificationURL:   s.verificationURL(certificateID),
		VerificationToken: domain.VerificationToken(certificateID),
		Status:            domain.StatusGenerated,
		IssuedAt:          now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	artifacts := s.renderArtifacts(ctx, cert)

	payload, _ := json.Marshal(map[string]any{
		"certificate_id": certificateID,
		"participant_id": participantID,
		"event_id":       eventID,
		"issued_at":      now,
	})

	err = s.certificates.CreateTx(ctx, ports.CreateCertificateTxParams{
		Certificate: cert,
		Artifacts:   artifacts,
		Created:     s.newAudit(certificateID, domain.AuditCreated, actor, "certificate issued", origin),
		Event:       lifecycleEvent("certificate.generated", cert, payload, now),
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Unique index backstop fired: a concurrent writer won. Re-read so the
			// loser still reports the winner's identifier.
			if existing, lookupErr := s.certificates.GetActiveByPair(ctx, participantID, eventID); lookupErr == nil {
				return IssueResponse{}, &domain.DuplicateError{CertificateID: existing.CertificateID}
			}
			return IssueResponse{}, domain.ErrAlreadyExists
		}
		return IssueResponse{}, err
	}

	return toIssueResponse(cert), nil
}

// generateIdentifier retries on the off chance a freshly generated identifier is
// already taken. Uniqueness is probabilistic by construction, never assumed.
func (s *Service) generateIdentifier(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.cfg.IDMaxAttempts; attempt++ {
		id := domain.NewCertificateID(s.nowFn())
		_, err := s.certificates.GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: identifier collisions exhausted retries", domain.ErrGenerationFailed)
}

// renderArtifacts runs the rich renderer under a bounded timeout and falls back
// to a plain-text artifact carrying the same semantic fields, so a certificate's
// existence is never blocked by a rendering-engine failure.
func (s *Service) renderArtifacts(ctx context.Context, cert domain.Certificate) []domain.Artifact {
	data := ports.RenderData{
		CertificateID:   cert.CertificateID,
		VerificationURL: cert.VerificationURL,
		Snapshot:        cert.Snapshot,
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.cfg.RenderTimeout)
	defer cancel()

	artifacts, err := s.renderer.Render(renderCtx, data, s.cfg.DefaultFormats)
	if err == nil && len(artifacts) > 0 {
		return artifacts
	}
	s.logger.WarnContext(ctx, "rich render failed; using plain-text fallback",
		"operation", "render_artifacts",
		"outcome", "fallback",
		"certificate_id", cert.CertificateID,
		"error", err,
	)
	return []domain.Artifact{PlainTextArtifact(data, s.nowFn())}
}

// PlainTextArtifact is the rendering of last resort. It depends on nothing so it
// cannot fail the way the rich template path can.
func PlainTextArtifact(data ports.RenderData, at time.Time) domain.Artifact {
	snap := data.Snapshot
	content := fmt.Sprintf(
		"CERTIFICATE OF COMPLETION\n\nThis certifies that %s\nhas completed %s\n\nDuration: %s\nDates: %s\nVenue: %s\nMode: %s\nSkills: %s\n\nCertificate ID: %s\nVerify at: %s\n",
		snap.ParticipantName,
		snap.EventTitle,
		snap.DurationLabel,
		snap.DateRangeLabel(),
		snap.EventVenue,
		snap.EventMode,
		joinOrNone(snap.Skills),
		data.CertificateID,
		data.VerificationURL,
	)
	return domain.Artifact{
		Format:      domain.FormatText,
		ContentType: "text/plain; charset=utf-8",
		FileName:    data.CertificateID + ".txt",
		Content:     []byte(content),
		SizeBytes:   int64(len(content)),
		RenderedAt:  at,
	}
}

func joinOrNone(skills []string) string {
	if len(skills) == 0 {
		return "-"
	}
	out := skills[0]
	for _, skill := range skills[1:] {
		out += ", " + skill
	}
	return out
}

// acquirePairLock polls briefly instead of failing immediately so that two
// near-simultaneous requests resolve into winner/AlreadyExists rather than
// winner/retry-later in the common case.
func (s *Service) acquirePairLock(ctx context.Context, key string) (bool, error) {
	const attempts = 5
	for i := 0; i < attempts; i++ {
		ok, err := s.locks.Acquire(ctx, key, s.cfg.IssuanceLockTTL)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return false, nil
}

// IssueBatch issues certificates for every registered participant of the event
// who does not already hold one. Items fan out over a bounded pool; one item's
// failure never aborts or rolls back its siblings.
func (s *Service) IssueBatch(ctx context.Context, eventID uuid.UUID, actor ports.Actor, origin string) (BatchIssueResponse, error) {
	if !actor.Elevated() {
		return BatchIssueResponse{}, domain.ErrForbidden
	}
	if eventID == uuid.Nil {
		return BatchIssueResponse{}, wrapInvalidInput("event_id is required")
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return BatchIssueResponse{}, fmt.Errorf("%w: event", domain.ErrNotFound)
		}
		return BatchIssueResponse{}, err
	}

	participantIDs, err := s.registrations.ListEventParticipants(ctx, eventID)
	if err != nil {
		return BatchIssueResponse{}, err
	}

	pending := make([]uuid.UUID, 0, len(participantIDs))
	for _, pid := range participantIDs {
		if _, err := s.certificates.GetActiveByPair(ctx, pid, eventID); err == nil {
			continue // already holds a certificate
		} else if !errors.Is(err, domain.ErrNotFound) {
			return BatchIssueResponse{}, err
		}
		pending = append(pending, pid)
	}

	type itemResult struct {
		participantID uuid.UUID
		res           IssueResponse
		err           error
	}

	results := make([]itemResult, len(pending))
	sem := make(chan struct{}, s.cfg.BatchWorkers)
	var wg sync.WaitGroup
	for i, pid := range pending {
		wg.Add(1)
		go func(idx int, participantID uuid.UUID) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			res, err := s.issueOne(ctx, participantID, eventID, actor, origin)
			results[idx] = itemResult{participantID: participantID, res: res, err: err}
		}(i, pid)
	}
	wg.Wait()

	out := BatchIssueResponse{
		Successful: make([]BatchItemSuccess, 0, len(pending)),
		Failed:     make([]BatchItemFailure, 0),
	}
	for _, item := range results {
		if item.err != nil {
			out.Failed = append(out.Failed, BatchItemFailure{
				ParticipantID: item.participantID,
				Reason:        failureReason(item.err),
			})
			continue
		}
		out.Successful = append(out.Successful, BatchItemSuccess{
			ParticipantID:   item.participantID,
			ParticipantName: item.res.ParticipantName,
			CertificateID:   item.res.CertificateID,
		})
	}
	out.Summary = BatchSummary{
		Total:      len(pending),
		Successful: len(out.Successful),
		Failed:     len(out.Failed),
	}
	return out, nil
}
