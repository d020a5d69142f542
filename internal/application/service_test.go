package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/campushq/certificate-service/internal/domain"
	"github.com/campushq/certificate-service/internal/ports"
)

func TestIssueCreatesCertificate(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	res, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "10.0.0.1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if !domain.ValidCertificateID(res.CertificateID) {
		t.Fatalf("unexpected certificate id shape: %s", res.CertificateID)
	}
	if res.ParticipantName != "Ada Okafor" || res.EventTitle != "Cloud Computing Workshop" {
		t.Fatalf("snapshot fields missing from response: %+v", res)
	}
	if res.Status != string(domain.StatusGenerated) {
		t.Fatalf("expected generated status, got %s", res.Status)
	}
	if !strings.HasPrefix(res.VerificationURL, "http://certs.test/verify/v1/CERT-") {
		t.Fatalf("unexpected verification url: %s", res.VerificationURL)
	}

	stored, err := f.certificates.GetByID(ctx, res.CertificateID)
	if err != nil {
		t.Fatalf("stored certificate missing: %v", err)
	}
	if stored.VerificationToken != domain.VerificationToken(res.CertificateID) {
		t.Fatalf("verification token mismatch")
	}
	if stored.Snapshot.DurationLabel != "3 Days" {
		t.Fatalf("expected event duration snapshot, got %q", stored.Snapshot.DurationLabel)
	}

	artifacts, _ := f.certificates.ListArtifacts(ctx, res.CertificateID)
	if len(artifacts) != 2 {
		t.Fatalf("expected document and image artifacts, got %d", len(artifacts))
	}

	trail, _ := f.audit.ListByCertificate(ctx, res.CertificateID)
	if len(trail) != 1 || trail[0].Action != domain.AuditCreated {
		t.Fatalf("expected single created audit entry, got %+v", trail)
	}
	if types := f.outbox.eventTypes(); len(types) != 1 || types[0] != "certificate.generated" {
		t.Fatalf("expected certificate.generated outbox event, got %v", types)
	}
}

func TestIssueDuplicateReturnsExistingID(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	first, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "")
	if err != nil {
		t.Fatalf("first issue failed: %v", err)
	}

	_, err = f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "")
	var dup *domain.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
	if dup.CertificateID != first.CertificateID {
		t.Fatalf("duplicate error should carry existing id %s, got %s", first.CertificateID, dup.CertificateID)
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("DuplicateError should unwrap to ErrAlreadyExists")
	}
}

func TestIssueAuthorizationAndValidation(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	student := ports.Actor{UserID: uuid.New(), Name: "someone", Role: "STUDENT"}

	if _, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, student, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-elevated actor, got %v", err)
	}
	if _, err := f.service.Issue(ctx, IssueRequest{EventID: f.eventID}, f.admin, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing participant, got %v", err)
	}
	if _, err := f.service.Issue(ctx, IssueRequest{ParticipantID: uuid.New(), EventID: f.eventID}, f.admin, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown participant, got %v", err)
	}
	if _, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: uuid.New()}, f.admin, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown event, got %v", err)
	}

	// Known participant and event, but no registration.
	unregistered := uuid.New()
	f.participants.byID[unregistered] = domain.Participant{ParticipantID: unregistered, FullName: "Walk In"}
	if _, err := f.service.Issue(ctx, IssueRequest{ParticipantID: unregistered, EventID: f.eventID}, f.admin, ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for unregistered participant, got %v", err)
	}
}

func TestConcurrentIssueSingleWinner(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	const attempts = 4
	results := make([]error, attempts)
	ids := make([]string, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			res, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "")
			results[idx] = err
			ids[idx] = res.CertificateID
		}(i)
	}
	wg.Wait()

	var winnerID string
	winners := 0
	for i, err := range results {
		if err == nil {
			winners++
			winnerID = ids[i]
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one successful issuance, got %d", winners)
	}
	for _, err := range results {
		if err == nil {
			continue
		}
		var dup *domain.DuplicateError
		if errors.As(err, &dup) {
			if dup.CertificateID != winnerID {
				t.Fatalf("loser reported wrong winner id: %s vs %s", dup.CertificateID, winnerID)
			}
			continue
		}
		if !errors.Is(err, domain.ErrUnavailable) {
			t.Fatalf("loser should fail with DuplicateError or ErrUnavailable, got %v", err)
		}
	}
	if len(f.certificates.byID) != 1 {
		t.Fatalf("expected single stored certificate, got %d", len(f.certificates.byID))
	}
}

func TestIssueRenderFailureFallsBackToText(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.renderer.failAll = true
	ctx := context.Background()

	res, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "")
	if err != nil {
		t.Fatalf("issue should survive renderer failure: %v", err)
	}
	artifacts, _ := f.certificates.ListArtifacts(ctx, res.CertificateID)
	if len(artifacts) != 1 || artifacts[0].Format != domain.FormatText {
		t.Fatalf("expected single text fallback artifact, got %+v", artifacts)
	}
	content := string(artifacts[0].Content)
	for _, want := range []string{"Ada Okafor", "Cloud Computing Workshop", res.CertificateID, "3 Days"} {
		if !strings.Contains(content, want) {
			t.Fatalf("fallback artifact missing %q:\n%s", want, content)
		}
	}
}

func TestVerifyLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	res, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	verification, err := f.service.Verify(ctx, res.CertificateID, "203.0.113.9")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !verification.Valid || verification.Certificate == nil {
		t.Fatalf("expected valid verification, got %+v", verification)
	}
	cert := verification.Certificate
	if cert.ParticipantName != "Ada Okafor" || cert.EventDates != "10 Mar 2026 - 12 Mar 2026" {
		t.Fatalf("unexpected public view: %+v", cert)
	}

	// Junk and unknown identifiers both read as invalid, never as errors.
	if v, err := f.service.Verify(ctx, "not-a-cert-id", "203.0.113.9"); err != nil || v.Valid {
		t.Fatalf("junk id should verify invalid, got %+v err=%v", v, err)
	}
	if v, err := f.service.Verify(ctx, "CERT-1700000000000-zzzzzzzzz", "203.0.113.9"); err != nil || v.Valid {
		t.Fatalf("unknown id should verify invalid, got %+v err=%v", v, err)
	}

	if err := f.service.Revoke(ctx, res.CertificateID, "issued in error", f.admin, ""); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if v, err := f.service.Verify(ctx, res.CertificateID, "203.0.113.9"); err != nil || v.Valid {
		t.Fatalf("revoked certificate must verify invalid, got %+v err=%v", v, err)
	}
}

func TestVerifySurvivesAuditOutage(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	res, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	f.audit.failAppend = true
	verification, err := f.service.Verify(ctx, res.CertificateID, "203.0.113.9")
	if err != nil {
		t.Fatalf("verify must not fail on audit outage: %v", err)
	}
	if !verification.Valid {
		t.Fatalf("expected valid verification despite audit outage")
	}
}

func TestVerifyThrottled(t *testing.T) {
	t.Parallel()

	f := newFixture() // threshold 5 per origin
	ctx := context.Background()

	res, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := f.service.Verify(ctx, res.CertificateID, "198.51.100.7"); err != nil {
			t.Fatalf("verify %d failed: %v", i, err)
		}
	}
	if _, err := f.service.Verify(ctx, res.CertificateID, "198.51.100.7"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited past threshold, got %v", err)
	}
	// A different origin is unaffected.
	if _, err := f.service.Verify(ctx, res.CertificateID, "198.51.100.8"); err != nil {
		t.Fatalf("other origin should pass: %v", err)
	}
}

func TestSnapshotSurvivesEventEdit(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	res, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	edited, _ := f.events.GetByID(ctx, f.eventID)
	edited.Title = "Renamed Workshop"
	edited.Venue = "Moved Hall"
	f.events.set(edited)

	verification, err := f.service.Verify(ctx, res.CertificateID, "")
	if err != nil || !verification.Valid {
		t.Fatalf("verify failed: %v", err)
	}
	if verification.Certificate.EventTitle != "Cloud Computing Workshop" {
		t.Fatalf("certificate must display the issuance-time snapshot, got %q", verification.Certificate.EventTitle)
	}
}

func TestDownloadFallbackAndAccounting(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	res, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// Text was never rendered; the download falls back to the document artifact.
	dl, err := f.service.Download(ctx, res.CertificateID, f.admin, domain.FormatText, "")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if !strings.HasSuffix(dl.FileName, ".document") {
		t.Fatalf("expected document fallback, got %s", dl.FileName)
	}

	participant := ports.Actor{UserID: f.participantID, Name: "Ada Okafor", Role: "STUDENT"}
	if _, err := f.service.Download(ctx, res.CertificateID, participant, domain.FormatImage, ""); err != nil {
		t.Fatalf("subject should download own certificate: %v", err)
	}
	stranger := ports.Actor{UserID: uuid.New(), Role: "STUDENT"}
	if _, err := f.service.Download(ctx, res.CertificateID, stranger, "", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("stranger download should be forbidden, got %v", err)
	}

	stored, _ := f.certificates.GetByID(ctx, res.CertificateID)
	if stored.DownloadCount != 2 || stored.LastDownloaded == nil {
		t.Fatalf("download accounting wrong: count=%d last=%v", stored.DownloadCount, stored.LastDownloaded)
	}

	if err := f.service.Revoke(ctx, res.CertificateID, "test", f.admin, ""); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := f.service.Download(ctx, res.CertificateID, f.admin, "", ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("revoked download should fail with ErrInvalidState, got %v", err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	res, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	accepted, err := f.service.Accept(ctx, res.CertificateID, f.admin, "")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.Status != string(domain.StatusIssued) {
		t.Fatalf("expected issued status, got %s", accepted.Status)
	}
	if _, err := f.service.Accept(ctx, res.CertificateID, f.admin, ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("second accept should fail, got %v", err)
	}

	if err := f.service.Revoke(ctx, res.CertificateID, "  ", f.admin, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("blank reason should be rejected, got %v", err)
	}
	if err := f.service.Revoke(ctx, res.CertificateID, "policy violation", f.admin, ""); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if err := f.service.Revoke(ctx, res.CertificateID, "again", f.admin, ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("revoke is terminal, got %v", err)
	}

	types := f.outbox.eventTypes()
	want := []string{"certificate.generated", "certificate.issued", "certificate.revoked"}
	if len(types) != len(want) {
		t.Fatalf("expected %v outbox events, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected %v outbox events, got %v", want, types)
		}
	}
}

func TestRegenerateReplacesArtifacts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	res, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	before, _ := f.certificates.ListArtifacts(ctx, res.CertificateID)

	if err := f.service.Regenerate(ctx, res.CertificateID, f.admin, ""); err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	after, _ := f.certificates.ListArtifacts(ctx, res.CertificateID)
	if len(after) != len(before) {
		t.Fatalf("regenerate should replace artifacts in place, got %d vs %d", len(after), len(before))
	}

	trail, _ := f.audit.ListByCertificate(ctx, res.CertificateID)
	last := trail[len(trail)-1]
	if last.Action != domain.AuditUpdated || !strings.Contains(last.Detail, "regenerated") {
		t.Fatalf("expected updated audit entry for regeneration, got %+v", last)
	}

	if err := f.service.Revoke(ctx, res.CertificateID, "done", f.admin, ""); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if err := f.service.Regenerate(ctx, res.CertificateID, f.admin, ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("regenerating a revoked certificate should fail, got %v", err)
	}
}

func TestBatchIssueIsolatesFailures(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	okA := f.addParticipant("Bola Adeyemi")
	okB := f.addParticipant("Chen Wei")

	// Registered but unknown to the participant directory: this item fails while
	// its siblings succeed.
	ghost := uuid.New()
	f.registrations.byEvent[f.eventID] = append(f.registrations.byEvent[f.eventID], ghost)

	// The fixture participant already holds a certificate and is skipped.
	if _, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, ""); err != nil {
		t.Fatalf("pre-issue failed: %v", err)
	}

	res, err := f.service.IssueBatch(ctx, f.eventID, f.admin, "")
	if err != nil {
		t.Fatalf("batch issue failed: %v", err)
	}
	if res.Summary.Total != 3 || res.Summary.Successful != 2 || res.Summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	if res.Failed[0].ParticipantID != ghost || res.Failed[0].Reason == "" {
		t.Fatalf("expected ghost participant failure with reason, got %+v", res.Failed)
	}
	got := map[uuid.UUID]bool{}
	for _, s := range res.Successful {
		got[s.ParticipantID] = true
		if s.CertificateID == "" {
			t.Fatalf("successful item missing certificate id: %+v", s)
		}
	}
	if !got[okA] || !got[okB] {
		t.Fatalf("expected both new participants issued, got %+v", res.Successful)
	}

	if _, err := f.service.IssueBatch(ctx, uuid.New(), f.admin, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown event should fail, got %v", err)
	}
	student := ports.Actor{UserID: uuid.New(), Role: "STUDENT"}
	if _, err := f.service.IssueBatch(ctx, f.eventID, student, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-elevated batch should be forbidden, got %v", err)
	}
}

func TestBatchIssueIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.addParticipant("Bola Adeyemi")

	first, err := f.service.IssueBatch(ctx, f.eventID, f.admin, "")
	if err != nil {
		t.Fatalf("first batch failed: %v", err)
	}
	if first.Summary.Successful != 2 {
		t.Fatalf("expected two issued, got %+v", first.Summary)
	}

	second, err := f.service.IssueBatch(ctx, f.eventID, f.admin, "")
	if err != nil {
		t.Fatalf("second batch failed: %v", err)
	}
	if second.Summary.Total != 0 || second.Summary.Successful != 0 || second.Summary.Failed != 0 {
		t.Fatalf("re-run should find nothing to issue, got %+v", second.Summary)
	}
}

func TestGetAndAuditTrailOrdering(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	res, err := f.service.Issue(ctx, IssueRequest{ParticipantID: f.participantID, EventID: f.eventID}, f.admin, "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := f.service.Download(ctx, res.CertificateID, f.admin, "", ""); err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if _, err := f.service.Verify(ctx, res.CertificateID, "192.0.2.4"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	detail, err := f.service.Get(ctx, res.CertificateID, f.admin)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	want := []string{"created", "downloaded", "verified"}
	if len(detail.AuditTrail) != len(want) {
		t.Fatalf("expected %v, got %+v", want, detail.AuditTrail)
	}
	for i, action := range want {
		if detail.AuditTrail[i].Action != action {
			t.Fatalf("audit trail out of order: expected %v, got %+v", want, detail.AuditTrail)
		}
	}
	if detail.DownloadCount != 1 {
		t.Fatalf("expected one recorded download, got %d", detail.DownloadCount)
	}

	stranger := ports.Actor{UserID: uuid.New(), Role: "STUDENT"}
	if _, err := f.service.Get(ctx, res.CertificateID, stranger); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("stranger get should be forbidden, got %v", err)
	}
}

func TestListByEvent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.addParticipant("Bola Adeyemi")

	if _, err := f.service.IssueBatch(ctx, f.eventID, f.admin, ""); err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	list, err := f.service.ListByEvent(ctx, f.eventID, f.admin, 0, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected two certificates, got %d", len(list))
	}

	student := ports.Actor{UserID: uuid.New(), Role: "STUDENT"}
	if _, err := f.service.ListByEvent(ctx, f.eventID, student, 0, 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("list should require elevated role, got %v", err)
	}
}
