package ports

import (
	"context"

	"github.com/campushq/certificate-service/internal/domain"
)

// RenderData is the full input to the template renderer: the identifier and
// verification URL for the scannable code, and the write-once snapshot fields
// laid out on the template.
type RenderData struct {
	CertificateID   string
	VerificationURL string
	Snapshot        domain.Snapshot
}

// Renderer composes certificate data onto the visual template and produces the
// requested artifact formats. Rendering is a best-effort enhancement: the
// issuance service falls back to a plain-text artifact on failure so a
// certificate's existence is never blocked by the rendering engine.
type Renderer interface {
	Render(ctx context.Context, data RenderData, formats []domain.ArtifactFormat) ([]domain.Artifact, error)
}
