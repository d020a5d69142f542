package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/campushq/certificate-service/internal/domain"
	"github.com/campushq/certificate-service/internal/ports"
)

// TemplateRenderer draws the certificate onto the configured layout and emits
// image (PNG), document (PDF) and text artifacts. Fonts are parsed once at
// construction; Render itself holds no mutable state and is safe for
// concurrent use.
type TemplateRenderer struct {
	layout  Layout
	logger  *slog.Logger
	regular *truetype.Font
	bold    *truetype.Font
	italic  *truetype.Font
	nowFn   func() time.Time
}

func NewTemplateRenderer(layout Layout, logger *slog.Logger) (*TemplateRenderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	italic, err := truetype.Parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse italic font: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateRenderer{
		layout:  layout,
		logger:  logger,
		regular: regular,
		bold:    bold,
		italic:  italic,
		nowFn:   time.Now,
	}, nil
}

func (r *TemplateRenderer) Render(ctx context.Context, data ports.RenderData, formats []domain.ArtifactFormat) ([]domain.Artifact, error) {
	qrPNG, err := qrcode.Encode(data.VerificationURL, qrcode.Medium, r.layout.QRSize)
	if err != nil {
		return nil, fmt.Errorf("encode verification qr: %w", err)
	}

	artifacts := make([]domain.Artifact, 0, len(formats))
	for _, format := range formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var artifact domain.Artifact
		switch format {
		case domain.FormatImage:
			artifact, err = r.renderImage(data, qrPNG)
		case domain.FormatDocument:
			artifact, err = r.renderDocument(data, qrPNG)
		case domain.FormatText:
			artifact = r.renderText(data)
		default:
			err = fmt.Errorf("%w: unknown artifact format %q", domain.ErrInvalidInput, format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}

func (r *TemplateRenderer) face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size})
}

func (r *TemplateRenderer) renderImage(data ports.RenderData, qrPNG []byte) (domain.Artifact, error) {
	l := r.layout
	w, h := float64(l.Width), float64(l.Height)
	dc := gg.NewContext(l.Width, l.Height)

	dc.SetRGB(l.BackgroundR, l.BackgroundG, l.BackgroundB)
	dc.Clear()

	dc.SetRGB(l.BorderR, l.BorderG, l.BorderB)
	dc.SetLineWidth(6)
	dc.DrawRectangle(l.BorderInset, l.BorderInset, w-2*l.BorderInset, h-2*l.BorderInset)
	dc.Stroke()
	dc.SetLineWidth(2)
	dc.DrawRectangle(l.BorderInset+12, l.BorderInset+12, w-2*(l.BorderInset+12), h-2*(l.BorderInset+12))
	dc.Stroke()

	centerX := w / 2
	y := l.Margin + 120

	dc.SetFontFace(r.face(r.bold, l.TitleSize))
	dc.SetRGB(l.BorderR, l.BorderG, l.BorderB)
	dc.DrawStringAnchored(l.TitleText, centerX, y, 0.5, 0.5)
	y += 110

	dc.SetFontFace(r.face(r.italic, l.BodySize))
	dc.SetRGB(0.25, 0.25, 0.25)
	dc.DrawStringAnchored(l.SubtitleText, centerX, y, 0.5, 0.5)
	y += 90

	dc.SetFontFace(r.face(r.bold, l.NameSize))
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(data.Snapshot.ParticipantName, centerX, y, 0.5, 0.5)
	y += 50

	nameWidth, _ := dc.MeasureString(data.Snapshot.ParticipantName)
	dc.SetRGB(l.AccentR, l.AccentG, l.AccentB)
	dc.SetLineWidth(4)
	dc.DrawLine(centerX-nameWidth/2, y, centerX+nameWidth/2, y)
	dc.Stroke()
	y += 70

	dc.SetFontFace(r.face(r.regular, l.BodySize))
	dc.SetRGB(0.25, 0.25, 0.25)
	dc.DrawStringAnchored("has successfully participated in", centerX, y, 0.5, 0.5)
	y += 80

	dc.SetFontFace(r.face(r.bold, l.BodySize+10))
	dc.SetRGB(l.BorderR, l.BorderG, l.BorderB)
	dc.DrawStringAnchored(data.Snapshot.EventTitle, centerX, y, 0.5, 0.5)
	y += 80

	dc.SetFontFace(r.face(r.regular, l.BodySize-4))
	dc.SetRGB(0.25, 0.25, 0.25)
	dc.DrawStringAnchored(eventLine(data.Snapshot), centerX, y, 0.5, 0.5)
	if len(data.Snapshot.Skills) > 0 {
		y += 55
		dc.DrawStringAnchored("Skills: "+strings.Join(data.Snapshot.Skills, ", "), centerX, y, 0.5, 0.5)
	}

	qrImg, err := png.Decode(bytes.NewReader(qrPNG))
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("decode qr png: %w", err)
	}
	qrX := w - l.Margin - float64(l.QRSize)
	qrY := h - l.Margin - float64(l.QRSize)
	dc.DrawImage(qrImg, int(qrX), int(qrY))

	dc.SetFontFace(r.face(r.regular, l.FooterSize))
	dc.SetRGB(0.4, 0.4, 0.4)
	dc.DrawStringAnchored(data.CertificateID, l.Margin, h-l.Margin, 0, 0.5)
	dc.DrawStringAnchored("Verify: "+data.VerificationURL, l.Margin, h-l.Margin+28, 0, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return domain.Artifact{}, fmt.Errorf("encode png: %w", err)
	}
	content := buf.Bytes()
	return domain.Artifact{
		Format:      domain.FormatImage,
		ContentType: "image/png",
		FileName:    data.CertificateID + ".png",
		Content:     content,
		SizeBytes:   int64(len(content)),
		RenderedAt:  r.nowFn().UTC(),
	}, nil
}

func (r *TemplateRenderer) renderDocument(data ports.RenderData, qrPNG []byte) (domain.Artifact, error) {
	l := r.layout
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	pdf.SetDrawColor(int(l.BorderR*255), int(l.BorderG*255), int(l.BorderB*255))
	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, pageW-20, pageH-20, "D")
	pdf.SetLineWidth(0.4)
	pdf.Rect(13, 13, pageW-26, pageH-26, "D")

	pdf.SetY(35)
	pdf.SetFont("Helvetica", "B", 30)
	pdf.SetTextColor(int(l.BorderR*255), int(l.BorderG*255), int(l.BorderB*255))
	pdf.CellFormat(0, 14, l.TitleText, "", 1, "C", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 13)
	pdf.SetTextColor(64, 64, 64)
	pdf.CellFormat(0, 8, l.SubtitleText, "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(26, 26, 26)
	pdf.CellFormat(0, 12, data.Snapshot.ParticipantName, "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 13)
	pdf.SetTextColor(64, 64, 64)
	pdf.CellFormat(0, 8, "has successfully participated in", "", 1, "C", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 17)
	pdf.SetTextColor(int(l.BorderR*255), int(l.BorderG*255), int(l.BorderB*255))
	pdf.CellFormat(0, 10, data.Snapshot.EventTitle, "", 1, "C", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(64, 64, 64)
	pdf.CellFormat(0, 7, eventLine(data.Snapshot), "", 1, "C", false, 0, "")
	if len(data.Snapshot.Skills) > 0 {
		pdf.CellFormat(0, 7, "Skills: "+strings.Join(data.Snapshot.Skills, ", "), "", 1, "C", false, 0, "")
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("verification-qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("verification-qr", pageW-55, pageH-55, 35, 35, false, opts, 0, "")

	pdf.SetXY(20, pageH-35)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(102, 102, 102)
	pdf.CellFormat(0, 5, data.CertificateID, "", 1, "L", false, 0, "")
	pdf.SetX(20)
	pdf.CellFormat(0, 5, "Verify: "+data.VerificationURL, "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return domain.Artifact{}, fmt.Errorf("encode pdf: %w", err)
	}
	content := buf.Bytes()
	return domain.Artifact{
		Format:      domain.FormatDocument,
		ContentType: "application/pdf",
		FileName:    data.CertificateID + ".pdf",
		Content:     content,
		SizeBytes:   int64(len(content)),
		RenderedAt:  r.nowFn().UTC(),
	}, nil
}

func (r *TemplateRenderer) renderText(data ports.RenderData) domain.Artifact {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", r.layout.TitleText)
	fmt.Fprintf(&b, "%s\n%s\n\nhas successfully participated in\n%s\n%s\n",
		r.layout.SubtitleText,
		data.Snapshot.ParticipantName,
		data.Snapshot.EventTitle,
		eventLine(data.Snapshot),
	)
	if len(data.Snapshot.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(data.Snapshot.Skills, ", "))
	}
	fmt.Fprintf(&b, "\n%s\nVerify: %s\n", data.CertificateID, data.VerificationURL)

	content := []byte(b.String())
	return domain.Artifact{
		Format:      domain.FormatText,
		ContentType: "text/plain; charset=utf-8",
		FileName:    data.CertificateID + ".txt",
		Content:     content,
		SizeBytes:   int64(len(content)),
		RenderedAt:  r.nowFn().UTC(),
	}
}

func eventLine(snap domain.Snapshot) string {
	parts := []string{snap.DateRangeLabel()}
	if snap.DurationLabel != "" {
		parts = append(parts, snap.DurationLabel)
	}
	if snap.EventVenue != "" {
		parts = append(parts, snap.EventVenue)
	}
	if snap.EventMode != "" {
		parts = append(parts, snap.EventMode)
	}
	return strings.Join(parts, " | ")
}
