package render

// Layout holds template geometry and styling for the rendered certificate.
// Values are fixed per template version; changing them means bumping the
// template version, never mutating a layout in place.
type Layout struct {
	Width  int
	Height int

	Margin      float64
	BorderInset float64

	BackgroundR, BackgroundG, BackgroundB float64
	BorderR, BorderG, BorderB             float64
	AccentR, AccentG, AccentB             float64

	TitleText    string
	SubtitleText string

	TitleSize  float64
	NameSize   float64
	BodySize   float64
	FooterSize float64

	QRSize int
}

// DefaultLayout is the v2 certificate template: landscape, dark border, gold
// accent rule under the participant name.
func DefaultLayout() Layout {
	return Layout{
		Width:        1600,
		Height:       1131,
		Margin:       80,
		BorderInset:  40,
		BackgroundR:  0.98,
		BackgroundG:  0.97,
		BackgroundB:  0.94,
		BorderR:      0.13,
		BorderG:      0.20,
		BorderB:      0.33,
		AccentR:      0.80,
		AccentG:      0.62,
		AccentB:      0.21,
		TitleText:    "Certificate of Participation",
		SubtitleText: "This is to certify that",
		TitleSize:    64,
		NameSize:     56,
		BodySize:     30,
		FooterSize:   20,
		QRSize:       200,
	}
}
