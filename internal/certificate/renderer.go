package certificate

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	Width  = 1400
	Height = 990
)

var (
	background = color.NRGBA{R: 0xfd, G: 0xfb, B: 0xf5, A: 0xff}
	accent     = color.NRGBA{R: 0x4f, G: 0x46, B: 0xe5, A: 0xff}
	ink        = color.NRGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	muted      = color.NRGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}
)

// Details is what a certificate states
type Details struct {
	CredentialID string
	Name         string
	Topic        string
	Difficulty   string
	Score        int
	Correct      int
	Total        int
	Date         time.Time
}

// Renderer draws certificate images
type Renderer struct {
	regular *truetype.Font
	bold    *truetype.Font
}

// NewRenderer loads the font at fontPath, or the bundled Go fonts when empty
func NewRenderer(fontPath string) (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}

	if strings.TrimSpace(fontPath) != "" {
		fontBytes, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		custom, err := truetype.Parse(fontBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TTF: %w", err)
		}
		// Custom fonts cover scripts the Go fonts lack, so use them everywhere.
		regular, bold = custom, custom
	}

	return &Renderer{regular: regular, bold: bold}, nil
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Render returns the certificate as PNG bytes
func (r *Renderer) Render(d Details) ([]byte, error) {
	dc := gg.NewContext(Width, Height)
	w, h := float64(Width), float64(Height)

	dc.SetColor(background)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	dc.SetColor(accent)
	dc.SetLineWidth(14)
	dc.DrawRectangle(30, 30, w-60, h-60)
	dc.Stroke()
	dc.SetLineWidth(2)
	dc.DrawRectangle(56, 56, w-112, h-112)
	dc.Stroke()

	dc.SetFontFace(face(r.bold, 64))
	dc.SetColor(accent)
	dc.DrawStringAnchored("Certificate of Achievement", w/2, 190, 0.5, 0.5)

	dc.SetFontFace(face(r.regular, 30))
	dc.SetColor(muted)
	dc.DrawStringAnchored("This certifies that", w/2, 290, 0.5, 0.5)

	dc.SetFontFace(face(r.bold, 72))
	dc.SetColor(ink)
	dc.DrawStringAnchored(d.Name, w/2, 390, 0.5, 0.5)

	dc.SetColor(accent)
	dc.SetLineWidth(3)
	dc.DrawLine(w/2-300, 450, w/2+300, 450)
	dc.Stroke()

	dc.SetFontFace(face(r.regular, 30))
	dc.SetColor(muted)
	dc.DrawStringAnchored("completed the quiz", w/2, 520, 0.5, 0.5)

	dc.SetFontFace(face(r.bold, 48))
	dc.SetColor(ink)
	dc.DrawStringWrapped(d.Topic, w/2, 590, 0.5, 0.5, w-300, 1.2, gg.AlignCenter)

	dc.SetFontFace(face(r.regular, 34))
	dc.SetColor(ink)
	score := fmt.Sprintf("%s difficulty  ·  %d%% (%d of %d correct)", d.Difficulty, d.Score, d.Correct, d.Total)
	dc.DrawStringAnchored(score, w/2, 700, 0.5, 0.5)

	dc.SetFontFace(face(r.regular, 24))
	dc.SetColor(muted)
	dc.DrawStringAnchored(d.Date.Format("January 2, 2006"), w/2, 800, 0.5, 0.5)
	dc.DrawStringAnchored("Credential "+d.CredentialID, w/2, 880, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
