// Package card renders printable patient identity cards.
//
// A card is a self-contained HTML document sized 68mm x 43mm. The PHN is
// encoded as a QR code and embedded, together with the optional photo, as a
// data URI so the document can be printed without further fetches.
package card

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	WidthMM  = 68
	HeightMM = 43

	// ContentType of rendered artifacts.
	ContentType = "text/html; charset=utf-8"

	// ContentSecurityPolicy permits the inline print script, the stylesheet
	// and the data URI images a card embeds, and nothing else.
	ContentSecurityPolicy = "default-src 'none'; img-src data:; style-src 'unsafe-inline'; script-src 'unsafe-inline'"

	defaultQRSize = 256
)

var ErrMissingPHN = errors.New("card requires a PHN")

// Card is the data printed on an identity card.
type Card struct {
	PHN              string
	DisplayName      string
	Photo            []byte
	PhotoContentType string
}

// Artifact is a rendered card ready for a print sink.
type Artifact struct {
	ID          string
	PHN         string
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Renderer turns cards into HTML artifacts.
type Renderer struct {
	tmpl   *template.Template
	qrSize int
	now    func() time.Time
}

// NewRenderer returns a Renderer using the built-in card layout.
func NewRenderer() *Renderer {
	return &Renderer{
		tmpl:   template.Must(template.New("card").Parse(cardTemplate)),
		qrSize: defaultQRSize,
		now:    time.Now,
	}
}

type cardView struct {
	WidthMM     int
	HeightMM    int
	PHN         string
	DisplayName string
	QR          template.URL
	Photo       template.URL
}

// Render produces the HTML artifact for c.
func (r *Renderer) Render(c Card) (*Artifact, error) {
	if c.PHN == "" {
		return nil, ErrMissingPHN
	}

	png, err := qrcode.Encode(c.PHN, qrcode.Medium, r.qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	view := cardView{
		WidthMM:     WidthMM,
		HeightMM:    HeightMM,
		PHN:         c.PHN,
		DisplayName: c.DisplayName,
		QR:          dataURI("image/png", png),
	}
	if len(c.Photo) > 0 {
		ct := c.PhotoContentType
		if ct == "" {
			ct = http.DetectContentType(c.Photo)
		}
		view.Photo = dataURI(ct, c.Photo)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render card: %w", err)
	}

	return &Artifact{
		ID:          uuid.NewString(),
		PHN:         c.PHN,
		ContentType: ContentType,
		Body:        buf.Bytes(),
		CreatedAt:   r.now().UTC(),
	}, nil
}

func dataURI(contentType string, data []byte) template.URL {
	return template.URL("data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

const cardTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.PHN}}</title>
<style>
@page { size: {{.WidthMM}}mm {{.HeightMM}}mm; margin: 0; }
html, body { margin: 0; padding: 0; }
.card { width: {{.WidthMM}}mm; height: {{.HeightMM}}mm; box-sizing: border-box; padding: 2mm;
  display: flex; align-items: center; gap: 2mm; font-family: sans-serif; overflow: hidden; }
.photo { width: 18mm; height: 22mm; object-fit: cover; }
.qr { width: 22mm; height: 22mm; }
.name { font-size: 9pt; font-weight: bold; }
.phn { font-size: 8pt; letter-spacing: 0.5pt; }
</style>
</head>
<body>
<div class="card">
{{if .Photo}}<img class="photo" src="{{.Photo}}" alt="photo">{{end}}
<div class="details">
<div class="name">{{.DisplayName}}</div>
<div class="phn">PHN: {{.PHN}}</div>
</div>
<img class="qr" src="{{.QR}}" alt="{{.PHN}}">
</div>
<script>window.onload = function () { window.print(); }; window.onafterprint = function () { window.close(); };</script>
</body>
</html>
`
