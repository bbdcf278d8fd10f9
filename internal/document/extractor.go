package document

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"

	"github.com/abduss/filegate/internal/apperr"
)

const (
	// DefaultThumbnailWidth and DefaultThumbnailHeight apply when a caller passes a non-positive size.
	DefaultThumbnailWidth  = 200
	DefaultThumbnailHeight = 200

	thumbnailDPI = 150
	integrityDPI = 72
)

var (
	errEmptyDocument = errors.New("document is empty")
	errNoPages       = errors.New("document has no pages")
)

// Metadata is the structural information read from a document. Pointer
// fields are nil when the document does not carry the value. Dates are in
// local time.
type Metadata struct {
	PageCount  int        `json:"page_count"`
	Title      *string    `json:"title,omitempty"`
	Author     *string    `json:"author,omitempty"`
	Subject    *string    `json:"subject,omitempty"`
	Creator    *string    `json:"creator,omitempty"`
	Producer   *string    `json:"producer,omitempty"`
	Keywords   *string    `json:"keywords,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
	Encrypted  bool       `json:"encrypted"`
}

// Extractor reads structure, text and previews out of document bytes.
type Extractor interface {
	ExtractMetadata(data []byte) (Metadata, error)
	ExtractText(data []byte) (string, error)
	PageCount(data []byte) (int, error)
	RenderThumbnail(data []byte, width, height int) ([]byte, error)
	ValidateIntegrity(data []byte) bool
}

// pdfDocument is the subset of *fitz.Document the extractor needs.
type pdfDocument interface {
	NumPage() int
	Metadata() map[string]string
	Text(page int) (string, error)
	ImageDPI(page int, dpi float64) (*image.RGBA, error)
	Close() error
}

type opener func(data []byte) (pdfDocument, error)

func openFitz(data []byte) (pdfDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// PDFExtractor implements Extractor for PDF using MuPDF.
type PDFExtractor struct {
	open opener
}

// NewPDFExtractor returns an extractor backed by MuPDF.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{open: openFitz}
}

func (p *PDFExtractor) load(op string, data []byte) (pdfDocument, error) {
	if len(data) == 0 {
		return nil, apperr.Processing(op, errEmptyDocument)
	}
	doc, err := p.open(data)
	if err != nil {
		return nil, apperr.Processing(op, err)
	}
	return doc, nil
}

// ExtractMetadata reads the page count and the info dictionary.
func (p *PDFExtractor) ExtractMetadata(data []byte) (Metadata, error) {
	doc, err := p.load("extract metadata", data)
	if err != nil {
		return Metadata{}, err
	}
	defer doc.Close()

	info := doc.Metadata()
	enc := strings.TrimSpace(info["encryption"])

	return Metadata{
		PageCount:  doc.NumPage(),
		Title:      optional(info["title"]),
		Author:     optional(info["author"]),
		Subject:    optional(info["subject"]),
		Creator:    optional(info["creator"]),
		Producer:   optional(info["producer"]),
		Keywords:   optional(info["keywords"]),
		CreatedAt:  optionalDate(info["creationDate"]),
		ModifiedAt: optionalDate(info["modDate"]),
		Encrypted:  enc != "" && !strings.EqualFold(enc, "none"),
	}, nil
}

// ExtractText concatenates the text of every page in order. A document
// without text yields an empty string.
func (p *PDFExtractor) ExtractText(data []byte) (string, error) {
	doc, err := p.load("extract text", data)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	var sb strings.Builder
	for i := range doc.NumPage() {
		text, err := doc.Text(i)
		if err != nil {
			return "", apperr.Processing("extract text", err)
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func (p *PDFExtractor) PageCount(data []byte) (int, error) {
	doc, err := p.load("page count", data)
	if err != nil {
		return 0, err
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// RenderThumbnail renders the first page and scales it to width x height,
// returning PNG bytes.
func (p *PDFExtractor) RenderThumbnail(data []byte, width, height int) ([]byte, error) {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}
	if height <= 0 {
		height = DefaultThumbnailHeight
	}

	doc, err := p.load("render thumbnail", data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, apperr.Processing("render thumbnail", errNoPages)
	}
	page, err := doc.ImageDPI(0, thumbnailDPI)
	if err != nil {
		return nil, apperr.Processing("render thumbnail", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), page, page.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, apperr.Processing("render thumbnail", err)
	}
	return buf.Bytes(), nil
}

// ValidateIntegrity parses the document and renders the first page at low
// resolution. Documents without pages are not considered intact.
func (p *PDFExtractor) ValidateIntegrity(data []byte) bool {
	doc, err := p.load("validate integrity", data)
	if err != nil {
		return false
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return false
	}
	_, err = doc.ImageDPI(0, integrityDPI)
	return err == nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalDate(s string) *time.Time {
	t, err := ParseDate(s)
	if err != nil {
		return nil
	}
	t = t.Local()
	return &t
}
