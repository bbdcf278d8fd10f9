package document

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abduss/filegate/internal/apperr"
)

type fakeDocument struct {
	pages   []string
	meta    map[string]string
	render  error
	closed  bool
	renders []float64
}

func (f *fakeDocument) NumPage() int                { return len(f.pages) }
func (f *fakeDocument) Metadata() map[string]string { return f.meta }
func (f *fakeDocument) Close() error                { f.closed = true; return nil }

func (f *fakeDocument) Text(page int) (string, error) {
	return f.pages[page], nil
}

func (f *fakeDocument) ImageDPI(_ int, dpi float64) (*image.RGBA, error) {
	f.renders = append(f.renders, dpi)
	if f.render != nil {
		return nil, f.render
	}
	return image.NewRGBA(image.Rect(0, 0, 300, 400)), nil
}

func fakeExtractor(doc *fakeDocument, openErr error) *PDFExtractor {
	return &PDFExtractor{open: func([]byte) (pdfDocument, error) {
		if openErr != nil {
			return nil, openErr
		}
		return doc, nil
	}}
}

func TestExtractMetadataLeavesMissingFieldsUnset(t *testing.T) {
	doc := &fakeDocument{
		pages: []string{"one", "two"},
		meta: map[string]string{
			"title":        "Quarterly Report",
			"author":       "",
			"encryption":   "None",
			"creationDate": "D:20240102030405Z",
			"modDate":      "garbage",
		},
	}

	md, err := fakeExtractor(doc, nil).ExtractMetadata([]byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, 2, md.PageCount)
	require.NotNil(t, md.Title)
	assert.Equal(t, "Quarterly Report", *md.Title)
	assert.Nil(t, md.Author)
	assert.Nil(t, md.Keywords)
	require.NotNil(t, md.CreatedAt)
	assert.True(t, md.CreatedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Nil(t, md.ModifiedAt)
	assert.False(t, md.Encrypted)
	assert.True(t, doc.closed)
}

func TestExtractMetadataDatesAreLocal(t *testing.T) {
	doc := &fakeDocument{
		pages: []string{"one"},
		meta: map[string]string{
			"creationDate": "D:20240315093000+02'00'",
			"modDate":      "D:20240316120000-05'30'",
		},
	}

	md, err := fakeExtractor(doc, nil).ExtractMetadata([]byte("%PDF"))
	require.NoError(t, err)

	require.NotNil(t, md.CreatedAt)
	assert.Equal(t, time.Local, md.CreatedAt.Location())
	assert.True(t, md.CreatedAt.Equal(time.Date(2024, 3, 15, 7, 30, 0, 0, time.UTC)))
	require.NotNil(t, md.ModifiedAt)
	assert.Equal(t, time.Local, md.ModifiedAt.Location())
	assert.True(t, md.ModifiedAt.Equal(time.Date(2024, 3, 16, 17, 30, 0, 0, time.UTC)))
}

func TestExtractMetadataEncrypted(t *testing.T) {
	doc := &fakeDocument{pages: []string{""}, meta: map[string]string{"encryption": "Standard V4 R4 128-bit AES"}}

	md, err := fakeExtractor(doc, nil).ExtractMetadata([]byte("%PDF"))
	require.NoError(t, err)
	assert.True(t, md.Encrypted)
}

func TestMalformedInputIsProcessingError(t *testing.T) {
	ex := fakeExtractor(nil, errors.New("no objects found"))

	_, err := ex.ExtractMetadata([]byte("not a pdf"))
	assert.ErrorIs(t, err, apperr.ErrProcessing)

	_, err = ex.PageCount([]byte("not a pdf"))
	assert.ErrorIs(t, err, apperr.ErrProcessing)

	_, err = ex.ExtractText([]byte("not a pdf"))
	assert.ErrorIs(t, err, apperr.ErrProcessing)

	_, err = NewPDFExtractor().PageCount(nil)
	assert.ErrorIs(t, err, apperr.ErrProcessing)
}

func TestExtractTextConcatenatesPagesInOrder(t *testing.T) {
	doc := &fakeDocument{pages: []string{"first\n", "", "third\n"}}

	text, err := fakeExtractor(doc, nil).ExtractText([]byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "first\nthird\n", text)
}

func TestZeroPageDocument(t *testing.T) {
	doc := &fakeDocument{}
	ex := fakeExtractor(doc, nil)

	_, err := ex.RenderThumbnail([]byte("%PDF"), 100, 100)
	assert.ErrorIs(t, err, apperr.ErrProcessing)

	assert.False(t, ex.ValidateIntegrity([]byte("%PDF")))
	assert.Empty(t, doc.renders)

	text, err := ex.ExtractText([]byte("%PDF"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestValidateIntegrity(t *testing.T) {
	assert.False(t, NewPDFExtractor().ValidateIntegrity(nil))
	assert.False(t, fakeExtractor(nil, errors.New("broken xref")).ValidateIntegrity([]byte("x")))

	broken := &fakeDocument{pages: []string{"p"}, render: errors.New("render failed")}
	assert.False(t, fakeExtractor(broken, nil).ValidateIntegrity([]byte("%PDF")))

	ok := &fakeDocument{pages: []string{"p"}}
	assert.True(t, fakeExtractor(ok, nil).ValidateIntegrity([]byte("%PDF")))
	assert.Equal(t, []float64{integrityDPI}, ok.renders)
}

func TestRenderThumbnailScales(t *testing.T) {
	doc := &fakeDocument{pages: []string{"p"}}

	out, err := fakeExtractor(doc, nil).RenderThumbnail([]byte("%PDF"), 0, 0)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, DefaultThumbnailWidth, DefaultThumbnailHeight), img.Bounds())
	assert.Equal(t, []float64{thumbnailDPI}, doc.renders)
}

func samplePDF(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Quarterly Report", false)
	pdf.SetAuthor("Finance Team", false)
	pdf.SetKeywords("report finance", false)
	pdf.SetCreationDate(time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC))
	pdf.SetFont("Helvetica", "", 14)
	for i := range pages {
		pdf.AddPage()
		pdf.Cell(40, 10, "Page number "+string(rune('A'+i)))
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestPDFExtractorWithRealDocument(t *testing.T) {
	data := samplePDF(t, 2)
	ex := NewPDFExtractor()

	md, err := ex.ExtractMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, 2, md.PageCount)
	require.NotNil(t, md.Title)
	assert.Equal(t, "Quarterly Report", *md.Title)
	require.NotNil(t, md.Author)
	assert.Equal(t, "Finance Team", *md.Author)
	assert.Nil(t, md.Subject)
	require.NotNil(t, md.CreatedAt)
	assert.True(t, md.CreatedAt.Equal(time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)))
	assert.False(t, md.Encrypted)

	text, err := ex.ExtractText(data)
	require.NoError(t, err)
	assert.Contains(t, text, "Page number A")
	assert.Contains(t, text, "Page number B")
	assert.Less(t, strings.Index(text, "Page number A"), strings.Index(text, "Page number B"))

	thumb, err := ex.RenderThumbnail(data, 120, 160)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 160, img.Bounds().Dy())

	assert.True(t, ex.ValidateIntegrity(data))
	assert.False(t, ex.ValidateIntegrity([]byte("%PDF-1.4 this is not a document")))
}
