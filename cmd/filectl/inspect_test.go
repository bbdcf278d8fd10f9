package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abduss/filegate/internal/apperr"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func runInspect(t *testing.T, args ...string) (inspectReport, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"inspect"}, args...))
	if err := cmd.Execute(); err != nil {
		return inspectReport{}, err
	}
	var report inspectReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	return report, nil
}

func TestInspectClassifiesImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 32, 16))))
	path := writeTemp(t, "cover.png", buf.Bytes())

	report, err := runInspect(t, path, "--taxonomy", "")
	require.NoError(t, err)
	assert.Equal(t, "IMAGE", report.Category)
	assert.Equal(t, "images", report.BucketSuffix)
	assert.Equal(t, "image/png", report.MIMEType)
	assert.Equal(t, "cover.png", report.Name)
	assert.Equal(t, int64(buf.Len()), report.Size)
	assert.Len(t, report.Checksum, 64)
	require.NotNil(t, report.Image)
	assert.Equal(t, 32, report.Image.Width)
	assert.Equal(t, 16, report.Image.Height)
	assert.Nil(t, report.Document)
}

func TestInspectCustomNameIsSanitized(t *testing.T) {
	path := writeTemp(t, "notes.txt", []byte("plain text notes"))

	report, err := runInspect(t, path, "--taxonomy", "", "--category", "document", "--name", "my:notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "DOCUMENT", report.Category)
	assert.Equal(t, "my_notes.txt", report.Name)
	assert.Equal(t, "notes.txt", report.OriginalName)
}

func TestInspectRejections(t *testing.T) {
	path := writeTemp(t, "notes.txt", []byte("plain text notes"))

	_, err := runInspect(t, path, "--taxonomy", "", "--category", "SONG")
	assert.ErrorIs(t, err, apperr.ErrMimeTypeRejected)

	_, err = runInspect(t, path, "--taxonomy", "", "--category", "NOPE")
	assert.ErrorIs(t, err, apperr.ErrUnknownCategory)

	_, err = runInspect(t, path, "--taxonomy", "", "--name", "setup.exe")
	assert.ErrorIs(t, err, apperr.ErrUnsafeName)

	empty := writeTemp(t, "empty.txt", nil)
	_, err = runInspect(t, empty, "--taxonomy", "")
	assert.ErrorIs(t, err, apperr.ErrEmptySubmission)

	_, err = runInspect(t, filepath.Join(t.TempDir(), "missing.txt"), "--taxonomy", "")
	assert.Error(t, err)
}

func TestInspectPDF(t *testing.T) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Inspection", false)
	pdf.SetCreationDate(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	pdf.SetFont("Helvetica", "", 12)
	pdf.AddPage()
	pdf.Cell(40, 10, "hello")
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	path := writeTemp(t, "report.pdf", buf.Bytes())

	report, err := runInspect(t, path, "--taxonomy", "")
	require.NoError(t, err)
	assert.Equal(t, "PDF", report.Category)
	assert.Equal(t, "documents", report.BucketSuffix)
	require.NotNil(t, report.Document)
	assert.Equal(t, 1, report.Document.PageCount)
	require.NotNil(t, report.Document.Title)
	assert.Equal(t, "Inspection", *report.Document.Title)
	require.NotNil(t, report.Intact)
	assert.True(t, *report.Intact)
}
