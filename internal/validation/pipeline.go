// Package validation accepts or rejects an incoming payload before any backend call.
package validation

import (
	"io"
	"strings"

	"github.com/abduss/filegate/internal/apperr"
	"github.com/abduss/filegate/internal/filetype"
	"github.com/abduss/filegate/internal/sanitize"
)

// UnknownSize marks a submission whose length is not known up front.
const UnknownSize int64 = -1

// Submission is an untrusted upload as received from the caller.
type Submission struct {
	// Filename is the client-supplied original name.
	Filename string
	// Name optionally overrides the stored object name.
	Name string
	// Size is the declared length, or UnknownSize.
	Size int64
	Body io.Reader
}

// Accepted is a submission that passed every check.
type Accepted struct {
	Descriptor   filetype.Descriptor
	MIMEType     string
	Name         string
	OriginalName string
	Size         int64
	// Body replays the sniffed bytes and enforces the category size ceiling
	// while streaming.
	Body *SizeGuard
}

// Validate runs the checks in order, cheapest first, and stops at the first
// failure. The declared content type is never consulted.
func Validate(sub Submission, d filetype.Descriptor) (*Accepted, error) {
	if sub.Size == 0 || sub.Body == nil {
		return nil, apperr.EmptySubmission()
	}
	limit := filetype.MaxSize(d)
	if sub.Size > limit {
		return nil, apperr.SizeExceeded(sub.Size, limit)
	}

	mimeType, replay, n, err := filetype.SniffReader(sub.Body)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.EmptySubmission()
	}

	if !filetype.IsAllowed(d, mimeType) {
		return nil, apperr.MimeTypeRejected(mimeType)
	}

	name, err := ResolveName(sub.Name, sub.Filename)
	if err != nil {
		return nil, err
	}

	size := sub.Size
	if size < 0 {
		size = UnknownSize
	}
	return &Accepted{
		Descriptor:   d,
		MIMEType:     mimeType,
		Name:         name,
		OriginalName: originalName(sub.Filename),
		Size:         size,
		Body:         NewSizeGuard(replay, limit),
	}, nil
}

// ResolveName picks the proposed name (custom over original) and makes it safe.
// Names with an executable extension are rejected since no rewrite fixes them.
func ResolveName(custom, original string) (string, error) {
	proposed := custom
	if strings.TrimSpace(proposed) == "" {
		proposed = original
	}
	if strings.TrimSpace(proposed) == "" {
		return sanitize.DefaultName, nil
	}
	if sanitize.HasBlockedExtension(proposed) {
		return "", apperr.UnsafeName(proposed)
	}
	if sanitize.IsSafe(proposed) {
		return proposed, nil
	}
	return sanitize.Name(proposed), nil
}

func originalName(name string) string {
	if strings.TrimSpace(name) == "" {
		return sanitize.DefaultName
	}
	return name
}

// SizeGuard counts bytes read and fails once more than the limit has passed through.
type SizeGuard struct {
	r     io.Reader
	limit int64
	n     int64
}

// NewSizeGuard wraps r with a byte ceiling.
func NewSizeGuard(r io.Reader, limit int64) *SizeGuard {
	return &SizeGuard{r: r, limit: limit}
}

func (g *SizeGuard) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	g.n += int64(n)
	if g.n > g.limit {
		return n, apperr.SizeExceeded(g.n, g.limit)
	}
	return n, err
}

// BytesRead is the number of bytes streamed so far.
func (g *SizeGuard) BytesRead() int64 { return g.n }

// Exceeded reports whether the stream went past the limit.
func (g *SizeGuard) Exceeded() bool { return g.n > g.limit }

// Limit is the ceiling enforced by the guard.
func (g *SizeGuard) Limit() int64 { return g.limit }
