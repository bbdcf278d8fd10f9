package filetype

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLimit is how many leading bytes are inspected for magic numbers.
const SniffLimit = 3072

// Sniff detects the MIME type of data from its leading bytes. Parameters such
// as charset are stripped so the result compares against the category table.
func Sniff(data []byte) string {
	if len(data) > SniffLimit {
		data = data[:SniffLimit]
	}
	return baseType(mimetype.Detect(data).String())
}

// SniffReader reads the leading bytes of r, detects their type and returns a
// reader that replays those bytes followed by the rest of r. n is the number
// of bytes consumed from r during detection.
func SniffReader(r io.Reader) (mimeType string, replay io.Reader, n int, err error) {
	head := make([]byte, SniffLimit)
	n, err = io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, n, fmt.Errorf("read leading bytes: %w", err)
	}
	head = head[:n]
	return Sniff(head), io.MultiReader(bytes.NewReader(head), r), n, nil
}

func baseType(full string) string {
	if mediaType, _, err := mime.ParseMediaType(full); err == nil {
		return mediaType
	}
	if i := strings.IndexByte(full, ';'); i >= 0 {
		full = full[:i]
	}
	return strings.ToLower(strings.TrimSpace(full))
}
