package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySubmission signals a zero-byte payload.
	ErrEmptySubmission = errors.New("empty submission")
	// ErrSizeExceeded signals a payload larger than its category allows.
	ErrSizeExceeded = errors.New("size exceeded")
	// ErrMimeTypeRejected signals a sniffed type outside the category's allowed set.
	ErrMimeTypeRejected = errors.New("mime type rejected")
	// ErrUnsafeName signals a file name that cannot be made safe by sanitizing.
	ErrUnsafeName = errors.New("unsafe name")
	// ErrEmptyBatch signals a multi-upload with no payloads.
	ErrEmptyBatch = errors.New("empty batch")
	// ErrUnknownCategory signals a category name missing from the registry.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrNotFound signals a missing object or bucket.
	ErrNotFound = errors.New("not found")
	// ErrStorage signals any other backend failure.
	ErrStorage = errors.New("storage failure")
	// ErrTimeout is carried by storage errors caused by cancellation or deadline.
	ErrTimeout = errors.New("storage timeout")
	// ErrProcessing signals a document parsing or rendering failure.
	ErrProcessing = errors.New("processing failure")
)

// ValidationError is returned before any backend call when a submission is rejected.
type ValidationError struct {
	Kind  error
	Value string
	Limit int64
}

func (e *ValidationError) Error() string {
	switch {
	case e.Kind == ErrSizeExceeded:
		return fmt.Sprintf("%s: %s bytes exceeds limit of %d bytes", e.Kind, e.Value, e.Limit)
	case e.Value != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Value)
	default:
		return e.Kind.Error()
	}
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// EmptySubmission builds the validation error for a zero-byte payload.
func EmptySubmission() error {
	return &ValidationError{Kind: ErrEmptySubmission}
}

// SizeExceeded builds the validation error for an oversized payload.
func SizeExceeded(size, limit int64) error {
	return &ValidationError{Kind: ErrSizeExceeded, Value: fmt.Sprintf("%d", size), Limit: limit}
}

// MimeTypeRejected embeds the offending sniffed type.
func MimeTypeRejected(mimeType string) error {
	return &ValidationError{Kind: ErrMimeTypeRejected, Value: mimeType}
}

// UnsafeName embeds the rejected name.
func UnsafeName(name string) error {
	return &ValidationError{Kind: ErrUnsafeName, Value: name}
}

// UnknownCategory embeds the unresolved category name.
func UnknownCategory(name string) error {
	return &ValidationError{Kind: ErrUnknownCategory, Value: name}
}

// NotFoundError reports a missing object or bucket.
type NotFoundError struct {
	Bucket string
	Object string
	Err    error
}

func (e *NotFoundError) Error() string {
	if e.Object == "" {
		return fmt.Sprintf("bucket %q not found", e.Bucket)
	}
	return fmt.Sprintf("object %q not found in bucket %q", e.Object, e.Bucket)
}

func (e *NotFoundError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotFound}
	}
	return []error{ErrNotFound, e.Err}
}

// StorageError wraps every backend failure other than a missing key.
type StorageError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *StorageError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("storage %s timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	errs := []error{ErrStorage}
	if e.Timeout {
		errs = append(errs, ErrTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ProcessingError wraps document parsing, extraction and rendering failures.
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProcessing}
	}
	return []error{ErrProcessing, e.Err}
}

// Processing builds a ProcessingError for op.
func Processing(op string, err error) error {
	return &ProcessingError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
