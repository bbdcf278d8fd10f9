package apperr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorsUnwrapToKind(t *testing.T) {
	err := MimeTypeRejected("image/jpeg")

	assert.ErrorIs(t, err, ErrMimeTypeRejected)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "image/jpeg")
	assert.NotErrorIs(t, err, ErrStorage)
}

func TestSizeExceededMessageCarriesLimit(t *testing.T) {
	err := SizeExceeded(11, 10)

	assert.ErrorIs(t, err, ErrSizeExceeded)
	assert.Equal(t, "size exceeded: 11 bytes exceeds limit of 10 bytes", err.Error())
}

func TestStorageErrorTimeoutVariant(t *testing.T) {
	err := &StorageError{Op: "stat", Timeout: true, Err: context.DeadlineExceeded}

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsValidation(err))
}

func TestNotFoundKeepsCause(t *testing.T) {
	cause := errors.New("NoSuchKey")
	err := &NotFoundError{Bucket: "b", Object: "k", Err: cause}

	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `object "k" not found in bucket "b"`, err.Error())
}

func TestProcessingError(t *testing.T) {
	err := Processing("render thumbnail", nil)

	assert.ErrorIs(t, err, ErrProcessing)
	assert.Equal(t, "render thumbnail failed", err.Error())
}
