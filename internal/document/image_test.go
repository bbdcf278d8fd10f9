package document

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abduss/filegate/internal/apperr"
)

func TestReadImageInfo(t *testing.T) {
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, image.NewGray(image.Rect(0, 0, 64, 32))))

	info, err := ReadImageInfo(&pngBuf)
	require.NoError(t, err)
	assert.Equal(t, ImageInfo{Width: 64, Height: 32, Format: "png", ColorSpace: "Gray"}, info)

	var jpgBuf bytes.Buffer
	src := image.NewRGBA(image.Rect(0, 0, 10, 20))
	src.Set(1, 1, color.RGBA{R: 255, A: 255})
	require.NoError(t, jpeg.Encode(&jpgBuf, src, nil))

	info, err = ReadImageInfo(&jpgBuf)
	require.NoError(t, err)
	assert.Equal(t, 10, info.Width)
	assert.Equal(t, 20, info.Height)
	assert.Equal(t, "jpeg", info.Format)
	assert.Equal(t, "YCbCr", info.ColorSpace)
}

func TestReadImageInfoRejectsNonImage(t *testing.T) {
	_, err := ReadImageInfo(strings.NewReader("plain text"))
	assert.ErrorIs(t, err, apperr.ErrProcessing)
}
