package document

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/abduss/filegate/internal/apperr"
)

// ImageInfo is what can be learned about a raster image from its header.
type ImageInfo struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Format     string `json:"format"`
	ColorSpace string `json:"color_space"`
}

// ReadImageInfo decodes only the image header from r.
func ReadImageInfo(r io.Reader) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ImageInfo{}, apperr.Processing("read image header", err)
	}
	return ImageInfo{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Format:     format,
		ColorSpace: colorSpace(cfg.ColorModel),
	}, nil
}

func colorSpace(m color.Model) string {
	switch m {
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model:
		return "RGB"
	case color.GrayModel, color.Gray16Model:
		return "Gray"
	case color.YCbCrModel, color.NYCbCrAModel:
		return "YCbCr"
	case color.CMYKModel:
		return "CMYK"
	}
	if _, ok := m.(color.Palette); ok {
		return "Indexed"
	}
	return fmt.Sprintf("%T", m)
}
