package processor

import (
	"bytes"
	"fmt"
	"image"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
)

func (p *ImageProcessor) ValidateImage(data []byte, maxSize int64) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("file size %d exceeds maximum allowed size %d", len(data), maxSize)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("invalid image format: %w", err)
	}
	return nil
}

// Dimensions reads the pixel size without decoding the full raster.
func (p *ImageProcessor) Dimensions(img *models.Image) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
	return cfg.Width, cfg.Height, nil
}
