package processor

import (
	"math"

	"github.com/disintegration/imaging"
	"github.com/nadungimhanalk/Gemini-Image/internal/models"
)

// Normalize scales the image down to maxWidth when it is wider, keeping the
// aspect ratio, and always re-encodes it as JPEG at the given quality (0-1).
func (p *ImageProcessor) Normalize(img *models.Image, maxWidth int, quality float64) (*models.Image, error) {
	src, err := p.decode(img)
	if err != nil {
		return nil, err
	}

	if maxWidth <= 0 {
		maxWidth = p.defaults.MaxWidth
	}
	if quality <= 0 || quality > 1 {
		quality = p.defaults.Quality
	}

	bounds := src.Bounds()
	if bounds.Dx() > maxWidth {
		width, height := scaledSize(bounds.Dx(), bounds.Dy(), maxWidth)
		src = imaging.Resize(src, width, height, imaging.Lanczos)
	}

	data, err := p.encodeJPEG(src, jpegQuality(quality))
	if err != nil {
		return nil, err
	}
	return &models.Image{Data: data, MIMEType: MIMEJPEG}, nil
}

func scaledSize(width, height, maxWidth int) (int, int) {
	h := int(math.Round(float64(height) * float64(maxWidth) / float64(width)))
	return maxWidth, max(1, h)
}

func jpegQuality(quality float64) int {
	return min(100, max(1, int(math.Round(quality*100))))
}
