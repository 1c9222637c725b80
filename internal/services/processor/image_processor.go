package processor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	_ "golang.org/x/image/webp"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

type Options struct {
	MaxWidth int
	Quality  float64
}

var DefaultOptions = Options{
	MaxWidth: 1024,
	Quality:  0.8,
}

// ImageProcessor holds no per-call state; watermark and resize settings are
// passed on every call.
type ImageProcessor struct {
	logger   *zap.Logger
	defaults Options

	fontOnce sync.Once
	font     *opentype.Font
	fontErr  error
}

func NewImageProcessor(logger *zap.Logger, opts ...Options) *ImageProcessor {
	options := DefaultOptions
	if len(opts) > 0 {
		options = opts[0]
	}
	if options.MaxWidth <= 0 {
		options.MaxWidth = DefaultOptions.MaxWidth
	}
	if options.Quality <= 0 || options.Quality > 1 {
		options.Quality = DefaultOptions.Quality
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ImageProcessor{
		logger:   logger,
		defaults: options,
	}
}

func (p *ImageProcessor) Defaults() Options {
	return p.defaults
}

func (p *ImageProcessor) decode(img *models.Image) (image.Image, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", models.ErrDecode)
	}
	decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
	return decoded, nil
}

func (p *ImageProcessor) watermarkFont() (*opentype.Font, error) {
	p.fontOnce.Do(func() {
		p.font, p.fontErr = opentype.Parse(goregular.TTF)
	})
	return p.font, p.fontErr
}
