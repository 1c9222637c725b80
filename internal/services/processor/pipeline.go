package processor

import (
	"context"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
)

// Pipeline binds a processor to the options of one batch or request. It
// runs normalize before watermark.
type Pipeline struct {
	processor *ImageProcessor
	options   models.ProcessingOptions
}

func NewPipeline(processor *ImageProcessor, options models.ProcessingOptions) *Pipeline {
	return &Pipeline{processor: processor, options: options}
}

func (pl *Pipeline) Process(ctx context.Context, img *models.Image) (*models.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := img
	if pl.options.Normalize {
		normalized, err := pl.processor.Normalize(out, pl.options.MaxWidth, pl.options.Quality)
		if err != nil {
			return nil, err
		}
		out = normalized
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pl.processor.ApplyWatermark(out, pl.options.Watermark)
}
