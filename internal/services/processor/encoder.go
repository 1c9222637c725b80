package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// encodeJPEG flattens transparency onto white before encoding.
func (p *ImageProcessor) encodeJPEG(img image.Image, quality int) ([]byte, error) {
	bounds := img.Bounds()
	flat := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	buffer := &bytes.Buffer{}
	if err := imaging.Encode(buffer, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buffer.Bytes(), nil
}

func (p *ImageProcessor) encodePNG(img image.Image) ([]byte, error) {
	buffer := &bytes.Buffer{}
	if err := imaging.Encode(buffer, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buffer.Bytes(), nil
}
