package processor

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	paddingRatio   = 0.03
	fontSizeRatio  = 0.05
	logoWidthRatio = 0.15
	shadowOpacity  = 0.6
)

// ApplyWatermark draws the configured text or logo over img and returns a
// PNG. A nil or disabled config returns img itself, untouched. A logo that
// cannot be decoded also returns img untouched.
func (p *ImageProcessor) ApplyWatermark(img *models.Image, cfg *models.WatermarkConfig) (*models.Image, error) {
	if !cfg.Active() {
		return img, nil
	}

	src, err := p.decode(img)
	if err != nil {
		return nil, err
	}

	canvas := imaging.Clone(src)
	width := canvas.Bounds().Dx()
	padding := int(math.Round(float64(width) * paddingRatio))
	opacity := min(1.0, max(0.0, cfg.Opacity))

	switch cfg.Kind {
	case models.WatermarkLogo:
		logo, err := p.decode(cfg.Logo)
		if err != nil {
			p.logger.Warn("Watermark logo unreadable, returning original image", zap.Error(err))
			return img, nil
		}
		p.drawLogo(canvas, logo, cfg.Anchor, padding, opacity)
	default:
		if err := p.drawText(canvas, cfg, padding, opacity); err != nil {
			return nil, err
		}
	}

	data, err := p.encodePNG(canvas)
	if err != nil {
		return nil, err
	}
	return &models.Image{Data: data, MIMEType: MIMEPNG}, nil
}

func (p *ImageProcessor) drawText(canvas *image.NRGBA, cfg *models.WatermarkConfig, padding int, opacity float64) error {
	f, err := p.watermarkFont()
	if err != nil {
		return err
	}

	bounds := canvas.Bounds()
	scale := cfg.FontScale
	if scale <= 0 {
		scale = 1
	}
	size := math.Max(1, float64(bounds.Dx())*fontSizeRatio*scale)

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return err
	}
	defer face.Close()

	textWidth := font.MeasureString(face, cfg.Text).Ceil()
	origin := textOrigin(cfg.Anchor, bounds.Dx(), bounds.Dy(), textWidth, int(math.Round(size)), padding)

	// Soft shadow: blurred black copy slightly offset, under the white text.
	offset := max(1, int(math.Round(size/20)))
	shadow := image.NewNRGBA(bounds)
	renderText(shadow, face, cfg.Text, origin.Add(image.Pt(offset, offset)), color.Black)
	blurred := imaging.Blur(shadow, math.Max(1, size/15))
	composite(canvas, blurred, image.Point{}, opacity*shadowOpacity)

	fill := image.NewNRGBA(bounds)
	renderText(fill, face, cfg.Text, origin, color.White)
	composite(canvas, fill, image.Point{}, opacity)
	return nil
}

func (p *ImageProcessor) drawLogo(canvas *image.NRGBA, logo image.Image, anchor models.Anchor, padding int, opacity float64) {
	bounds := canvas.Bounds()
	logoWidth := max(1, int(math.Round(float64(bounds.Dx())*logoWidthRatio)))
	scaled := imaging.Resize(logo, logoWidth, 0, imaging.Lanczos)

	size := scaled.Bounds().Size()
	origin := logoOrigin(anchor, bounds.Dx(), bounds.Dy(), size.X, size.Y, padding)
	composite(canvas, scaled, origin, opacity)
}

func renderText(dst draw.Image, face font.Face, text string, origin image.Point, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(origin.X, origin.Y),
	}
	d.DrawString(text)
}

// composite draws layer over dst at pos with a uniform alpha.
func composite(dst draw.Image, layer image.Image, pos image.Point, opacity float64) {
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	rect := image.Rectangle{Min: pos, Max: pos.Add(layer.Bounds().Size())}
	draw.DrawMask(dst, rect, layer, layer.Bounds().Min, mask, image.Point{}, draw.Over)
}

// textOrigin returns the baseline-left point of the text for anchor. Corners
// sit padding pixels inside the image on both axes.
func textOrigin(anchor models.Anchor, width, height, textWidth, fontSize, padding int) image.Point {
	switch anchor {
	case models.AnchorTopLeft:
		return image.Pt(padding, padding+fontSize)
	case models.AnchorTopRight:
		return image.Pt(width-padding-textWidth, padding+fontSize)
	case models.AnchorBottomLeft:
		return image.Pt(padding, height-padding)
	case models.AnchorCenter:
		return image.Pt((width-textWidth)/2, (height+fontSize)/2)
	default:
		return image.Pt(width-padding-textWidth, height-padding)
	}
}

// logoOrigin returns the top-left point of the logo for anchor, keeping the
// whole logo inside the padded region.
func logoOrigin(anchor models.Anchor, width, height, logoWidth, logoHeight, padding int) image.Point {
	switch anchor {
	case models.AnchorTopLeft:
		return image.Pt(padding, padding)
	case models.AnchorTopRight:
		return image.Pt(width-logoWidth-padding, padding)
	case models.AnchorBottomLeft:
		return image.Pt(padding, height-logoHeight-padding)
	case models.AnchorCenter:
		return image.Pt((width-logoWidth)/2, (height-logoHeight)/2)
	default:
		return image.Pt(width-logoWidth-padding, height-logoHeight-padding)
	}
}
