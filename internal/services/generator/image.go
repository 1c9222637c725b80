package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var imageModalities = []string{string(genai.ModalityText), string(genai.ModalityImage)}

// Generate produces one image from a text prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (*models.Image, error) {
	prompt = buildGeneratePrompt(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is empty", models.ErrNoValidInput)
	}
	return c.generateImage(ctx, genai.NewPartFromText(prompt))
}

// Edit applies a text instruction to an uploaded image.
func (c *Client) Edit(ctx context.Context, src *models.Image, instruction string) (*models.Image, error) {
	if src == nil || len(src.Data) == 0 {
		return nil, fmt.Errorf("%w: source image is required", models.ErrNoValidInput)
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("%w: instruction is empty", models.ErrNoValidInput)
	}
	return c.generateImage(ctx, imagePart(src), genai.NewPartFromText(buildEditPrompt(instruction)))
}

// Variations asks for count variants of src, one call per variant. Variants
// that fail are skipped; an error is returned only when none succeed.
func (c *Client) Variations(ctx context.Context, src *models.Image, count int, hint string) ([]models.Image, error) {
	if src == nil || len(src.Data) == 0 {
		return nil, fmt.Errorf("%w: source image is required", models.ErrNoValidInput)
	}
	count = min(maxVariations, max(1, count))

	var (
		images  []models.Image
		lastErr error
	)
	for i := 1; i <= count; i++ {
		img, err := c.generateImage(ctx, imagePart(src), genai.NewPartFromText(buildVariationPrompt(i, count, hint)))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, ErrNotConfigured) {
				return nil, err
			}
			c.logger.Warn("Variation failed", zap.Int("variation", i), zap.Error(err))
			lastErr = err
			continue
		}
		images = append(images, *img)
	}

	if len(images) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no variations produced")
		}
		return nil, lastErr
	}
	return images, nil
}

func (c *Client) generateImage(ctx context.Context, parts ...*genai.Part) (*models.Image, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.genai.Models.GenerateContent(ctx, c.imageModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: imageModalities,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate content failed: %w", err)
	}

	img, err := extractImage(resp)
	if err != nil {
		c.logger.Info("Gemini returned no image", zap.String("model", c.imageModel), zap.Error(err))
		return nil, err
	}

	c.logger.Debug("Gemini image generated",
		zap.String("model", c.imageModel),
		zap.String("mime_type", img.MIMEType),
		zap.Int("bytes", len(img.Data)))
	return img, nil
}

func imagePart(img *models.Image) *genai.Part {
	return genai.NewPartFromBytes(img.Data, img.MIMEType)
}
