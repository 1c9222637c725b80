package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GenerateVideo starts a long-running video generation and waits for it.
// Polling happens here; callers only see the finished video or an error.
func (c *Client) GenerateVideo(ctx context.Context, prompt, aspectRatio string) (*models.Video, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is empty", models.ErrNoValidInput)
	}
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var cfg *genai.GenerateVideosConfig
	if aspectRatio != "" {
		cfg = &genai.GenerateVideosConfig{AspectRatio: aspectRatio}
	}

	op, err := c.genai.Models.GenerateVideos(ctx, c.videoModel, prompt, nil, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate videos failed: %w", err)
	}
	c.logger.Info("Video operation started", zap.String("operation", op.Name), zap.String("model", c.videoModel))

	finished, err := c.waitForOperation(ctx, op)
	if err != nil {
		return nil, err
	}
	return c.fetchVideo(ctx, finished)
}

func (c *Client) waitForOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	current := op
	for !current.Done {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		next, err := c.genai.Operations.GetVideosOperation(ctx, current, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to poll operation %s: %w", current.Name, err)
		}
		if next.Name == "" {
			next.Name = current.Name
		}
		current = next
		c.logger.Debug("Video operation polled", zap.String("operation", current.Name), zap.Bool("done", current.Done))
	}
	return current, nil
}

func (c *Client) fetchVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*models.Video, error) {
	if op.Error != nil {
		return nil, fmt.Errorf("video generation failed: %v", op.Error["message"])
	}
	if op.Response == nil {
		return nil, &models.GenerationError{Kind: models.FailureNoOutput, Message: "operation finished without response"}
	}

	resp := op.Response
	if len(resp.RAIMediaFilteredReasons) > 0 {
		return nil, &models.GenerationError{Kind: models.FailureSafety, Message: strings.Join(resp.RAIMediaFilteredReasons, "; ")}
	}
	if len(resp.GeneratedVideos) == 0 || resp.GeneratedVideos[0] == nil || resp.GeneratedVideos[0].Video == nil {
		return nil, &models.GenerationError{Kind: models.FailureNoOutput, Message: "operation returned no video"}
	}

	video := resp.GeneratedVideos[0].Video
	data := video.VideoBytes
	if len(data) == 0 {
		if video.URI == "" {
			return nil, &models.GenerationError{Kind: models.FailureNoOutput, Message: "operation returned no video"}
		}
		var err error
		data, err = c.genai.Files.Download(ctx, genai.NewDownloadURIFromVideo(video), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to download video: %w", err)
		}
	}

	return &models.Video{
		Data:     data,
		MIMEType: firstNonEmpty(video.MIMEType, "video/mp4"),
		URI:      video.URI,
	}, nil
}
