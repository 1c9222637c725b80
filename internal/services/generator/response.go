package generator

import (
	"strings"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"google.golang.org/genai"
)

var safetyFinishReasons = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:                 true,
	genai.FinishReasonImageSafety:            true,
	genai.FinishReasonProhibitedContent:      true,
	genai.FinishReasonImageProhibitedContent: true,
	genai.FinishReasonBlocklist:              true,
	genai.FinishReasonSPII:                   true,
}

// extractImage returns the first inline image of the response. When there is
// none it classifies why: a blocked prompt or safety finish reason, text the
// model answered instead of an image, or nothing at all.
func extractImage(resp *genai.GenerateContentResponse) (*models.Image, error) {
	if resp == nil {
		return nil, &models.GenerationError{Kind: models.FailureNoOutput, Message: "empty response"}
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		msg := fb.BlockReasonMessage
		if msg == "" {
			msg = "prompt blocked: " + string(fb.BlockReason)
		}
		return nil, &models.GenerationError{Kind: models.FailureSafety, Message: msg}
	}

	var texts []string
	var blockedBy genai.FinishReason
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		if c.Content != nil {
			for _, p := range c.Content.Parts {
				if p == nil || p.Thought {
					continue
				}
				if p.InlineData != nil && len(p.InlineData.Data) > 0 {
					mime := p.InlineData.MIMEType
					if mime == "" {
						mime = "image/png"
					}
					return &models.Image{Data: p.InlineData.Data, MIMEType: mime}, nil
				}
				if text := strings.TrimSpace(p.Text); text != "" {
					texts = append(texts, text)
				}
			}
		}
		if safetyFinishReasons[c.FinishReason] && blockedBy == "" {
			blockedBy = c.FinishReason
		}
	}

	if blockedBy != "" {
		return nil, &models.GenerationError{Kind: models.FailureSafety, Message: "finish reason: " + string(blockedBy)}
	}
	if len(texts) > 0 {
		return nil, &models.GenerationError{Kind: models.FailureRefusal, Message: strings.Join(texts, "\n")}
	}
	return nil, &models.GenerationError{Kind: models.FailureNoOutput, Message: "response contained no image"}
}
