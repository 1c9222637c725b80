package models

type GenerateRequest struct {
	Prompt  string             `json:"prompt" binding:"required"`
	Options *ProcessingOptions `json:"options,omitempty"`
}

type VideoRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	AspectRatio string `json:"aspect_ratio,omitempty" binding:"omitempty,oneof=16:9 9:16"`
}
