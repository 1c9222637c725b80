package models

// ProcessingOptions describe the post-processing applied to a generated
// image: normalize first, then watermark.
type ProcessingOptions struct {
	Normalize bool             `json:"normalize"`
	MaxWidth  int              `json:"max_width,omitempty" binding:"omitempty,min=1"`
	Quality   float64          `json:"quality,omitempty" binding:"omitempty,gt=0,max=1"`
	Watermark *WatermarkConfig `json:"watermark,omitempty"`
}
