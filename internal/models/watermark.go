package models

type WatermarkKind string

const (
	WatermarkText WatermarkKind = "text"
	WatermarkLogo WatermarkKind = "logo"
)

type Anchor string

const (
	AnchorTopLeft     Anchor = "top-left"
	AnchorTopRight    Anchor = "top-right"
	AnchorBottomLeft  Anchor = "bottom-left"
	AnchorBottomRight Anchor = "bottom-right"
	AnchorCenter      Anchor = "center"
)

type WatermarkConfig struct {
	Enabled   bool          `json:"enabled"`
	Kind      WatermarkKind `json:"kind" binding:"omitempty,oneof=text logo"`
	Opacity   float64       `json:"opacity" binding:"min=0,max=1"`
	Anchor    Anchor        `json:"anchor" binding:"omitempty,oneof=top-left top-right bottom-left bottom-right center"`
	Text      string        `json:"text,omitempty"`
	FontScale float64       `json:"font_scale,omitempty"`
	Logo      *Image        `json:"logo,omitempty"`
	LogoURL   string        `json:"logo_url,omitempty"`
}

// Active reports whether the watermark should be drawn at all.
func (w *WatermarkConfig) Active() bool {
	if w == nil || !w.Enabled {
		return false
	}
	switch w.Kind {
	case WatermarkLogo:
		return w.Logo != nil && len(w.Logo.Data) > 0
	default:
		return w.Text != ""
	}
}
