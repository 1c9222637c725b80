package models

// Image is an encoded raster payload together with its MIME type.
type Image struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}

type Video struct {
	Data     []byte `json:"data,omitempty"`
	MIMEType string `json:"mime_type"`
	URI      string `json:"uri,omitempty"`
}

// ImageResponse is the JSON shape returned for images that are not streamed
// back as raw bytes.
type ImageResponse struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
	FileSize int64  `json:"file_size"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}
