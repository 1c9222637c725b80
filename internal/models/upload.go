package models

type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PublishedFile is a public link to an uploaded object.
type PublishedFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
