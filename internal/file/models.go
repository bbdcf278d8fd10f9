package file

import "time"

// Metadata keys stored with every object.
const (
	metaOriginalName = "original-name"
	metaUploadedAt   = "uploaded-at"
)

// Record describes a stored object as read back from the backend. Optional
// fields are nil unless measured for the object's kind.
type Record struct {
	ObjectName   string     `json:"object_name"`
	OriginalName *string    `json:"original_name,omitempty"`
	Bucket       string     `json:"bucket"`
	Category     string     `json:"category"`
	Size         int64      `json:"size_bytes"`
	ContentType  string     `json:"content_type,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	LastModified time.Time  `json:"last_modified"`
	ETag         string     `json:"etag,omitempty"`

	PageCount *int    `json:"page_count,omitempty"`
	Title     *string `json:"title,omitempty"`
	Author    *string `json:"author,omitempty"`
	Subject   *string `json:"subject,omitempty"`
	Creator   *string `json:"creator,omitempty"`
	Producer  *string `json:"producer,omitempty"`
	Keywords  *string `json:"keywords,omitempty"`
	Encrypted *bool   `json:"encrypted,omitempty"`

	Width      *int    `json:"width,omitempty"`
	Height     *int    `json:"height,omitempty"`
	ColorSpace *string `json:"color_space,omitempty"`
	// DurationMillis applies to audio and video.
	DurationMillis *int64 `json:"duration_ms,omitempty"`
}

// UploadResult is returned for every accepted upload.
type UploadResult struct {
	ObjectName   string    `json:"object_name"`
	OriginalName string    `json:"original_name"`
	URL          string    `json:"url"`
	Bucket       string    `json:"bucket"`
	Category     string    `json:"category"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type"`
	UploadedAt   time.Time `json:"uploaded_at"`
	ETag         string    `json:"etag"`
	Checksum     string    `json:"checksum_sha256"`
}
