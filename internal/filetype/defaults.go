package filetype

const mb = 1024 * 1024

// Sizes below are policy constants.
var defaultDescriptors = []Descriptor{
	{
		Category:     Song,
		BucketSuffix: "songs",
		MIMETypes: []string{
			"audio/mpeg", "audio/mp3", "audio/wav", "audio/x-wav", "audio/flac", "audio/x-flac",
			"audio/ogg", "audio/aac", "audio/m4a", "audio/x-m4a", "audio/mp4",
		},
		MaxSize: 50 * mb,
	},
	{
		Category:     Image,
		BucketSuffix: "images",
		MIMETypes: []string{
			"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp", "image/bmp", "image/svg+xml",
		},
		MaxSize: 10 * mb,
	},
	{
		Category:     Photo,
		BucketSuffix: "photos",
		MIMETypes: []string{
			"image/jpeg", "image/jpg", "image/png", "image/raw", "image/tiff", "image/heic", "image/heif",
		},
		MaxSize: 10 * mb,
	},
	{
		Category:     Video,
		BucketSuffix: "videos",
		MIMETypes: []string{
			"video/mp4", "video/avi", "video/x-msvideo", "video/mkv", "video/x-matroska", "video/mov",
			"video/quicktime", "video/wmv", "video/x-ms-wmv", "video/x-ms-asf", "video/webm",
			"video/flv", "video/x-flv", "video/3gp", "video/3gpp",
		},
		MaxSize: 500 * mb,
	},
	{
		Category:     PDF,
		BucketSuffix: "documents",
		MIMETypes:    []string{"application/pdf"},
		MaxSize:      100 * mb,
	},
	{
		Category:     Document,
		BucketSuffix: "documents",
		MIMETypes: []string{
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.ms-excel",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"application/vnd.ms-powerpoint",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"application/x-ole-storage",
			"text/plain",
			"text/csv",
			"application/rtf",
			"text/rtf",
		},
		MaxSize: 100 * mb,
	},
	{
		Category:     Archive,
		BucketSuffix: "archives",
		MIMETypes: []string{
			"application/zip", "application/x-rar-compressed", "application/x-7z-compressed",
			"application/x-tar", "application/gzip",
		},
		MaxSize: 200 * mb,
	},
	{
		Category:     File,
		BucketSuffix: "files",
		MIMETypes:    []string{Wildcard},
		MaxSize:      100 * mb,
		CatchAll:     true,
	},
}

// Default returns the built-in category table.
func Default() *Registry {
	r, err := NewRegistry(defaultDescriptors)
	if err != nil {
		panic("filetype: invalid default table: " + err.Error())
	}
	return r
}
