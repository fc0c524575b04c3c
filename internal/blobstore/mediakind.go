package blobstore

import (
	"path/filepath"
	"strings"

	"dropzone/internal/session"
)

// documentTypes are non-image, non-video content types we still want
// to present as documents rather than generic blobs.
var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain":       true,
	"text/csv":         true,
	"text/markdown":    true,
	"application/json": true,
	"application/xml":  true,
}

var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".txt": true, ".md": true, ".csv": true,
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".svg": true, ".tiff": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true, ".mkv": true,
	".avi": true, ".mpeg": true,
}

// KindFor derives the media kind from the declared content type,
// falling back to the file extension when the type is missing or
// generic. Neither input is trusted; a wrong answer only affects
// presentation.
func KindFor(contentType, name string) session.MediaKind {
	ct := contentType
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))

	switch {
	case strings.HasPrefix(ct, "image/"):
		return session.KindImage
	case strings.HasPrefix(ct, "video/"):
		return session.KindVideo
	case documentTypes[ct]:
		return session.KindDocument
	}

	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExtensions[ext]:
		return session.KindImage
	case videoExtensions[ext]:
		return session.KindVideo
	case documentExtensions[ext]:
		return session.KindDocument
	}
	return session.KindOther
}
