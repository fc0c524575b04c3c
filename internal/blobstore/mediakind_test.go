package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dropzone/internal/session"
)

func TestKindFor(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		fileName    string
		want        session.MediaKind
	}{
		{"image by type", "image/png", "x.bin", session.KindImage},
		{"type with parameters", "image/jpeg; charset=binary", "x", session.KindImage},
		{"video by type", "video/mp4", "clip", session.KindVideo},
		{"pdf by type", "application/pdf", "report", session.KindDocument},
		{"generic type, image extension", "application/octet-stream", "photo.JPG", session.KindImage},
		{"generic type, video extension", "application/octet-stream", "clip.webm", session.KindVideo},
		{"generic type, document extension", "", "notes.md", session.KindDocument},
		{"unknown everything", "application/octet-stream", "blob.xyz", session.KindOther},
		{"empty inputs", "", "", session.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindFor(tt.contentType, tt.fileName))
		})
	}
}
