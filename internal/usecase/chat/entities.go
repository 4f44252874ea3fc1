package chat

import (
	"context"
	"io"
)

// SupportSenderID authors messages posted by the system on behalf of support.
const SupportSenderID = "00000000000000000000000000000000"

// Viewer is the resolved identity behind a chat session.
type Viewer struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
	Complete bool   `json:"profile_complete"`
}

type SendInput struct {
	Body           string `json:"body"`
	AttachmentURL  string `json:"attachment_url"`
	AttachmentType string `json:"attachment_type"`
}

type UploadInput struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Attachment struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Progress reports bytes written so far out of total.
type Progress func(written, total int64)

// ObjectStore persists attachment bytes and hands back a public URL.
type ObjectStore interface {
	Put(ctx context.Context, path, contentType string, body io.Reader, size int64, progress Progress) (string, error)
}
