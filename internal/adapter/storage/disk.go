// Package storage keeps chat attachments on local disk and serves them back
// through a public base URL.
package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"loandesk/internal/domain/message"
	"loandesk/internal/usecase/chat"
)

var ErrInvalidPath = errors.New("invalid object path")

type Disk struct {
	root      string
	publicURL string
}

var _ chat.ObjectStore = (*Disk)(nil)

func NewDisk(root, publicURL string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Disk{root: root, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (d *Disk) Root() string { return d.root }

// URL returns the public reference for an object path.
func (d *Disk) URL(objectPath string) string { return d.publicURL + "/" + objectPath }

// Put streams body into root/objectPath and returns its public URL. The
// object only appears once fully written.
func (d *Disk) Put(ctx context.Context, objectPath, _ string, body io.Reader, size int64, progress chat.Progress) (string, error) {
	clean := path.Clean(objectPath)
	if clean == "." || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidPath
	}
	dst := filepath.Join(d.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	w := &progressWriter{ctx: ctx, w: tmp, total: size, report: progress}
	n, err := io.Copy(w, io.LimitReader(body, message.MaxAttachmentBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}
	if n > message.MaxAttachmentBytes {
		return "", message.ErrAttachmentTooLarge
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return d.URL(clean), nil
}

type progressWriter struct {
	ctx     context.Context
	w       io.Writer
	written int64
	total   int64
	report  chat.Progress
}

func (p *progressWriter) Write(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.report != nil && n > 0 {
		p.report(p.written, p.total)
	}
	return n, err
}
