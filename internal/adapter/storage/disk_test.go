package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loandesk/internal/domain/message"
)

func TestDisk_PutWritesAndReportsProgress(t *testing.T) {
	root := t.TempDir()
	d, err := NewDisk(root, "http://localhost:8080/files/")
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}

	payload := bytes.Repeat([]byte("x"), 100_000)
	var last int64
	calls := 0
	url, err := d.Put(context.Background(), "owner/abc.txt", "text/plain", bytes.NewReader(payload), int64(len(payload)),
		func(written, total int64) {
			calls++
			if written < last || total != int64(len(payload)) {
				t.Fatalf("progress went backwards or wrong total: %d/%d", written, total)
			}
			last = written
		})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "http://localhost:8080/files/owner/abc.txt" {
		t.Fatalf("url = %s", url)
	}
	if calls == 0 || last != int64(len(payload)) {
		t.Fatalf("progress calls=%d last=%d", calls, last)
	}
	got, err := os.ReadFile(filepath.Join(root, "owner", "abc.txt"))
	if err != nil || len(got) != len(payload) {
		t.Fatalf("stored file: %d bytes, %v", len(got), err)
	}
}

func TestDisk_RejectsOversizeStream(t *testing.T) {
	root := t.TempDir()
	d, _ := NewDisk(root, "http://x")

	// size claims small but the body is larger than the cap
	body := bytes.NewReader(make([]byte, message.MaxAttachmentBytes+10))
	_, err := d.Put(context.Background(), "owner/big.bin", "", body, 1, nil)
	if !errors.Is(err, message.ErrAttachmentTooLarge) {
		t.Fatalf("err = %v, want ErrAttachmentTooLarge", err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "owner"))
	if len(entries) != 0 {
		t.Fatalf("leftover files: %v", entries)
	}
}

func TestDisk_RejectsEscapingPaths(t *testing.T) {
	d, _ := NewDisk(t.TempDir(), "http://x")
	for _, p := range []string{"../etc/passwd", "/abs", "", "a/../../b"} {
		if _, err := d.Put(context.Background(), p, "", strings.NewReader("x"), 1, nil); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("Put(%q) err = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestDisk_CanceledContext(t *testing.T) {
	d, _ := NewDisk(t.TempDir(), "http://x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Put(ctx, "o/f.txt", "", strings.NewReader("data"), 4, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
