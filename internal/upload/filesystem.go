package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"docdesk/internal/desk"
)

// FileSystemUploader stores attachments under a local directory, typically a
// synced or network share, laid out as:
//
//	<root>/
//	  <folderID or "files">/
//	    <id>-<file name>
type FileSystemUploader struct {
	root  string
	idgen desk.IDGenerator
}

// NewFileSystemUploader creates the root directory if needed.
func NewFileSystemUploader(root string, idgen desk.IDGenerator) (*FileSystemUploader, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving upload root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload root: %w", err)
	}
	return &FileSystemUploader{root: abs, idgen: idgen}, nil
}

// Upload writes the file and returns its file:// URL.
func (u *FileSystemUploader) Upload(ctx context.Context, file desk.FileUpload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(u.root, folderName(file.FolderID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	dest := filepath.Join(dir, u.idgen.New()+"-"+safeName(file.FileName))
	if err := writeFile(dest, bytes.NewReader(file.Content), int64(len(file.Content))); err != nil {
		return "", err
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(dest)}).String(), nil
}

// writeFile writes r to destPath through a temp file and rename, so a failed
// upload never leaves a partial file behind.
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func folderName(folderID string) string {
	if f := safeName(folderID); f != "" {
		return f
	}
	return "files"
}

// safeName keeps only the base name and replaces path separators and
// characters that are awkward in object keys.
func safeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r < 0x20:
			return '_'
		default:
			return r
		}
	}, name)
}

var _ desk.FileUploader = (*FileSystemUploader)(nil)
