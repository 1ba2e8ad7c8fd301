package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var (
	ErrUnsupportedType = errors.New("only jpg, jpeg, png, webp and pdf files are accepted")
	ErrTooLarge        = errors.New("file is too large")
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

// LocalStorage writes uploaded proofs to a directory served under BaseURL.
type LocalStorage struct {
	dir      string
	baseURL  string
	maxBytes int64
}

func NewLocalStorage(dir, baseURL string, maxBytes int64) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{
		dir:      dir,
		baseURL:  "/" + strings.Trim(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// Dir is the directory the router serves statically.
func (s *LocalStorage) Dir() string { return s.dir }

// BaseURL is the public path prefix of stored files.
func (s *LocalStorage) BaseURL() string { return s.baseURL }

// Save stores the file under a unique name and returns its relative URL,
// e.g. /uploads/3f2c...-transfer-receipt.jpg
func (s *LocalStorage) Save(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExt[ext] {
		return "", ErrUnsupportedType
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return "", ErrTooLarge
	}

	name := uuid.NewString()
	if base := slug.Make(strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))); base != "" {
		name += "-" + truncate(base, 48)
	}
	name += ext

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return path.Join(s.baseURL, name), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimRight(s[:n], "-")
}
