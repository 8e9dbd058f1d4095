package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	// URLPrefix is where saved files are served from.
	URLPrefix = "/uploads"

	dayLayout = "2006-01-02"
	sniffSize = 3072
)

var (
	ErrNotImage    = errors.New("only image files are allowed")
	ErrTooLarge    = errors.New("file is too large")
	ErrInvalidDays = errors.New("days must be positive")
)

// Service stores uploaded images under Dir/YYYY-MM-DD/.
type Service struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

// New creates an upload service rooted at dir.
func New(dir string, maxBytes int64) *Service {
	return &Service{dir: dir, maxBytes: maxBytes, now: time.Now}
}

// Dir returns the storage root.
func (s *Service) Dir() string { return s.dir }

// Save sniffs r, rejects anything that is not an image, and writes it under
// today's folder. It returns the public URL of the saved file.
func (s *Service) Save(r io.Reader) (string, error) {
	head := make([]byte, sniffSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrNotImage
	}

	day := s.now().UTC().Format(dayLayout)
	dayDir := filepath.Join(s.dir, day)
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + mt.Extension()
	dst := filepath.Join(dayDir, name)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	body := io.MultiReader(bytes.NewReader(head), r)
	if s.maxBytes > 0 {
		body = io.LimitReader(body, s.maxBytes+1)
	}
	written, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && s.maxBytes > 0 && written > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dst)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write upload: %w", err)
	}

	return path.Join(URLPrefix, day, name), nil
}

// Cleanup removes dated folders older than days and returns their names.
func (s *Service) Cleanup(days int) ([]string, error) {
	if days <= 0 {
		return nil, ErrInvalidDays
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	now := s.now().UTC()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)

	expired := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		if !e.IsDir() {
			return false
		}
		day, err := time.Parse(dayLayout, e.Name())
		return err == nil && day.Before(cutoff)
	})

	removed := make([]string, 0, len(expired))
	for _, e := range expired {
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
		removed = append(removed, e.Name())
	}
	return removed, nil
}
