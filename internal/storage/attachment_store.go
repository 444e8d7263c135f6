package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/spec-kit/gas-service-portal/internal/config"
	"github.com/spec-kit/gas-service-portal/internal/domain"
)

// Rejection reasons reported by Validate.
var (
	ErrTooLarge        = errors.New("attachment exceeds size limit")
	ErrUnsupportedType = errors.New("attachment type not allowed")
	ErrEmpty           = errors.New("attachment is empty")
)

// allowedTypes maps permitted extensions to the content types their bytes must sniff as.
var allowedTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

const sniffBytes = 3072

// Upload is a file received from a client, not yet stored.
type Upload struct {
	FileName string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// AttachmentStore keeps attachment bytes as files under a directory.
type AttachmentStore struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

// NewAttachmentStore creates the upload directory if needed.
func NewAttachmentStore(cfg config.UploadConfig) (*AttachmentStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &AttachmentStore{dir: cfg.Dir, maxBytes: cfg.MaxFileBytes, now: time.Now}, nil
}

// Validate checks size, extension and sniffed content type without storing anything.
func (s *AttachmentStore) Validate(upload Upload) error {
	if upload.Size > s.maxBytes {
		return fmt.Errorf("%s: %w", upload.FileName, ErrTooLarge)
	}
	want, ok := allowedTypes[strings.ToLower(filepath.Ext(upload.FileName))]
	if !ok {
		return fmt.Errorf("%s: %w", upload.FileName, ErrUnsupportedType)
	}

	rc, err := upload.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", upload.FileName, ErrEmpty)
	}
	if !mimetype.Detect(head[:n]).Is(want) {
		return fmt.Errorf("%s: %w", upload.FileName, ErrUnsupportedType)
	}
	return nil
}

// Save writes the upload to disk as "<unix millis>-<random>-<base name>" and
// returns its metadata.
func (s *AttachmentStore) Save(upload Upload) (domain.Attachment, error) {
	rc, err := upload.Open()
	if err != nil {
		return domain.Attachment{}, err
	}
	defer rc.Close()

	now := s.now()
	name := fmt.Sprintf("%d-%s-%s", now.UnixMilli(), uuid.NewString()[:8], sanitizeName(upload.FileName))
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("create attachment: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(rc, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxBytes {
		err = fmt.Errorf("%s: %w", upload.FileName, ErrTooLarge)
	}
	if err != nil {
		_ = os.Remove(path)
		return domain.Attachment{}, err
	}

	return domain.Attachment{
		FileName:   name,
		Path:       path,
		MimeType:   allowedTypes[strings.ToLower(filepath.Ext(upload.FileName))],
		SizeBytes:  written,
		UploadedAt: now,
	}, nil
}

// Remove deletes stored attachments, ignoring files that are already gone.
func (s *AttachmentStore) Remove(attachments []domain.Attachment) error {
	var errs []error
	for _, att := range attachments {
		if err := os.Remove(att.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, base)
	if base == "" || base == "." || base == "/" {
		return "attachment"
	}
	return base
}
