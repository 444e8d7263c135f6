package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/gas-service-portal/internal/config"
	"github.com/spec-kit/gas-service-portal/internal/domain"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
)

func memUpload(name string, content []byte) Upload {
	return Upload{
		FileName: name,
		Size:     int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

func newStore(t *testing.T, maxBytes int64) *AttachmentStore {
	t.Helper()
	store, err := NewAttachmentStore(config.UploadConfig{Dir: filepath.Join(t.TempDir(), "uploads"), MaxFileBytes: maxBytes, MaxFiles: 5})
	require.NoError(t, err)
	return store
}

func TestValidate_AcceptsAllowedTypes(t *testing.T) {
	store := newStore(t, 1024)
	assert.NoError(t, store.Validate(memUpload("meter.PNG", pngBytes)))
	assert.NoError(t, store.Validate(memUpload("bill.pdf", pdfBytes)))
}

func TestValidate_RejectsWrongExtension(t *testing.T) {
	store := newStore(t, 1024)
	err := store.Validate(memUpload("notes.txt", []byte("hello")))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestValidate_RejectsDisguisedContent(t *testing.T) {
	store := newStore(t, 1024)
	err := store.Validate(memUpload("photo.jpg", []byte("MZ\x90\x00 not really a jpeg")))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestValidate_RejectsOversized(t *testing.T) {
	store := newStore(t, 16)
	err := store.Validate(memUpload("bill.pdf", pdfBytes))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestValidate_RejectsEmpty(t *testing.T) {
	store := newStore(t, 1024)
	err := store.Validate(memUpload("empty.png", nil))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestSave_WritesFileAndMetadata(t *testing.T) {
	store := newStore(t, 1024)

	att, err := store.Save(memUpload("../../etc/leak photo.png", pngBytes))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(att.FileName, "-leak_photo.png"))
	assert.Equal(t, filepath.Join(store.dir, att.FileName), att.Path)
	assert.Equal(t, "image/png", att.MimeType)
	assert.Equal(t, int64(len(pngBytes)), att.SizeBytes)
	assert.False(t, att.UploadedAt.IsZero())

	stored, err := os.ReadFile(att.Path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)

	require.NoError(t, store.Remove([]domain.Attachment{att}))
	_, err = os.Stat(att.Path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Remove([]domain.Attachment{att}))
}
