package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
)

type uploadFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

// RequirementUpload carries upload metadata and the stream reader.
type RequirementUpload struct {
	Requirement string
	Filename    string
	Size        int64
	MimeType    string
	Content     io.ReadSeeker
}

// UploadServiceConfig holds validation parameters for requirement uploads.
type UploadServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// UploadService validates and stores requirement files attached during the
// submission flow.
type UploadService struct {
	storage uploadFileStorage
	logger  *zap.Logger
	cfg     UploadServiceConfig
	mimeSet map[string]struct{}
}

// NewUploadService constructs the service with defaults.
func NewUploadService(storage uploadFileStorage, logger *zap.Logger, cfg UploadServiceConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{
			"application/pdf",
			"image/jpeg",
			"image/png",
		}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &UploadService{storage: storage, logger: logger, cfg: cfg, mimeSet: mimeSet}
}

// Store validates the upload and writes it to storage, returning the stored
// relative path.
func (s *UploadService) Store(upload RequirementUpload) (string, error) {
	if strings.TrimSpace(upload.Requirement) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "requirement name is required")
	}
	if upload.Content == nil || upload.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}

	mimeType, err := s.detectMime(upload)
	if err != nil {
		return "", err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return "", appErrors.Clone(appErrors.ErrValidation, "mime type not allowed")
	}

	filename := s.generateFilename(upload.Requirement, upload.Filename, mimeType)
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	path, err := s.storage.SaveStream(filename, upload.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist requirement file")
	}
	return path, nil
}

// Remove deletes a stored requirement file. A missing file is not an error
// since cleanup may already have collected it.
func (s *UploadService) Remove(path string) {
	if path == "" {
		return
	}
	if err := s.storage.Delete(path); err != nil {
		s.logger.Warn("failed to delete requirement file", zap.String("path", path), zap.Error(err))
	}
}

// detectMime trusts the declared content type when present and otherwise
// sniffs the leading bytes.
func (s *UploadService) detectMime(upload RequirementUpload) (string, error) {
	if upload.MimeType != "" {
		return upload.MimeType, nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	return http.DetectContentType(header[:n]), nil
}

func (s *UploadService) generateFilename(requirement, original, mimeType string) string {
	requirement = sanitize(requirement)
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = mimeExtension(mimeType)
	}
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("requirement_%s_%d_%s%s", requirement, time.Now().Unix(), randomSuffix(), ext)
}

func sanitize(raw string) string {
	raw = strings.ToLower(raw)
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func mimeExtension(mime string) string {
	switch strings.ToLower(mime) {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
