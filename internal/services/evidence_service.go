package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
)

const maxEvidenceBytes = 25 << 20

var evidenceContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
	"video/mp4":       true,
}

// ObjectPresigner issues presigned PUT URLs for object storage.
type ObjectPresigner interface {
	PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, map[string]string, error)
}

type EvidenceService struct {
	storage ObjectPresigner
}

func NewEvidenceService(storage ObjectPresigner) *EvidenceService {
	return &EvidenceService{storage: storage}
}

type EvidenceUploadInput struct {
	ReporterID  uuid.UUID
	FileName    string
	ContentType string
	FileSize    int64
}

type EvidenceUpload struct {
	UploadURL string
	Key       string
	Headers   map[string]string
}

// CreateUpload presigns an evidence upload under the reporter's key prefix.
// The returned key is what the reporter later attaches to FileReport.
func (s *EvidenceService) CreateUpload(ctx context.Context, in EvidenceUploadInput) (EvidenceUpload, error) {
	if s == nil || s.storage == nil {
		return EvidenceUpload{}, fmt.Errorf("evidence storage is not configured: %w", sentinal_errors.ErrInternal)
	}
	if in.ReporterID == uuid.Nil || in.FileName == "" {
		return EvidenceUpload{}, sentinal_errors.ErrInvalidInput
	}
	if !evidenceContentTypes[in.ContentType] {
		return EvidenceUpload{}, fmt.Errorf("unsupported evidence type %q: %w", in.ContentType, sentinal_errors.ErrInvalidInput)
	}
	if in.FileSize <= 0 || in.FileSize > maxEvidenceBytes {
		return EvidenceUpload{}, fmt.Errorf("evidence size out of range: %w", sentinal_errors.ErrInvalidInput)
	}

	key := evidenceKeyPrefix(in.ReporterID) + uuid.NewString() + strings.ToLower(path.Ext(in.FileName))
	url, headers, err := s.storage.PresignPut(ctx, key, in.ContentType, in.FileSize)
	if err != nil {
		return EvidenceUpload{}, fmt.Errorf("presign evidence upload: %w", err)
	}
	return EvidenceUpload{UploadURL: url, Key: key, Headers: headers}, nil
}

func evidenceKeyPrefix(reporter uuid.UUID) string {
	return "evidence/" + reporter.String() + "/"
}

// ownsEvidence reports whether key was issued to reporter by CreateUpload.
func ownsEvidence(reporter uuid.UUID, key string) bool {
	return key == "" || strings.HasPrefix(key, evidenceKeyPrefix(reporter))
}
