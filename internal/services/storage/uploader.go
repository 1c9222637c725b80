package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nadungimhanalk/Gemini-Image/pkg/utils"
	storage_go "github.com/supabase-community/storage-go"
	"go.uber.org/zap"
)

const (
	archivePrefix = "exports"
	imagePrefix   = "images"
)

// PublishArchive uploads a batch export and returns its public URL.
func (s *StorageService) PublishArchive(ctx context.Context, data []byte, filename string) (string, error) {
	return s.Upload(ctx, archivePrefix, data, filename, "application/zip")
}

// Upload uploads file to Supabase Storage under prefix
func (s *StorageService) Upload(ctx context.Context, prefix string, data []byte, filename, contentType string) (string, error) {
	if s.sbClient == nil {
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := utils.GenerateStorageKey(prefix, filename)
	upsert := false
	_, err := s.sbClient.UploadFile(s.bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to supabase: %w", err)
	}

	s.logger.Info("Uploaded object",
		zap.String("key", key),
		zap.Int("bytes", len(data)))

	publicURL := s.sbClient.GetPublicUrl(s.bucket, key)
	return publicURL.SignedURL, nil
}

// Delete removes file from Supabase Storage
func (s *StorageService) Delete(ctx context.Context, path string) error {
	if s.sbClient == nil {
		return ErrNotConfigured
	}
	_, err := s.sbClient.RemoveFile(s.bucket, []string{path})
	if err != nil {
		return fmt.Errorf("failed to delete from supabase: %w", err)
	}
	return nil
}
