package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSystemStorage keeps snapshots under basePath; the bucket is ignored.
type FileSystemStorage struct {
	basePath string
}

func NewFileSystemStorage(basePath string) (*FileSystemStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FileSystemStorage{basePath: basePath}, nil
}

func (s *FileSystemStorage) Upload(ctx context.Context, bucket, key string, data []byte) (string, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return key, nil
}

func (s *FileSystemStorage) GetURL(ctx context.Context, bucket, key string) (string, error) {
	if strings.HasPrefix(key, "/uploads/") {
		return key, nil
	}
	return "/uploads/" + key, nil
}

// resolve maps key into basePath, refusing keys that climb out of it. Keys embed
// scanned ids, which come from whatever the QR sticker says.
func (s *FileSystemStorage) resolve(key string) (string, error) {
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.basePath, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return fullPath, nil
}
