package files

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"

	"github.com/google/uuid"

	"github.com/khadka27/educonnect-chat/domain/chat"
)

// StoredFile describes a persisted attachment.
type StoredFile struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Service stores chat attachments and resolves them back for download.
type Service struct {
	store   ObjectStore
	maxSize int64
}

// NewService creates a new file service.
func NewService(store ObjectStore, maxSize int64) *Service {
	return &Service{
		store:   store,
		maxSize: maxSize,
	}
}

// SaveBase64 decodes an attachment sent inline over the websocket and
// stores it under a fresh name derived from the original extension.
func (s *Service) SaveBase64(ctx context.Context, fileName, fileType, fileData string) (*StoredFile, error) {
	if fileData == "" {
		return nil, fmt.Errorf("%w: fileData is required", chat.ErrValidation)
	}

	data, err := base64.StdEncoding.DecodeString(fileData)
	if err != nil {
		return nil, fmt.Errorf("%w: fileData is not valid base64", chat.ErrValidation)
	}

	return s.Save(ctx, fileName, fileType, data)
}

// Save stores raw attachment bytes and returns the download URL.
func (s *Service) Save(ctx context.Context, fileName, fileType string, data []byte) (*StoredFile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", chat.ErrValidation)
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("%w: file exceeds maximum size of %d bytes", chat.ErrValidation, s.maxSize)
	}
	if fileType == "" {
		fileType = "application/octet-stream"
	}

	name := uuid.New().String() + path.Ext(fileName)
	if err := s.store.Put(ctx, name, data, fileType); err != nil {
		return nil, fmt.Errorf("%w: %v", chat.ErrPersistence, err)
	}

	return &StoredFile{
		Name:        name,
		URL:         "/files/" + name,
		ContentType: fileType,
		Size:        int64(len(data)),
	}, nil
}

// Get retrieves a stored attachment by name.
func (s *Service) Get(ctx context.Context, name string) ([]byte, string, error) {
	data, contentType, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, "", fmt.Errorf("%w: file %s", chat.ErrNotFound, name)
	}
	return data, contentType, nil
}
