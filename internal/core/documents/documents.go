// Package documents manages the files the user has uploaded for retrieval.
package documents

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/neilberkman/docchat/internal/core/api"
	"github.com/neilberkman/docchat/internal/core/models"
	"go.uber.org/zap"
)

// MaxUploadSize is the largest file the client will send.
const MaxUploadSize = 50 << 20

// API is the slice of the remote client documents need.
type API interface {
	UploadDocument(ctx context.Context, filename string, r io.Reader, progress api.ProgressFunc) (*models.UploadResponse, error)
	ListDocuments(ctx context.Context, skip, limit int) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id models.ID) error
}

// Service lists, uploads and deletes documents. onChange runs after every
// successful mutation (the dashboard drops its cached stats there).
type Service struct {
	api      API
	onChange func()
	log      *zap.Logger
}

// New creates a document service
func New(client API, onChange func(), log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if onChange == nil {
		onChange = func() {}
	}
	return &Service{api: client, onChange: onChange, log: log}
}

// List returns one page of documents
func (s *Service) List(ctx context.Context, skip, limit int) ([]models.Document, error) {
	return s.api.ListDocuments(ctx, skip, limit)
}

// Upload sends the file at path.
func (s *Service) Upload(ctx context.Context, path string, progress api.ProgressFunc) (*models.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxUploadSize {
		return nil, fmt.Errorf("%s is larger than %d MB", filepath.Base(path), MaxUploadSize>>20)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	resp, err := s.api.UploadDocument(ctx, filepath.Base(path), f, progress)
	if err != nil {
		s.log.Info("upload failed", zap.String("file", path), zap.Error(err))
		return nil, err
	}
	s.log.Info("uploaded document", zap.String("file", path), zap.String("id", resp.Document.ID.String()))
	s.onChange()
	return &resp.Document, nil
}

// Delete removes a document
func (s *Service) Delete(ctx context.Context, id models.ID) error {
	if err := s.api.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.log.Info("deleted document", zap.String("id", id.String()))
	s.onChange()
	return nil
}
