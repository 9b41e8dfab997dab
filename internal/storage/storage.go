// Package storage persists processed documents, their output chunks and
// cached sentence embeddings.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kugiri/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines document, chunk and embedding persistence operations.
type Storage interface {
	// SaveDocument upserts doc and replaces its chunks atomically.
	SaveDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.DocumentChunk, error)

	// Embedding cache, keyed by content hash and model.
	GetEmbedding(ctx context.Context, key, model string) ([]float32, bool, error)
	PutEmbedding(ctx context.Context, key, model string, vector []float32) error

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
