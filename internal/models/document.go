package models

import "time"

// Document is one processed input stored with its chunks.
type Document struct {
	ID        string    `json:"id" db:"id"`
	DocType   string    `json:"doc_type" db:"doc_type"`
	Source    string    `json:"source,omitempty" db:"source"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DocumentChunk is one output row of a processed document: a résumé field or a free-form chunk.
type DocumentChunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Category   string    `json:"category" db:"category"`
	Content    string    `json:"content" db:"content"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
