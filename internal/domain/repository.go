package domain

import "context"

// JournalStore persists named journal documents
type JournalStore interface {
	// Read returns the document for key, creating a default one if it does not exist.
	// Missing substructures are backfilled before the document is returned.
	Read(ctx context.Context, key string) (*Document, error)

	// Write replaces the document for key atomically
	Write(ctx context.Context, key string, doc *Document) error
}

// Defaulter supplies the default document shape for a journal key
type Defaulter interface {
	DefaultDocument(key string) *Document

	// Backfill fills the substructures a document of this key must carry
	Backfill(key string, doc *Document)
}
