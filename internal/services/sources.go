package services

import (
	"context"

	"notion2anki/internal/models"
)

// DocumentSource lists documents that are ready to import and fetches their blocks.
type DocumentSource interface {
	ListReadyDocuments(ctx context.Context) ([]models.DocumentRef, error)
	GetBlocks(ctx context.Context, id string) ([]models.Block, error)
}

// CardSink accepts finished flashcards one at a time.
type CardSink interface {
	AddCard(ctx context.Context, card models.Flashcard) error
}

// SourceScoped sinks can record which document the following cards came from.
type SourceScoped interface {
	WithSource(documentID string) CardSink
}
