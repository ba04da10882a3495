package contract

import (
	"context"

	"study-assistant-be/internal/entity"
)

type TranscriptRepository interface {
	// FindByNoteID returns nil, nil when the note has no transcript.
	FindByNoteID(ctx context.Context, noteId string) (*entity.Transcript, error)
}
