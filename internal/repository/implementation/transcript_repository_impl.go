package implementation

import (
	"context"
	"errors"
	"strings"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/mapper"
	"study-assistant-be/internal/model"
	"study-assistant-be/internal/repository/contract"
	"study-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TranscriptRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TranscriptMapper
}

func NewTranscriptRepository(db *gorm.DB) contract.TranscriptRepository {
	return &TranscriptRepositoryImpl{
		db:     db,
		mapper: mapper.NewTranscriptMapper(),
	}
}

// FindByNoteID treats a malformed note id like a note without transcript.
func (r *TranscriptRepositoryImpl) FindByNoteID(ctx context.Context, noteId string) (*entity.Transcript, error) {
	id, err := uuid.Parse(strings.TrimSpace(noteId))
	if err != nil {
		return nil, nil
	}

	var m model.Transcript
	query := specification.ApplyAll(r.db.WithContext(ctx), specification.ByNoteID{NoteID: id})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}
