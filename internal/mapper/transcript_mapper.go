package mapper

import (
	"encoding/json"
	"time"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/model"
)

type TranscriptMapper struct{}

func NewTranscriptMapper() *TranscriptMapper {
	return &TranscriptMapper{}
}

// ToEntity maps a transcript row. Unreadable segment JSON yields no segments;
// the descriptions are what the chat flow reads.
func (m *TranscriptMapper) ToEntity(t *model.Transcript) *entity.Transcript {
	if t == nil {
		return nil
	}

	segments := []entity.TranscriptSegment{}
	if len(t.Segments) > 0 {
		if err := json.Unmarshal(t.Segments, &segments); err != nil {
			segments = []entity.TranscriptSegment{}
		}
	}

	var updatedAt *time.Time
	if !t.UpdatedAt.IsZero() {
		u := t.UpdatedAt
		updatedAt = &u
	}

	return &entity.Transcript{
		Id:            t.Id,
		NoteId:        t.NoteId,
		DescriptionVi: t.DescriptionVi,
		DescriptionEn: t.DescriptionEn,
		Segments:      segments,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}
