package entity

import (
	"time"

	"github.com/google/uuid"
)

type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript holds the bilingual description produced for a note's audio.
type Transcript struct {
	Id            uuid.UUID
	NoteId        uuid.UUID
	DescriptionVi string
	DescriptionEn string
	Segments      []TranscriptSegment
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
