package mapper

import (
	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Conversation Mappers

func (m *ChatMapper) ConversationToEntity(d *model.ConversationDocument) *entity.Conversation {
	if d == nil {
		return nil
	}

	return &entity.Conversation{
		Id:                d.Id.Hex(),
		ConversationTitle: d.ConversationTitle,
		NoteId:            d.NoteId,
		CreatedBy:         d.CreatedBy,
		CreatedAt:         d.CreatedAt,
		Updated:           d.Updated,
		UpdatedAt:         d.UpdatedAt,
		Deleted:           d.Deleted,
		DeletedAt:         d.DeletedAt,
	}
}

// Message Mappers

func (m *ChatMapper) MessageToEntity(d *model.MessageDocument) *entity.Message {
	if d == nil {
		return nil
	}

	return &entity.Message{
		Id:             d.Id.Hex(),
		Content:        d.Content,
		Sender:         entity.Sender(d.Sender),
		ConversationId: d.ConversationId.Hex(),
		Metadata: entity.MessageMetadata{
			CreatedAt: d.Metadata.CreatedAt,
			CreatedBy: d.Metadata.CreatedBy,
			Updated:   d.Metadata.Updated,
			UpdatedAt: d.Metadata.UpdatedAt,
			Deleted:   d.Metadata.Deleted,
			DeletedAt: d.Metadata.DeletedAt,
		},
	}
}
