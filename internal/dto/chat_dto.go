package dto

import (
	"time"
)

type ChatRequest struct {
	Question       string `json:"question" validate:"required,max=4000"`
	NoteId         string `json:"noteId" validate:"required"`
	ConversationId string `json:"conversationId,omitempty"`
}

type ChatConversationRef struct {
	Id                string `json:"_id"`
	ConversationTitle string `json:"conversationTitle"`
}

type ChatResponse struct {
	Answer       string              `json:"answer"`
	Conversation ChatConversationRef `json:"conversation"`
}

type ChatMessageResponse struct {
	Id        string    `json:"_id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatConversationResponse struct {
	Id                string     `json:"_id"`
	ConversationTitle string     `json:"conversationTitle"`
	NoteId            string     `json:"noteId"`
	CreatedBy         string     `json:"createdBy"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

type ChatHistoryResponse struct {
	Conversation ChatConversationResponse `json:"conversation"`
	Messages     []ChatMessageResponse    `json:"messages"`
}

type MyConversationResponse struct {
	Id                string    `json:"id"`
	ConversationTitle string    `json:"conversationTitle"`
	CreatedBy         string    `json:"createdBy"`
	CreatedAt         time.Time `json:"createdAt"`
}
