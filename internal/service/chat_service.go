package service

import (
	"context"
	"strings"

	"study-assistant-be/internal/dto"
	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/repository/contract"
	"study-assistant-be/pkg/chat/orchestrator"
)

type IChatService interface {
	Ask(ctx context.Context, userId string, req *dto.ChatRequest) (*dto.ChatResponse, error)
	GetHistory(ctx context.Context, userId, noteId, conversationId string) (*dto.ChatHistoryResponse, error)
	ListMyConversations(ctx context.Context, userId string) ([]*dto.MyConversationResponse, error)
	DeleteConversation(ctx context.Context, userId, conversationId string) error
}

// Asker runs one question/answer cycle.
type Asker interface {
	Ask(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error)
}

type chatService struct {
	asker         Asker
	conversations contract.ConversationRepository
	messages      contract.MessageRepository
}

func NewChatService(
	asker Asker,
	conversations contract.ConversationRepository,
	messages contract.MessageRepository,
) IChatService {
	return &chatService{
		asker:         asker,
		conversations: conversations,
		messages:      messages,
	}
}

func (s *chatService) Ask(ctx context.Context, userId string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	res, err := s.asker.Ask(ctx, orchestrator.Request{
		UserId:         userId,
		NoteId:         req.NoteId,
		Question:       req.Question,
		ConversationId: req.ConversationId,
	})
	if err != nil {
		return nil, err
	}

	return &dto.ChatResponse{
		Answer: res.Answer,
		Conversation: dto.ChatConversationRef{
			Id:                res.Conversation.Id,
			ConversationTitle: res.Conversation.ConversationTitle,
		},
	}, nil
}

// GetHistory reads the conversation named by conversationId, or the caller's
// latest conversation on the note when it is empty. Conversations of other users
// and other notes read as not found.
func (s *chatService) GetHistory(ctx context.Context, userId, noteId, conversationId string) (*dto.ChatHistoryResponse, error) {
	noteId = strings.TrimSpace(noteId)
	if noteId == "" {
		return nil, apperror.Validation("noteId is required")
	}

	var (
		conversation *entity.Conversation
		err          error
	)
	if strings.TrimSpace(conversationId) != "" {
		conversation, err = s.conversations.FindByID(ctx, conversationId)
	} else {
		conversation, err = s.conversations.FindLatestByOwner(ctx, noteId, userId)
	}
	if err != nil {
		return nil, err
	}
	if conversation.CreatedBy != userId || conversation.NoteId != noteId {
		return nil, apperror.NotFound("conversation not found")
	}

	messages, err := s.messages.ListByConversation(ctx, conversation.Id)
	if err != nil {
		return nil, err
	}

	res := &dto.ChatHistoryResponse{
		Conversation: dto.ChatConversationResponse{
			Id:                conversation.Id,
			ConversationTitle: conversation.ConversationTitle,
			NoteId:            conversation.NoteId,
			CreatedBy:         conversation.CreatedBy,
			CreatedAt:         conversation.CreatedAt,
			UpdatedAt:         conversation.UpdatedAt,
		},
		Messages: make([]dto.ChatMessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		res.Messages = append(res.Messages, dto.ChatMessageResponse{
			Id:        m.Id,
			Content:   m.Content,
			Sender:    string(m.Sender),
			CreatedAt: m.Metadata.CreatedAt,
		})
	}
	return res, nil
}

func (s *chatService) ListMyConversations(ctx context.Context, userId string) ([]*dto.MyConversationResponse, error) {
	conversations, err := s.conversations.ListByOwner(ctx, userId)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.MyConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		res = append(res, &dto.MyConversationResponse{
			Id:                c.Id,
			ConversationTitle: c.ConversationTitle,
			CreatedBy:         c.CreatedBy,
			CreatedAt:         c.CreatedAt,
		})
	}
	return res, nil
}

// DeleteConversation soft-deletes a conversation owned by userId. Its messages
// stay in the store but are no longer reachable through any read path.
func (s *chatService) DeleteConversation(ctx context.Context, userId, conversationId string) error {
	conversation, err := s.conversations.FindByID(ctx, conversationId)
	if err != nil {
		return err
	}
	if conversation.CreatedBy != userId {
		return apperror.NotFound("conversation not found")
	}
	return s.conversations.SoftDelete(ctx, conversation.Id)
}
