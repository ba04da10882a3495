package events

import "time"

const ChatExchangeCompleted = "chat.exchange_completed"

// ChatExchange describes one finished question/answer cycle.
type ChatExchange struct {
	ConversationId      string    `json:"conversationId"`
	NoteId              string    `json:"noteId"`
	UserId              string    `json:"userId"`
	UserMessageId       string    `json:"userMessageId"`
	BotMessageId        string    `json:"botMessageId,omitempty"`
	BotMessagePersisted bool      `json:"botMessagePersisted"`
	NewConversation     bool      `json:"newConversation"`
	OccurredAt          time.Time `json:"occurredAt"`
}

func NewChatExchangeCompleted(e ChatExchange) BaseEvent {
	return BaseEvent{
		Type: ChatExchangeCompleted,
		Data: map[string]interface{}{
			"conversationId":      e.ConversationId,
			"noteId":              e.NoteId,
			"userId":              e.UserId,
			"userMessageId":       e.UserMessageId,
			"botMessageId":        e.BotMessageId,
			"botMessagePersisted": e.BotMessagePersisted,
			"newConversation":     e.NewConversation,
		},
		OccurredAt: e.OccurredAt,
	}
}

// ChatExchangeFromEvent reads back the fields written by NewChatExchangeCompleted.
// Payloads that went through JSON keep their string and bool values intact.
func ChatExchangeFromEvent(ev Event) (ChatExchange, bool) {
	if ev.EventType() != ChatExchangeCompleted {
		return ChatExchange{}, false
	}
	data := ev.Payload()
	str := func(k string) string {
		v, _ := data[k].(string)
		return v
	}
	flag := func(k string) bool {
		v, _ := data[k].(bool)
		return v
	}

	e := ChatExchange{
		ConversationId:      str("conversationId"),
		NoteId:              str("noteId"),
		UserId:              str("userId"),
		UserMessageId:       str("userMessageId"),
		BotMessageId:        str("botMessageId"),
		BotMessagePersisted: flag("botMessagePersisted"),
		NewConversation:     flag("newConversation"),
		OccurredAt:          ev.Timestamp(),
	}
	return e, e.ConversationId != ""
}
