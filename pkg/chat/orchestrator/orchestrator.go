// Package orchestrator runs one question/answer cycle of a note conversation:
// resolve or create the conversation, persist the question, assemble context,
// generate the answer and persist it.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/repository/contract"
	"study-assistant-be/pkg/chat/prompt"
	"study-assistant-be/pkg/events"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	module       = "orchestrator"
	DefaultTitle = "New conversation"
)

type State string

const (
	StateValidating            State = "validating"
	StateResolvingConversation State = "resolving_conversation"
	StatePersistingUserMessage State = "persisting_user_message"
	StateAssemblingContext     State = "assembling_context"
	StateGenerating            State = "generating"
	StatePersistingBotMessage  State = "persisting_bot_message"
	StateDone                  State = "done"
)

type AccountVerifier interface {
	VerifyAccount(ctx context.Context, userId string) (*entity.User, error)
}

type ContextAssembler interface {
	Assemble(transcript *entity.Transcript, history []*entity.Message) string
}

type Generator interface {
	GenerateTitle(ctx context.Context, question string) (string, error)
	GenerateAnswer(ctx context.Context, prompt string) (string, error)
}

type Dependencies struct {
	Conversations contract.ConversationRepository
	Messages      contract.MessageRepository
	Transcripts   contract.TranscriptRepository
	Verifier      AccountVerifier
	Assembler     ContextAssembler
	Generator     Generator
	// Events is optional.
	Events events.Publisher
}

type Config struct {
	// StoreTimeout bounds every store call; zero leaves them unbounded.
	StoreTimeout time.Duration
	DefaultTitle string
}

type Request struct {
	UserId         string
	NoteId         string
	Question       string
	ConversationId string
}

type Result struct {
	Answer              string
	Conversation        *entity.Conversation
	NewConversation     bool
	UserMessage         *entity.Message
	BotMessage          *entity.Message
	BotMessagePersisted bool
}

type Orchestrator struct {
	deps   Dependencies
	cfg    Config
	log    logger.ILogger
	tracer trace.Tracer
}

func New(deps Dependencies, cfg Config, log logger.ILogger) *Orchestrator {
	if strings.TrimSpace(cfg.DefaultTitle) == "" {
		cfg.DefaultTitle = DefaultTitle
	}
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		log:    log,
		tracer: otel.Tracer("study-assistant-be/pkg/chat/orchestrator"),
	}
}

// Ask runs a full cycle. The caller's cancellation is ignored once the cycle
// starts so an aborted request never leaves a question without its answer
// attempt; each external call carries its own timeout instead.
func (o *Orchestrator) Ask(ctx context.Context, req Request) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := o.tracer.Start(ctx, "orchestrator.Ask", trace.WithAttributes(
		attribute.String("chat.user_id", req.UserId),
		attribute.String("chat.note_id", req.NoteId),
	))
	defer span.End()

	state := StateValidating
	fail := func(err error) (*Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(state))
		o.log.Error(module, "Chat cycle failed", map[string]interface{}{
			"state":   string(state),
			"user_id": req.UserId,
			"note_id": req.NoteId,
			"error":   err.Error(),
		})
		return nil, err
	}
	enter := func(s State) {
		state = s
		span.AddEvent(string(s))
	}

	req.UserId = strings.TrimSpace(req.UserId)
	req.NoteId = strings.TrimSpace(req.NoteId)
	req.ConversationId = strings.TrimSpace(req.ConversationId)
	if err := validate(req); err != nil {
		return fail(err)
	}
	if err := o.verifyAccount(ctx, req.UserId); err != nil {
		return fail(err)
	}

	enter(StateResolvingConversation)
	conversation, created, err := o.resolveConversation(ctx, req)
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(
		attribute.String("chat.conversation_id", conversation.Id),
		attribute.Bool("chat.new_conversation", created),
	)

	enter(StatePersistingUserMessage)
	userMsg, err := o.appendMessage(ctx, req.Question, entity.SenderUser, conversation.Id, req.UserId)
	if err != nil {
		return fail(err)
	}

	enter(StateAssemblingContext)
	contextText, err := o.assembleContext(ctx, req.NoteId, conversation.Id)
	if err != nil {
		return fail(err)
	}

	enter(StateGenerating)
	answer, err := o.deps.Generator.GenerateAnswer(ctx, prompt.NewAnswerBuilder(contextText, req.Question).Build())
	if err != nil {
		if _, ok := apperror.KindOf(err); !ok {
			err = apperror.Generation("failed to generate answer", err)
		}
		return fail(err)
	}

	enter(StatePersistingBotMessage)
	result := &Result{
		Answer:          answer,
		Conversation:    conversation,
		NewConversation: created,
		UserMessage:     userMsg,
	}
	botMsg, err := o.appendMessage(ctx, answer, entity.SenderBot, conversation.Id, req.UserId)
	if err != nil {
		// The answer is still returned; the history lacks this turn.
		span.RecordError(err)
		o.log.Error(module, "Failed to persist bot message", map[string]interface{}{
			"conversation_id": conversation.Id,
			"user_id":         req.UserId,
			"error":           err.Error(),
		})
	} else {
		result.BotMessage = botMsg
		result.BotMessagePersisted = true
	}

	enter(StateDone)
	o.publishExchange(ctx, req, result)

	o.log.Info(module, "Chat cycle completed", map[string]interface{}{
		"conversation_id":  conversation.Id,
		"new_conversation": created,
		"bot_persisted":    result.BotMessagePersisted,
	})
	return result, nil
}

func validate(req Request) error {
	switch {
	case req.UserId == "":
		return apperror.Validation("userId is required")
	case strings.TrimSpace(req.Question) == "":
		return apperror.Validation("question is required")
	case req.NoteId == "":
		return apperror.Validation("noteId is required")
	}
	return nil
}

func (o *Orchestrator) verifyAccount(ctx context.Context, userId string) error {
	sctx, cancel := o.storeContext(ctx)
	defer cancel()
	_, err := o.deps.Verifier.VerifyAccount(sctx, userId)
	return err
}

// resolveConversation reuses the supplied conversation when it is live, owned
// by the caller and scoped to the same note. Anything else, including a
// malformed id, starts a new conversation. Only store failures are fatal.
func (o *Orchestrator) resolveConversation(ctx context.Context, req Request) (*entity.Conversation, bool, error) {
	if req.ConversationId != "" {
		sctx, cancel := o.storeContext(ctx)
		conversation, err := o.deps.Conversations.FindByID(sctx, req.ConversationId)
		cancel()

		switch {
		case err == nil && conversation.CreatedBy == req.UserId && conversation.NoteId == req.NoteId:
			return conversation, false, nil
		case err == nil:
			o.log.Warn(module, "Conversation belongs to another user or note, starting a new one", map[string]interface{}{
				"conversation_id": req.ConversationId,
				"user_id":         req.UserId,
				"note_id":         req.NoteId,
			})
		case apperror.Is(err, apperror.KindValidation), apperror.Is(err, apperror.KindNotFound):
			o.log.Info(module, "Stale conversation id, starting a new conversation", map[string]interface{}{
				"conversation_id": req.ConversationId,
				"reason":          err.Error(),
			})
		default:
			return nil, false, err
		}
	}

	title := o.title(ctx, req.Question)

	sctx, cancel := o.storeContext(ctx)
	defer cancel()
	conversation, err := o.deps.Conversations.Create(sctx, title, req.NoteId, req.UserId)
	if err != nil {
		return nil, false, err
	}
	return conversation, true, nil
}

func (o *Orchestrator) title(ctx context.Context, question string) string {
	title, err := o.deps.Generator.GenerateTitle(ctx, question)
	if err != nil || strings.TrimSpace(title) == "" {
		return o.cfg.DefaultTitle
	}
	return strings.TrimSpace(title)
}

func (o *Orchestrator) appendMessage(ctx context.Context, content string, sender entity.Sender, conversationId, userId string) (*entity.Message, error) {
	sctx, cancel := o.storeContext(ctx)
	defer cancel()
	return o.deps.Messages.Append(sctx, content, sender, conversationId, userId)
}

// assembleContext treats a failed transcript lookup like a missing one. A
// failed history read is fatal since the prompt would silently lose turns.
func (o *Orchestrator) assembleContext(ctx context.Context, noteId, conversationId string) (string, error) {
	sctx, cancel := o.storeContext(ctx)
	transcript, err := o.deps.Transcripts.FindByNoteID(sctx, noteId)
	cancel()
	if err != nil {
		o.log.Warn(module, "Transcript lookup failed, using placeholder", map[string]interface{}{
			"note_id": noteId,
			"error":   err.Error(),
		})
		transcript = nil
	}

	sctx, cancel = o.storeContext(ctx)
	history, err := o.deps.Messages.ListByConversation(sctx, conversationId)
	cancel()
	if err != nil {
		return "", err
	}

	return o.deps.Assembler.Assemble(transcript, history), nil
}

func (o *Orchestrator) publishExchange(ctx context.Context, req Request, result *Result) {
	if o.deps.Events == nil {
		return
	}

	exchange := events.ChatExchange{
		ConversationId:      result.Conversation.Id,
		NoteId:              req.NoteId,
		UserId:              req.UserId,
		UserMessageId:       result.UserMessage.Id,
		BotMessagePersisted: result.BotMessagePersisted,
		NewConversation:     result.NewConversation,
		OccurredAt:          time.Now().UTC(),
	}
	if result.BotMessage != nil {
		exchange.BotMessageId = result.BotMessage.Id
	}

	if err := o.deps.Events.Publish(ctx, events.NewChatExchangeCompleted(exchange)); err != nil {
		o.log.Warn(module, "Failed to publish chat exchange event", map[string]interface{}{
			"conversation_id": result.Conversation.Id,
			"error":           err.Error(),
		})
	}
}

func (o *Orchestrator) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.cfg.StoreTimeout)
}
