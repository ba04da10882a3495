package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/repository/memory"
	"study-assistant-be/pkg/chat/assembler"
	"study-assistant-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type fakeVerifier struct {
	known map[string]bool
}

func (f *fakeVerifier) VerifyAccount(_ context.Context, userId string) (*entity.User, error) {
	if !f.known[userId] {
		return nil, apperror.Validation("user not found")
	}
	return &entity.User{Status: entity.UserStatusActive}, nil
}

// stallingVerifier blocks until the context is done, like a hung database.
type stallingVerifier struct {
	hadDeadline bool
}

func (s *stallingVerifier) VerifyAccount(ctx context.Context, _ string) (*entity.User, error) {
	_, s.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return nil, apperror.Store("failed to load user", ctx.Err())
}

type fakeGenerator struct {
	mu         sync.Mutex
	titleErr   error
	answerErr  error
	answers    []string
	prompts    []string
	titleCalls int
}

func (f *fakeGenerator) GenerateTitle(_ context.Context, question string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titleCalls++
	if f.titleErr != nil {
		return "", f.titleErr
	}
	return "About " + question, nil
}

func (f *fakeGenerator) GenerateAnswer(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.answerErr != nil {
		return "", f.answerErr
	}
	if len(f.answers) > 0 {
		a := f.answers[0]
		f.answers = f.answers[1:]
		return a, nil
	}
	return "generated answer", nil
}

type fakeTranscripts struct {
	byNote map[string]*entity.Transcript
	err    error
}

func (f *fakeTranscripts) FindByNoteID(_ context.Context, noteId string) (*entity.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byNote[noteId], nil
}

// flakyMessages fails appends for one sender.
type flakyMessages struct {
	*memory.MessageRepository
	failSender entity.Sender
}

func (f *flakyMessages) Append(ctx context.Context, content string, sender entity.Sender, conversationId, createdBy string) (*entity.Message, error) {
	if sender == f.failSender {
		return nil, apperror.Store("failed to append message", errors.New("write concern timeout"))
	}
	return f.MessageRepository.Append(ctx, content, sender, conversationId, createdBy)
}

type brokenConversations struct {
	*memory.ConversationRepository
}

func (b *brokenConversations) FindByID(context.Context, string) (*entity.Conversation, error) {
	return nil, apperror.Store("failed to find conversation", errors.New("no reachable servers"))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

type fixture struct {
	conversations *memory.ConversationRepository
	messages      *memory.MessageRepository
	generator     *fakeGenerator
	transcripts   *fakeTranscripts
	publisher     *recordingPublisher
	deps          Dependencies
}

func newFixture() *fixture {
	f := &fixture{
		conversations: memory.NewConversationRepository(),
		messages:      memory.NewMessageRepository(),
		generator:     &fakeGenerator{},
		transcripts:   &fakeTranscripts{byNote: map[string]*entity.Transcript{}},
		publisher:     &recordingPublisher{},
	}
	f.deps = Dependencies{
		Conversations: f.conversations,
		Messages:      f.messages,
		Transcripts:   f.transcripts,
		Verifier:      &fakeVerifier{known: map[string]bool{"u1": true, "u2": true}},
		Assembler:     assembler.New(0, 0),
		Generator:     f.generator,
		Events:        f.publisher,
	}
	return f
}

func (f *fixture) orchestrator() *Orchestrator {
	return New(f.deps, Config{}, logger.NewNopLogger())
}

func TestAskValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"empty user", Request{UserId: " ", NoteId: "n1", Question: "q"}},
		{"empty question", Request{UserId: "u1", NoteId: "n1", Question: "\t\n"}},
		{"empty note", Request{UserId: "u1", NoteId: "", Question: "q"}},
		{"unknown account", Request{UserId: "ghost", NoteId: "n1", Question: "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.orchestrator().Ask(context.Background(), tt.req)

			assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
			owned, _ := f.conversations.ListByOwner(context.Background(), "u1")
			assert.Empty(t, owned)
		})
	}
}

func TestAskNewConversation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.orchestrator().Ask(ctx, Request{UserId: "u1", NoteId: "n1", Question: "What is X?"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Answer)
	assert.True(t, res.NewConversation)
	assert.True(t, res.BotMessagePersisted)
	assert.Equal(t, "About What is X?", res.Conversation.ConversationTitle)

	owned, err := f.conversations.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, res.Conversation.Id, owned[0].Id)
	assert.Equal(t, "n1", owned[0].NoteId)
	assert.Equal(t, "u1", owned[0].CreatedBy)

	history, err := f.messages.ListByConversation(ctx, res.Conversation.Id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.SenderUser, history[0].Sender)
	assert.Equal(t, "What is X?", history[0].Content)
	assert.Equal(t, entity.SenderBot, history[1].Sender)
	assert.NotEmpty(t, history[1].Content)
	assert.Equal(t, "u1", history[1].Metadata.CreatedBy)

	require.Len(t, f.publisher.events, 1)
	exchange, ok := events.ChatExchangeFromEvent(f.publisher.events[0])
	require.True(t, ok)
	assert.Equal(t, res.Conversation.Id, exchange.ConversationId)
	assert.True(t, exchange.NewConversation)
}

func TestAskContinuingConversation(t *testing.T) {
	f := newFixture()
	f.generator.answers = []string{"answer one", "answer two"}
	ctx := context.Background()
	o := f.orchestrator()

	first, err := o.Ask(ctx, Request{UserId: "u1", NoteId: "n1", Question: "What is X?"})
	require.NoError(t, err)

	second, err := o.Ask(ctx, Request{UserId: "u1", NoteId: "n1", Question: "And why?", ConversationId: first.Conversation.Id})
	require.NoError(t, err)

	assert.False(t, second.NewConversation)
	assert.Equal(t, first.Conversation.Id, second.Conversation.Id)
	assert.Equal(t, 1, f.generator.titleCalls)

	owned, _ := f.conversations.ListByOwner(ctx, "u1")
	assert.Len(t, owned, 1)

	history, err := f.messages.ListByConversation(ctx, first.Conversation.Id)
	require.NoError(t, err)
	var got []string
	for _, m := range history {
		got = append(got, string(m.Sender)+":"+m.Content)
	}
	assert.Equal(t, []string{"user:What is X?", "bot:answer one", "user:And why?", "bot:answer two"}, got)

	// The second prompt sees the earlier exchange and the new question.
	assert.Contains(t, f.generator.prompts[1], "user: What is X?\n\nbot: answer one\n\nuser: And why?")
}

func TestAskStaleConversationIdCreatesNewConversation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.orchestrator()

	deleted, err := f.conversations.Create(ctx, "Old", "n1", "u1")
	require.NoError(t, err)
	require.NoError(t, f.conversations.SoftDelete(ctx, deleted.Id))

	tests := []struct {
		name string
		id   string
	}{
		{"unknown id", bson.NewObjectID().Hex()},
		{"deleted conversation", deleted.Id},
		{"malformed id", "not-an-object-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := o.Ask(ctx, Request{UserId: "u1", NoteId: "n1", Question: "q", ConversationId: tt.id})
			require.NoError(t, err)
			assert.True(t, res.NewConversation)
			assert.NotEqual(t, tt.id, res.Conversation.Id)
		})
	}

	owned, _ := f.conversations.ListByOwner(ctx, "u1")
	assert.Len(t, owned, 3)
}

func TestAskForeignConversationIsNotReused(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	other, err := f.conversations.Create(ctx, "Theirs", "n1", "u2")
	require.NoError(t, err)
	otherNote, err := f.conversations.Create(ctx, "Other note", "n2", "u1")
	require.NoError(t, err)

	for _, id := range []string{other.Id, otherNote.Id} {
		res, err := f.orchestrator().Ask(ctx, Request{UserId: "u1", NoteId: "n1", Question: "q", ConversationId: id})
		require.NoError(t, err)
		assert.True(t, res.NewConversation)
	}

	history, _ := f.messages.ListByConversation(ctx, other.Id)
	assert.Empty(t, history)
}

func TestAskFallbackTitle(t *testing.T) {
	f := newFixture()
	f.generator.titleErr = apperror.Generation("failed to generate title", errors.New("quota"))

	res, err := f.orchestrator().Ask(context.Background(), Request{UserId: "u1", NoteId: "n1", Question: "q"})

	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, res.Conversation.ConversationTitle)
}

func TestAskMissingTranscriptStillGenerates(t *testing.T) {
	for _, lookupErr := range []error{nil, errors.New("db down")} {
		f := newFixture()
		f.transcripts.err = lookupErr

		res, err := f.orchestrator().Ask(context.Background(), Request{UserId: "u1", NoteId: "n1", Question: "q"})

		require.NoError(t, err)
		assert.NotEmpty(t, res.Answer)
		require.Len(t, f.generator.prompts, 1)
		assert.Contains(t, f.generator.prompts[0], assembler.PlaceholderEn)
		assert.Contains(t, f.generator.prompts[0], assembler.PlaceholderVi)
	}
}

func TestAskUsesTranscript(t *testing.T) {
	f := newFixture()
	f.transcripts.byNote["n1"] = &entity.Transcript{DescriptionVi: "Quang hợp", DescriptionEn: "Photosynthesis"}

	_, err := f.orchestrator().Ask(context.Background(), Request{UserId: "u1", NoteId: "n1", Question: "q"})

	require.NoError(t, err)
	assert.Contains(t, f.generator.prompts[0], "description_en: Photosynthesis")
	assert.NotContains(t, f.generator.prompts[0], assembler.PlaceholderEn)
}

func TestAskGenerationFailureKeepsUserMessage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.generator.answerErr = errors.New("upstream 503")

	_, err := f.orchestrator().Ask(ctx, Request{UserId: "u1", NoteId: "n1", Question: "What is X?"})
	require.True(t, apperror.Is(err, apperror.KindGeneration))

	owned, _ := f.conversations.ListByOwner(ctx, "u1")
	require.Len(t, owned, 1)
	history, _ := f.messages.ListByConversation(ctx, owned[0].Id)
	require.Len(t, history, 1)
	assert.Equal(t, entity.SenderUser, history[0].Sender)
	assert.Empty(t, f.publisher.events)
}

func TestAskBotPersistFailureStillReturnsAnswer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.deps.Messages = &flakyMessages{MessageRepository: f.messages, failSender: entity.SenderBot}

	res, err := f.orchestrator().Ask(ctx, Request{UserId: "u1", NoteId: "n1", Question: "q"})

	require.NoError(t, err)
	assert.Equal(t, "generated answer", res.Answer)
	assert.False(t, res.BotMessagePersisted)
	assert.Nil(t, res.BotMessage)

	history, _ := f.messages.ListByConversation(ctx, res.Conversation.Id)
	require.Len(t, history, 1)
	assert.Equal(t, entity.SenderUser, history[0].Sender)
}

func TestAskUserPersistFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.deps.Messages = &flakyMessages{MessageRepository: f.messages, failSender: entity.SenderUser}

	_, err := f.orchestrator().Ask(context.Background(), Request{UserId: "u1", NoteId: "n1", Question: "q"})

	assert.True(t, apperror.Is(err, apperror.KindStore))
	assert.Empty(t, f.generator.prompts)
}

func TestAskStoreErrorDuringLookupIsFatal(t *testing.T) {
	f := newFixture()
	f.deps.Conversations = &brokenConversations{ConversationRepository: f.conversations}

	_, err := f.orchestrator().Ask(context.Background(), Request{
		UserId: "u1", NoteId: "n1", Question: "q", ConversationId: bson.NewObjectID().Hex(),
	})

	assert.True(t, apperror.Is(err, apperror.KindStore))
	assert.Equal(t, 0, f.generator.titleCalls)
}

func TestAskIgnoresCallerCancellation(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.orchestrator().Ask(ctx, Request{UserId: "u1", NoteId: "n1", Question: "q"})

	require.NoError(t, err)
	assert.True(t, res.BotMessagePersisted)
}

func TestAskAccountCheckIsBoundedByStoreTimeout(t *testing.T) {
	f := newFixture()
	verifier := &stallingVerifier{}
	f.deps.Verifier = verifier
	o := New(f.deps, Config{StoreTimeout: 20 * time.Millisecond}, logger.NewNopLogger())

	done := make(chan error, 1)
	go func() {
		_, err := o.Ask(context.Background(), Request{UserId: "u1", NoteId: "n1", Question: "q"})
		done <- err
	}()

	select {
	case err := <-done:
		assert.True(t, apperror.Is(err, apperror.KindStore), "got %v", err)
		assert.True(t, verifier.hadDeadline)
	case <-time.After(2 * time.Second):
		t.Fatal("account check was not bounded by the store timeout")
	}
	owned, _ := f.conversations.ListByOwner(context.Background(), "u1")
	assert.Empty(t, owned)
}

func TestAskPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("bus closed")

	res, err := f.orchestrator().Ask(context.Background(), Request{UserId: "u1", NoteId: "n1", Question: "q"})

	require.NoError(t, err)
	assert.NotEmpty(t, res.Answer)
}

func TestAskConcurrentQuestionsKeepPairsOrdered(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.orchestrator()

	first, err := o.Ask(ctx, Request{UserId: "u1", NoteId: "n1", Question: "start"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Ask(ctx, Request{UserId: "u1", NoteId: "n1", Question: "more", ConversationId: first.Conversation.Id})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := f.messages.ListByConversation(ctx, first.Conversation.Id)
	require.NoError(t, err)
	require.Len(t, history, 18)

	users, bots := 0, 0
	for i, m := range history {
		if i > 0 {
			assert.False(t, m.Metadata.CreatedAt.Before(history[i-1].Metadata.CreatedAt))
		}
		if m.Sender == entity.SenderUser {
			users++
		} else {
			bots++
		}
		// A bot turn never outnumbers the questions asked before it.
		assert.GreaterOrEqual(t, users, bots)
	}
}
