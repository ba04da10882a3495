package generation

import (
	"context"
	"errors"
	"testing"

	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply   string
	err     error
	prompts []string
	options []llm.Options
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return f.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (f *fakeProvider) Generate(_ context.Context, prompt string, opts ...llm.Option) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.options = append(f.options, llm.ApplyOptions(llm.Options{}, opts...))
	return f.reply, f.err
}

func newClient(p llm.LLMProvider) *Client {
	return NewClient(p, Config{MaxTokens: 512, Temperature: 0.7, TitleMaxTokens: 16}, logger.NewNopLogger())
}

func TestGenerateAnswerPassesOptions(t *testing.T) {
	p := &fakeProvider{reply: "  X is a thing.\n"}

	answer, err := newClient(p).GenerateAnswer(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "X is a thing.", answer)
	assert.Equal(t, 512, p.options[0].MaxTokens)
	assert.InDelta(t, 0.7, p.options[0].Temperature, 0.0001)
}

func TestGenerateAnswerErrors(t *testing.T) {
	tests := []struct {
		name string
		p    *fakeProvider
	}{
		{"provider failure", &fakeProvider{err: errors.New("timeout")}},
		{"blank output", &fakeProvider{reply: "   \n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newClient(tt.p).GenerateAnswer(context.Background(), "prompt")
			assert.True(t, apperror.Is(err, apperror.KindGeneration))
		})
	}
}

func TestGenerateTitle(t *testing.T) {
	p := &fakeProvider{reply: "**Title: \"Photosynthesis Basics\"**\nextra"}

	title, err := newClient(p).GenerateTitle(context.Background(), "What is photosynthesis?")

	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis Basics", title)
	assert.Equal(t, 16, p.options[0].MaxTokens)
	assert.Contains(t, p.prompts[0], "What is photosynthesis?")
}

func TestGenerateTitleFailures(t *testing.T) {
	_, err := newClient(&fakeProvider{err: errors.New("quota")}).GenerateTitle(context.Background(), "q")
	assert.True(t, apperror.Is(err, apperror.KindGeneration))

	_, err = newClient(&fakeProvider{reply: "\"\""}).GenerateTitle(context.Background(), "q")
	assert.True(t, apperror.Is(err, apperror.KindGeneration))
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Plain title", "Plain title"},
		{"# Heading title.", "Heading title"},
		{"`code` words", "code words"},
		{"“Quoted”", "Quoted"},
		{"one two three four five six seven eight nine ten eleven twelve", "one two three four five six seven eight nine ten"},
		{"\n\n  Second line wins  \n", "Second line wins"},
		{"Why: the reason", "Why: the reason"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanTitle(tt.raw), tt.raw)
	}
}
