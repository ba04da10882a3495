package prompt

import (
	"strings"
)

// AnswerBuilder wraps an assembled conversation context with the study
// assistant instructions and the current question.
type AnswerBuilder struct {
	context  string
	question string
}

func NewAnswerBuilder(context, question string) *AnswerBuilder {
	return &AnswerBuilder{
		context:  context,
		question: strings.TrimSpace(question),
	}
}

func (b *AnswerBuilder) Build() string {
	var prompt strings.Builder

	b.writeReferenceMaterial(&prompt)
	b.writeTask(&prompt)
	b.writeGuidelines(&prompt)
	b.writeUserQuestion(&prompt)

	return prompt.String()
}

func (b *AnswerBuilder) writeReferenceMaterial(prompt *strings.Builder) {
	prompt.WriteString("<reference_material>\n")
	prompt.WriteString(b.context)
	prompt.WriteString("\n</reference_material>\n\n")
}

func (b *AnswerBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString("You are a study assistant helping the user understand a lecture note.\n")
	prompt.WriteString("The reference material holds the note's transcript description in Vietnamese and English, followed by the conversation so far.\n")
	prompt.WriteString("</task>\n\n")
}

func (b *AnswerBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("1. Base your answer on the transcript and the earlier turns of the conversation\n")
	prompt.WriteString("2. Answer in the language the user asked in\n")
	prompt.WriteString("3. If the transcript is missing or does not cover the question, say so and answer from general knowledge\n")
	prompt.WriteString("4. Be clear and well-organized\n")
	prompt.WriteString("</guidelines>\n\n")
}

func (b *AnswerBuilder) writeUserQuestion(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.question)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Now provide your answer:")
}

// BuildTitlePrompt asks for a short conversation title for a first question.
func BuildTitlePrompt(question string) string {
	var prompt strings.Builder
	prompt.WriteString("<task>\n")
	prompt.WriteString("Write a short title (at most 10 words) for a conversation that starts with the question below.\n")
	prompt.WriteString("Reply with the title only, no quotes, no punctuation at the end.\n")
	prompt.WriteString("</task>\n\n")
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(strings.TrimSpace(question))
	prompt.WriteString("\n</user_question>")
	return prompt.String()
}
