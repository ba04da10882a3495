// Package assembler combines a note's transcript with the ordered turns of a
// conversation into the context block handed to the prompt builder.
package assembler

import (
	"strings"
	"unicode/utf8"

	"study-assistant-be/internal/entity"
)

const (
	PlaceholderVi = "Không tìm thấy bản ghi."
	PlaceholderEn = "Transcript not found."

	turnSeparator = "\n\n"
)

// Assembler is pure and safe for concurrent use.
type Assembler struct {
	historyWindow int
	charBudget    int
}

// New returns an assembler keeping at most historyWindow recent messages whose
// rendered size fits charBudget. Zero disables either bound.
func New(historyWindow, charBudget int) *Assembler {
	if historyWindow < 0 {
		historyWindow = 0
	}
	if charBudget < 0 {
		charBudget = 0
	}
	return &Assembler{historyWindow: historyWindow, charBudget: charBudget}
}

// Assemble renders the transcript block followed by the windowed history as
// "sender: content" turns in chronological order. It never returns an empty
// string; a nil transcript is replaced by the bilingual placeholder.
func (a *Assembler) Assemble(transcript *entity.Transcript, history []*entity.Message) string {
	var sb strings.Builder
	writeTranscript(&sb, transcript)

	turns := a.Window(history)
	if len(turns) == 0 {
		return sb.String()
	}

	sb.WriteString(turnSeparator)
	for i, m := range turns {
		if i > 0 {
			sb.WriteString(turnSeparator)
		}
		sb.WriteString(renderTurn(m))
	}
	return sb.String()
}

// Window returns the suffix of history that will be rendered. The newest
// message is always part of the result.
func (a *Assembler) Window(history []*entity.Message) []*entity.Message {
	turns := make([]*entity.Message, 0, len(history))
	for _, m := range history {
		if m != nil {
			turns = append(turns, m)
		}
	}

	if a.historyWindow > 0 && len(turns) > a.historyWindow {
		turns = turns[len(turns)-a.historyWindow:]
	}
	if a.charBudget == 0 || len(turns) <= 1 {
		return turns
	}

	// Walk backwards from the newest turn and stop once the budget is spent.
	used := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		cost := utf8.RuneCountInString(renderTurn(turns[i]))
		if i < len(turns)-1 {
			cost += len(turnSeparator)
		}
		if start < len(turns) && used+cost > a.charBudget {
			break
		}
		used += cost
		start = i
	}
	return turns[start:]
}

func writeTranscript(sb *strings.Builder, transcript *entity.Transcript) {
	vi, en := PlaceholderVi, PlaceholderEn
	if transcript != nil {
		vi, en = transcript.DescriptionVi, transcript.DescriptionEn
	}
	sb.WriteString("description_vi: ")
	sb.WriteString(vi)
	sb.WriteString("\ndescription_en: ")
	sb.WriteString(en)
}

func renderTurn(m *entity.Message) string {
	return string(m.Sender) + ": " + m.Content
}
