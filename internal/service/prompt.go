package service

import (
	"fmt"
	"strings"

	"github.com/deskmind/deskmind/internal/domain"
)

// Message is one chat message handed to the answerer.
type Message struct {
	Role    string
	Content string
}

const (
	MessageRoleSystem    = "system"
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

const highConfidenceInstruction = `You are an IT helpdesk assistant. Answer the user's question using only the knowledge entries provided below. Be concise and practical. Reference entry titles when they support your answer. If a step requires administrator rights, say so.`

const mediumConfidenceInstruction = `You are an IT helpdesk assistant. The knowledge entries below are only partially related to the question. Answer as best you can, clearly state what you are unsure about, and recommend the user verify with the service desk before acting on anything risky.`

// PromptBuilder assembles the messages for one answer attempt. The
// conversation history is trimmed newest-first to the character budget
// so long sessions cannot crowd out the retrieved context.
type PromptBuilder struct {
	maxContextChars int
}

// NewPromptBuilder creates a new PromptBuilder instance
func NewPromptBuilder(maxContextChars int) *PromptBuilder {
	if maxContextChars <= 0 {
		maxContextChars = 3000
	}
	return &PromptBuilder{maxContextChars: maxContextChars}
}

// BuildMessages returns the system instruction, trimmed history and the
// user question with its context block.
func (b *PromptBuilder) BuildMessages(level domain.ConfidenceLevel, question string, hits []*SearchHit, history []ContextTurn) []Message {
	instruction := highConfidenceInstruction
	if level == domain.ConfidenceMedium {
		instruction = mediumConfidenceInstruction
	}

	messages := []Message{{Role: MessageRoleSystem, Content: instruction}}

	for _, turn := range trimHistory(history, b.maxContextChars) {
		role := MessageRoleUser
		if turn.Role == domain.TurnRoleAssistant {
			role = MessageRoleAssistant
		}
		messages = append(messages, Message{Role: role, Content: turn.Content})
	}

	var sb strings.Builder
	sb.WriteString("Knowledge entries:\n")
	sb.WriteString(b.contextBlock(hits))
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	messages = append(messages, Message{Role: MessageRoleUser, Content: sb.String()})

	return messages
}

// contextBlock renders the retrieved entries, capped at the character
// budget so an oversized entry cannot blow up the prompt.
func (b *PromptBuilder) contextBlock(hits []*SearchHit) string {
	var sb strings.Builder
	for i, h := range hits {
		entry := fmt.Sprintf("[%d] %s\n%s\n", i+1, h.Title, h.Snippet)
		if sb.Len()+len(entry) > b.maxContextChars {
			break
		}
		sb.WriteString(entry)
	}
	return sb.String()
}

// Deflection synthesizes the low-confidence reply without calling the
// answerer, pointing at the closest entries when there are any.
func (b *PromptBuilder) Deflection(hits []*SearchHit) string {
	if len(hits) == 0 {
		return "I couldn't find anything in the knowledge base that matches your question. " +
			"Please contact the service desk so a support agent can help you directly."
	}

	var sb strings.Builder
	sb.WriteString("I couldn't find a confident answer to your question. The closest knowledge base entries are:\n")
	for i, h := range hits {
		if i >= 3 {
			break
		}
		sb.WriteString(fmt.Sprintf("- %s\n", h.Title))
	}
	sb.WriteString("If none of these help, please contact the service desk for direct assistance.")
	return sb.String()
}

// trimHistory keeps the newest turns whose combined content fits the
// character budget, preserving chronological order in the result.
func trimHistory(history []ContextTurn, maxChars int) []ContextTurn {
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		total += len(history[i].Content)
		if total > maxChars {
			break
		}
		start = i
	}
	return history[start:]
}
