// Package llm turns stored conversation context into assistant replies.
package llm

import (
	"context"

	"github.com/edchat-io/edchat/internal/models"
	"github.com/sashabaranov/go-openai"
)

// SystemPrompt frames every inference request.
const SystemPrompt = `You are Ed.

You are an expert analytical assistant.
Use retrieved context when relevant.
If context is insufficient, say so explicitly.
Do not hallucinate sources.`

// Generator produces an assistant reply for a prepared message list.
type Generator interface {
	Generate(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error)
}

// BuildMessages converts stored context plus the incoming user message into
// the request message list. Only user and assistant rows carry over; stored
// system rows never reach the model.
func BuildMessages(contextMessages []models.Message, userMessage string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(contextMessages)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt,
	})
	for _, m := range contextMessages {
		if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})
	return messages
}
