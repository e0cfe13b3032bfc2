package llm

import (
	"context"
	"testing"

	"github.com/edchat-io/edchat/internal/config"
	"github.com/edchat-io/edchat/internal/models"
	"github.com/sashabaranov/go-openai"
)

func TestBuildMessages(t *testing.T) {
	contextMessages := []models.Message{
		{Role: models.RoleUser, Content: "q1"},
		{Role: models.RoleAssistant, Content: "a1"},
		{Role: models.RoleSystem, Content: "internal note"},
		{Role: models.RoleUser, Content: "q2"},
	}

	got := BuildMessages(contextMessages, "q3")

	if len(got) != 5 {
		t.Fatalf("got %d messages, want 5", len(got))
	}
	if got[0].Role != openai.ChatMessageRoleSystem || got[0].Content != SystemPrompt {
		t.Fatalf("first message = %+v", got[0])
	}
	for _, m := range got[1:] {
		if m.Role == openai.ChatMessageRoleSystem {
			t.Fatalf("stored system row leaked into request: %+v", m)
		}
	}
	last := got[len(got)-1]
	if last.Role != openai.ChatMessageRoleUser || last.Content != "q3" {
		t.Fatalf("last message = %+v", last)
	}
}

func TestBuildMessagesEmptyContext(t *testing.T) {
	got := BuildMessages(nil, "hello")
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[1].Content != "hello" {
		t.Fatalf("user message = %q", got[1].Content)
	}
}

func TestGenerateWithoutKey(t *testing.T) {
	gen := NewOpenAIGenerator(config.LLMConfig{Model: "gpt-4o-mini"})
	if _, err := gen.Generate(context.Background(), BuildMessages(nil, "hi")); err != ErrNoAPIKey {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}
