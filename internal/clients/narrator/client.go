// Package narrator is the language-model collaborator: it turns session
// context into raw narration text. Output is untrusted and is only ever
// consumed through the narration validator.
package narrator

//go:generate mockgen -destination=mock/mock_client.go -package=narratormock github.com/KirkDiggler/gamemaster-api/internal/clients/narrator Client

import (
	"context"
)

// Message is one turn of narrator conversation history
type Message struct {
	Role    string
	Content string
}

// Conversation roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GenerateInput defines the input for generating narration
type GenerateInput struct {
	// SystemPrompt sets the narrator's voice and output contract
	SystemPrompt string

	// History is prior conversation turns, oldest first
	History []Message

	// Prompt is the current request: what just happened at the table
	Prompt string
}

// GenerateOutput defines the output for generating narration
type GenerateOutput struct {
	// Raw is the narrator's reply, unvalidated
	Raw string
}

// Client defines the interface for narration generation
type Client interface {
	// GenerateNarration produces a raw narration reply
	// Returns errors.InvalidArgument for empty prompts
	// Returns errors.Unavailable when the model cannot be reached
	GenerateNarration(ctx context.Context, input *GenerateInput) (*GenerateOutput, error)
}
