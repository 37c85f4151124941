package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
)

const systemPrompt = "You extract structured details from phone call transcripts. Reply with one JSON object and nothing else."

type IChatGPT interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type chatGPTService struct {
	client *openai.Client
	model  string
}

// NewChatGPT reads OPENAI_API_KEY and OPENAI_CHAT_MODEL. OPENAI_BASE_URL
// points it at any OpenAI-compatible endpoint.
func NewChatGPT() IChatGPT {
	cfg := openai.DefaultConfig(os.Getenv("OPENAI_API_KEY"))
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	model := os.Getenv("OPENAI_CHAT_MODEL")
	if model == "" {
		model = openai.GPT4oMini
	}

	return &chatGPTService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *chatGPTService) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0.2,
			MaxTokens:   1024,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices")
	}
	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		return "", fmt.Errorf("openai chat completion: reply truncated at %d tokens", resp.Usage.CompletionTokens)
	}

	return resp.Choices[0].Message.Content, nil
}
