package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	openAIEmbeddingModel = openai.SmallEmbedding3
	openAIChatModel      = openai.GPT4oMini
)

type OpenAIProvider struct {
	apiKey string
	client *openai.Client
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey: apiKey,
		client: openai.NewClient(apiKey),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) IsConfigured() bool { return p.apiKey != "" }

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	rsp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openAIEmbeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding request: %w", err)
	}
	if len(rsp.Data) == 0 || len(rsp.Data[0].Embedding) == 0 {
		return nil, errors.New("openai returned no embedding data")
	}
	return rsp.Data[0].Embedding, nil
}

func (p *OpenAIProvider) Summarize(ctx context.Context, blocks []BlockContent) (string, error) {
	rsp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openAIChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: summaryInput(blocks)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai summary request: %w", err)
	}
	if len(rsp.Choices) == 0 {
		return "", errors.New("openai returned no completion choices")
	}
	return strings.TrimSpace(rsp.Choices[0].Message.Content), nil
}

func (p *OpenAIProvider) SuggestTitle(ctx context.Context, blocks []BlockContent) (string, error) {
	rsp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openAIChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: titleSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: summaryInput(blocks)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai title request: %w", err)
	}
	if len(rsp.Choices) == 0 {
		return "", errors.New("openai returned no completion choices")
	}
	return strings.Trim(strings.TrimSpace(rsp.Choices[0].Message.Content), `"`), nil
}

// Transcribe runs Whisper over an uploaded audio object. The filename only
// carries the extension the API uses to sniff the container format.
func (p *OpenAIProvider) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	rsp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   audio,
		FilePath: filename,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription request: %w", err)
	}
	return strings.TrimSpace(rsp.Text), nil
}

func (p *OpenAIProvider) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	rsp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openAIChatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: visionSystemPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai vision request: %w", err)
	}
	if len(rsp.Choices) == 0 {
		return "", errors.New("openai returned no completion choices")
	}
	return strings.TrimSpace(rsp.Choices[0].Message.Content), nil
}
