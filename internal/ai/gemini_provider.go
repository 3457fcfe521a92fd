package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

const geminiModel = "gemini-1.5-flash"

// GeminiProvider generates summaries through the GenAI API. It does not
// serve embeddings: its vectors have a different dimensionality than the
// stored 1536-dim rows, and mixing providers in one index would make cosine
// comparisons meaningless.
type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(client *genai.Client) *GeminiProvider {
	return &GeminiProvider{client: client}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) IsConfigured() bool { return p.client != nil }

func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrEmbeddingsUnsupported
}

func (p *GeminiProvider) Summarize(ctx context.Context, blocks []BlockContent) (string, error) {
	model := p.client.GenerativeModel(geminiModel)
	model.SystemInstruction = genai.NewUserContent(genai.Text(summarySystemPrompt))

	rsp, err := model.GenerateContent(ctx, genai.Text(summaryInput(blocks)))
	if err != nil {
		return "", fmt.Errorf("gemini summary request: %w", err)
	}
	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("gemini returned no text parts")
	}
	return strings.TrimSpace(sb.String()), nil
}

func (p *GeminiProvider) SuggestTitle(ctx context.Context, blocks []BlockContent) (string, error) {
	model := p.client.GenerativeModel(geminiModel)
	model.SystemInstruction = genai.NewUserContent(genai.Text(titleSystemPrompt))

	rsp, err := model.GenerateContent(ctx, genai.Text(summaryInput(blocks)))
	if err != nil {
		return "", fmt.Errorf("gemini title request: %w", err)
	}
	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.Trim(strings.TrimSpace(sb.String()), `"`), nil
}
