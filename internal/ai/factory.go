package ai

import (
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

const summarySystemPrompt = "You summarize a user's recorded capture session. " +
	"Write a short summary (3-5 sentences) of what was captured, in the language of the content. " +
	"Do not invent details that are not present in the blocks."

const titleSystemPrompt = "You title a user's recorded capture session. " +
	"Reply with a single short title (at most 8 words) in the language of the content. " +
	"No quotes, no trailing punctuation."

const visionSystemPrompt = "Describe the content of this image in 1-2 factual sentences. " +
	"Mention any legible text. Do not speculate about what is not visible."

// summaryInput renders blocks in insertion order for the summary prompt.
// Image blocks contribute a placeholder so the narrative stays intact.
func summaryInput(blocks []BlockContent) string {
	var sb strings.Builder
	for _, b := range blocks {
		switch {
		case b.Text != "":
			sb.WriteString(b.Text)
		case b.BlockType == "image":
			sb.WriteString("[image]")
		default:
			continue
		}
		sb.WriteString("\n\n")
	}
	if sb.Len() == 0 {
		return "(empty session)"
	}
	return sb.String()
}

// SummaryProvider selects the provider used for summaries. name is the
// AI_PROVIDER setting; defaults to openai.
func SummaryProvider(name, openAIKey string, geminiClient *genai.Client) (Provider, error) {
	switch strings.ToLower(name) {
	case "", "openai":
		p := NewOpenAIProvider(openAIKey)
		if !p.IsConfigured() {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY is not set")
		}
		return p, nil
	case "gemini":
		p := NewGeminiProvider(geminiClient)
		if !p.IsConfigured() {
			return nil, fmt.Errorf("gemini provider selected but no GenAI client is configured")
		}
		return p, nil
	default:
		return nil, fmt.Errorf("invalid AI provider %q: must be one of 'openai', 'gemini'", name)
	}
}

// EmbeddingProvider selects the provider used for embeddings. Only OpenAI
// serves 1536-dim vectors matching the stored rows, so any other selection
// is rejected rather than silently producing incomparable vectors.
func EmbeddingProvider(name, openAIKey string) (Provider, error) {
	switch strings.ToLower(name) {
	case "", "openai":
		p := NewOpenAIProvider(openAIKey)
		if !p.IsConfigured() {
			return nil, fmt.Errorf("embedding provider requires OPENAI_API_KEY to be set")
		}
		return p, nil
	default:
		return nil, fmt.Errorf("invalid embedding provider %q: only 'openai' matches the stored vector dimensionality", name)
	}
}
