// Package ai defines the capability interface the processing pipeline is
// polymorphic over, plus the concrete provider clients. Which provider is
// active is a startup configuration concern; the pipeline never knows.
package ai

import (
	"context"
	"errors"
	"io"
)

// ErrEmbeddingsUnsupported is returned by providers that only offer text
// generation. The factory never selects such a provider for embeddings.
var ErrEmbeddingsUnsupported = errors.New("ai: provider does not support embeddings")

// BlockContent is the provider-facing view of one session block.
type BlockContent struct {
	BlockType string
	Text      string
}

type Provider interface {
	// Embed returns a fixed-dimension vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Summarize produces a short natural-language summary of the session.
	Summarize(ctx context.Context, blocks []BlockContent) (string, error)
	// IsConfigured reports whether the provider has credentials to run.
	IsConfigured() bool
	// Name identifies the provider; stored alongside each embedding row.
	Name() string
}

// Transcriber is an optional provider capability: speech-to-text over an
// uploaded audio object. The pipeline type-asserts for it and skips the
// transcription stage when the active provider cannot transcribe.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// VisionDescriber is an optional provider capability: a short textual
// description of an image reachable at a URL.
type VisionDescriber interface {
	DescribeImage(ctx context.Context, imageURL string) (string, error)
}

// TitleSuggester is an optional provider capability: a short title for the
// session, generated alongside the summary.
type TitleSuggester interface {
	SuggestTitle(ctx context.Context, blocks []BlockContent) (string, error)
}
