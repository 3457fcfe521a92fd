package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"secondbrain_go_backend/internal/ai"
	"secondbrain_go_backend/internal/models"
	"secondbrain_go_backend/internal/utils/chunker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MaxJobAttempts bounds broker redelivery: once a job has been claimed this
// many times and still fails, it is marked failed instead of propagating the
// error back for another redelivery cycle.
const MaxJobAttempts = 3

// ProcessorService is the worker-side AI pipeline: given a delivered job it
// transcribes uploaded audio, describes uploaded images, regenerates the
// session's embedding index, then writes summary and suggested title and
// finalizes session and job status. One bad job never crashes the worker;
// every failure path lands in a status update.
type ProcessorService struct {
	sessions   SessionServiceDB
	jobs       AIJobServiceDB
	embeddings EmbeddingStore
	summarizer ai.Provider
	embedder   ai.Provider

	// media and objects may be nil when no bucket is configured; the
	// media enrichment stage is skipped then.
	media   MediaLookup
	objects ObjectStorage
}

func NewProcessorService(
	sessions SessionServiceDB,
	jobs AIJobServiceDB,
	embeddings EmbeddingStore,
	summarizer ai.Provider,
	embedder ai.Provider,
	media MediaLookup,
	objects ObjectStorage,
) *ProcessorService {
	return &ProcessorService{
		sessions:   sessions,
		jobs:       jobs,
		embeddings: embeddings,
		summarizer: summarizer,
		embedder:   embedder,
		media:      media,
		objects:    objects,
	}
}

// ProcessJob handles one delivery of spec. A nil return means the delivery
// is settled (completed, failed, or a no-op) and must be acked; a non-nil
// return means the delivery should stay on the broker for redelivery.
func (p *ProcessorService) ProcessJob(ctx context.Context, spec JobSpec) error {
	job, err := p.jobs.GetJob(ctx, spec.JobID)
	if err == gorm.ErrRecordNotFound {
		log.Warn().Str("job_id", spec.JobID.String()).Msg("Dropping job spec with no job row")
		return nil
	}
	if err != nil {
		return err
	}

	// Idempotency guard: redelivering a settled job is a no-op.
	if job.Status.Terminal() {
		return nil
	}

	session, err := p.sessions.GetSessionByID(ctx, spec.SessionID)
	if err == ErrSessionNotFound {
		log.Warn().Str("session_id", spec.SessionID.String()).Msg("Session vanished before processing")
		return p.jobs.MarkFailed(ctx, job.ID)
	}
	if err != nil {
		return err
	}

	if session.Status == models.SessionNoCredits || session.Status == models.SessionRawOnly {
		// Finalized without AI; a job for it should never run.
		return p.jobs.MarkFailed(ctx, job.ID)
	}

	claimed, err := p.jobs.MarkProcessing(ctx, job.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	job.Attempts++

	if _, err := p.sessions.TransitionStatus(ctx, session.ID, models.SessionPendingProcessing, models.SessionProcessing); err != nil {
		return err
	}

	blocks, err := p.sessions.ListBlocks(ctx, session.ID)
	if err != nil {
		return err
	}

	if err := p.enrich(ctx, session, job, blocks); err != nil {
		if job.Attempts >= MaxJobAttempts {
			log.Error().Err(err).
				Str("job_id", job.ID.String()).
				Str("session_id", session.ID.String()).
				Int("attempts", job.Attempts).
				Msg("AI processing failed permanently")
			if failErr := p.jobs.MarkFailed(ctx, job.ID); failErr != nil {
				return failErr
			}
			if failErr := p.sessions.MarkFailed(ctx, session.ID); failErr != nil {
				return failErr
			}
			return nil
		}
		// Leave the delivery unsettled so the broker redelivers it.
		log.Warn().Err(err).
			Str("job_id", job.ID.String()).
			Int("attempts", job.Attempts).
			Msg("AI processing failed, awaiting redelivery")
		return err
	}

	return nil
}

// enrich runs the pipeline: transcribe and describe uploaded media,
// concatenate, chunk, embed, summarize, title, finalize.
func (p *ProcessorService) enrich(ctx context.Context, session *models.Session, job *models.AIJob, blocks []models.SessionBlock) error {
	contents := blockContents(blocks)

	mediaContents, err := p.enrichMedia(ctx, session.ID)
	if err != nil {
		return err
	}
	contents = append(contents, mediaContents...)

	// Regenerate the embedding index from scratch so a crashed-and-
	// redelivered run cannot leave duplicate rows behind.
	if err := p.embeddings.DeleteBySession(ctx, session.ID, p.embedder.Name()); err != nil {
		return fmt.Errorf("clear embeddings: %w", err)
	}

	text := concatText(contents)
	chunks := chunker.Chunk(text, chunker.DefaultChunkSize, chunker.DefaultOverlap)

	for i, chunk := range chunks {
		vector, err := p.embedder.Embed(ctx, chunk)
		if err != nil {
			return fmt.Errorf("embed chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if len(vector) != models.EmbeddingDim {
			return fmt.Errorf("provider %s returned %d-dim vector, want %d", p.embedder.Name(), len(vector), models.EmbeddingDim)
		}
		if err := p.embeddings.CreateEmbedding(ctx, session.ID, nil, p.embedder.Name(), vector, chunk); err != nil {
			return fmt.Errorf("store embedding %d/%d: %w", i+1, len(chunks), err)
		}
	}

	summary, err := p.summarizer.Summarize(ctx, contents)
	if err != nil {
		return fmt.Errorf("summarize session: %w", err)
	}

	// A missing title never blocks the session; the summary is the
	// deliverable, the title a nicety.
	var title string
	if suggester, ok := p.summarizer.(ai.TitleSuggester); ok {
		title, err = suggester.SuggestTitle(ctx, contents)
		if err != nil {
			log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Title suggestion failed, continuing without one")
			title = ""
		}
	}

	if ok, err := p.sessions.MarkProcessed(ctx, session.ID, summary, title); err != nil {
		return err
	} else if !ok {
		log.Warn().Str("session_id", session.ID.String()).Msg("Session left processing state mid-run")
	}
	if err := p.jobs.MarkCompleted(ctx, job.ID); err != nil {
		return err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("job_id", job.ID.String()).
		Int("embeddings", len(chunks)).
		Msg("AI processing complete")
	return nil
}

// enrichMedia turns the session's uploaded media into text: audio is
// transcribed from the bucket, images are described through a short-lived
// download URL. Media the active provider cannot handle is skipped; a
// provider or bucket failure is returned so the delivery retries.
func (p *ProcessorService) enrichMedia(ctx context.Context, sessionID uuid.UUID) ([]ai.BlockContent, error) {
	if p.media == nil || p.objects == nil {
		return nil, nil
	}

	files, err := p.media.ListUploadedBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list uploaded media: %w", err)
	}

	transcriber, canTranscribe := p.summarizer.(ai.Transcriber)
	describer, canDescribe := p.summarizer.(ai.VisionDescriber)

	var contents []ai.BlockContent
	for _, file := range files {
		switch file.Type {
		case models.MediaTypeAudio:
			if !canTranscribe {
				continue
			}
			reader, err := p.objects.ReadObject(ctx, file.ObjectKey)
			if err != nil {
				return nil, fmt.Errorf("read audio object %s: %w", file.ObjectKey, err)
			}
			text, err := transcriber.Transcribe(ctx, reader, path.Base(file.ObjectKey))
			reader.Close()
			if err != nil {
				return nil, fmt.Errorf("transcribe %s: %w", file.ObjectKey, err)
			}
			if text != "" {
				contents = append(contents, ai.BlockContent{BlockType: string(models.BlockTypeVoice), Text: text})
			}
		case models.MediaTypeImage:
			if !canDescribe {
				continue
			}
			url, err := p.objects.IssueDownloadURL(ctx, file.ObjectKey)
			if err != nil {
				return nil, fmt.Errorf("sign image url %s: %w", file.ObjectKey, err)
			}
			description, err := describer.DescribeImage(ctx, url)
			if err != nil {
				return nil, fmt.Errorf("describe image %s: %w", file.ObjectKey, err)
			}
			if description != "" {
				contents = append(contents, ai.BlockContent{BlockType: string(models.BlockTypeImage), Text: description})
			}
		}
	}
	return contents, nil
}

func blockContents(blocks []models.SessionBlock) []ai.BlockContent {
	contents := make([]ai.BlockContent, 0, len(blocks))
	for _, b := range blocks {
		contents = append(contents, ai.BlockContent{
			BlockType: string(b.BlockType),
			Text:      b.TextContent,
		})
	}
	return contents
}

// concatText joins block text in insertion order. Image blocks without a
// transcript contribute a placeholder so narrative position is preserved.
func concatText(contents []ai.BlockContent) string {
	var parts []string
	for _, c := range contents {
		switch {
		case c.Text != "":
			parts = append(parts, c.Text)
		case c.BlockType == string(models.BlockTypeImage):
			parts = append(parts, "[image]")
		}
	}
	return strings.Join(parts, "\n\n")
}
