package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/deskmind/deskmind/internal/telemetry"
)

// Searcher retrieves ranked knowledge entries for a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]*SearchHit, error)
}

// Answerer generates an answer from assembled chat messages.
type Answerer interface {
	Complete(ctx context.Context, messages []Message, temperature float64) (string, error)
}

// ConversationMemory is the slice of conversation behavior the pipeline needs.
type ConversationMemory interface {
	GetContext(ctx context.Context, sessionID string) ([]ContextTurn, error)
	RecordExchange(ctx context.Context, sessionID, question, answer string) error
}

// QueryLogger records pipeline invocations.
type QueryLogger interface {
	LogQuery(ctx context.Context, input LogQueryInput) (*domain.QueryLog, error)
}

// Citation points an answer back at a retrieved knowledge entry.
type Citation struct {
	ID         string
	Title      string
	Similarity float64
}

// AnswerResult is the outcome of one pipeline invocation.
type AnswerResult struct {
	Answer             string
	Citations          []Citation
	Confidence         domain.ConfidenceLevel
	LogID              string
	GenerationDegraded bool
	LatencyMs          int64
}

// PipelineConfig tunes one pipeline instance.
type PipelineConfig struct {
	TopK          int
	Thresholds    ConfidenceThresholds
	Temperature   float64
	AnswerTimeout time.Duration
}

// DefaultPipelineConfig returns the standard pipeline tuning.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TopK:          5,
		Thresholds:    DefaultConfidenceThresholds(),
		Temperature:   0.2,
		AnswerTimeout: 15 * time.Second,
	}
}

// Pipeline orchestrates one question through retrieval, confidence
// routing, answer generation and logging. It keeps no state between
// calls; every invocation re-reads whatever it needs.
type Pipeline struct {
	searcher Searcher
	answerer Answerer
	memory   ConversationMemory
	logger   QueryLogger
	prompt   *PromptBuilder
	cfg      PipelineConfig
}

// NewPipeline creates a new Pipeline instance. The answerer may be nil
// when no generation backend is configured; every attempt then degrades
// to the deflection reply.
func NewPipeline(searcher Searcher, answerer Answerer, memory ConversationMemory, logger QueryLogger, prompt *PromptBuilder, cfg PipelineConfig) *Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.AnswerTimeout <= 0 {
		cfg.AnswerTimeout = 15 * time.Second
	}
	return &Pipeline{
		searcher: searcher,
		answerer: answerer,
		memory:   memory,
		logger:   logger,
		prompt:   prompt,
		cfg:      cfg,
	}
}

// AnswerQuery runs the full pipeline for one question. Answer generation
// failures degrade to the deflection reply; logging and memory failures
// never fail the request, they are reported to telemetry instead.
func (p *Pipeline) AnswerQuery(ctx context.Context, question, sessionID string) (*AnswerResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Pipeline.AnswerQuery", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "answer",
	})
	defer span.End()

	if question == "" {
		return nil, &domain.DomainError{Code: domain.ErrCodeValidation, Message: "question is required"}
	}

	start := time.Now()

	hits, err := p.searcher.Search(ctx, question, p.cfg.TopK)
	if err != nil {
		return nil, err
	}

	distances := make([]float64, len(hits))
	retrievedIDs := make([]string, len(hits))
	citations := make([]Citation, len(hits))
	for i, h := range hits {
		distances[i] = h.Distance
		retrievedIDs[i] = h.ID
		citations[i] = Citation{ID: h.ID, Title: h.Title, Similarity: h.Similarity}
	}

	assessment := p.cfg.Thresholds.Classify(distances)

	var history []ContextTurn
	if sessionID != "" {
		history, err = p.memory.GetContext(ctx, sessionID)
		if err != nil {
			log.Printf("pipeline: loading session %s context failed: %v", sessionID, err)
			telemetry.CaptureError(ctx, err)
			history = nil
		}
	}

	answer, degraded := p.generate(ctx, assessment, question, hits, history)

	if sessionID != "" {
		if err := p.memory.RecordExchange(ctx, sessionID, question, answer); err != nil {
			log.Printf("pipeline: recording exchange for session %s failed: %v", sessionID, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	latency := time.Since(start).Milliseconds()

	var logID string
	entry, err := p.logger.LogQuery(ctx, LogQueryInput{
		Question:           question,
		Answer:             answer,
		RetrievedIDs:       retrievedIDs,
		Confidence:         assessment.Level,
		TopDistance:        assessment.TopDistance,
		MeanDistance:       assessment.MeanDistance,
		LatencyMs:          latency,
		SessionID:          sessionID,
		GenerationDegraded: degraded,
	})
	if err != nil {
		log.Printf("pipeline: query logging failed: %v", err)
		telemetry.CaptureError(ctx, err)
	} else {
		logID = entry.ID
	}

	return &AnswerResult{
		Answer:             answer,
		Citations:          citations,
		Confidence:         assessment.Level,
		LogID:              logID,
		GenerationDegraded: degraded,
		LatencyMs:          latency,
	}, nil
}

// generate produces the answer text for the routed confidence level.
func (p *Pipeline) generate(ctx context.Context, assessment Assessment, question string, hits []*SearchHit, history []ContextTurn) (string, bool) {
	if !assessment.AttemptAnswer {
		return p.prompt.Deflection(hits), false
	}

	if p.answerer == nil {
		telemetry.CaptureError(ctx, domain.ErrAnswererUnavailable)
		return p.prompt.Deflection(hits), true
	}

	temperature := p.cfg.Temperature
	if assessment.Level == domain.ConfidenceMedium {
		temperature *= 0.7
	}

	messages := p.prompt.BuildMessages(assessment.Level, question, hits, history)

	genCtx, cancel := context.WithTimeout(ctx, p.cfg.AnswerTimeout)
	defer cancel()

	answer, err := p.answerer.Complete(genCtx, messages, temperature)
	if err != nil {
		log.Printf("pipeline: answer generation failed, deflecting: %v", err)
		telemetry.CaptureError(ctx, fmt.Errorf("%w: %v", domain.ErrAnswererUnavailable, err))
		return p.prompt.Deflection(hits), true
	}
	return answer, false
}
