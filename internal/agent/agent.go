package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/praxisnote/praxisnote/internal/ai"
	"github.com/praxisnote/praxisnote/internal/audit"
	"github.com/praxisnote/praxisnote/internal/cache"
	"github.com/praxisnote/praxisnote/internal/embedder"
	"github.com/praxisnote/praxisnote/internal/metrics"
	"github.com/praxisnote/praxisnote/internal/model"
	"github.com/praxisnote/praxisnote/internal/notes"
	pkgerrors "github.com/praxisnote/praxisnote/internal/pkg/errors"
	"github.com/praxisnote/praxisnote/internal/resilience"
	"github.com/praxisnote/praxisnote/internal/retrieval"
	"github.com/praxisnote/praxisnote/internal/safety"
)

// ErrSynthesisUnavailable is returned when the generative provider is down:
// exhausted retries, open breaker, or per-call timeout.
var ErrSynthesisUnavailable = errors.New("synthesis provider unavailable")

const synthesisEndpoint = "synthesis"

type Config struct {
	// MaxResults caps citations per answer. Default: 5
	MaxResults int
	// MinSimilarity is the retrieval floor. Default: 0.3
	MinSimilarity float64
	// QueryTimeout bounds one whole query. Default: 30s
	QueryTimeout time.Duration
	// SynthesisTimeout bounds each generative attempt; it must be shorter
	// than QueryTimeout. Default: 20s
	SynthesisTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxResults <= 0 {
		c.MaxResults = 5
	}
	if c.MinSimilarity == 0 {
		c.MinSimilarity = 0.3
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 30 * time.Second
	}
	if c.SynthesisTimeout <= 0 {
		c.SynthesisTimeout = 20 * time.Second
	}
}

// Request is one assistant query. WorkspaceID and Text are required;
// ClientID narrows retrieval to one client. MinSimilarity is a pointer so
// an explicit 0.0 floor is distinguishable from "use the configured one".
type Request struct {
	WorkspaceID   string
	Text          string
	UserID        string
	ClientID      string
	MaxResults    int
	MinSimilarity *float64
}

// Agent runs the per-query pipeline: answer-cache lookup, input validation,
// retrieval, synthesis, output redaction, cache store, audit. It holds no
// per-query state, so one instance serves all requests concurrently.
type Agent struct {
	filter    *safety.Filter
	engine    *retrieval.Engine
	generator ai.IGenerator
	wrapper   *resilience.Wrapper
	results   *cache.QueryCache
	source    notes.Source
	auditor   audit.Emitter
	cfg       Config
}

func New(filter *safety.Filter, engine *retrieval.Engine, generator ai.IGenerator,
	wrapper *resilience.Wrapper, results *cache.QueryCache, source notes.Source,
	auditor audit.Emitter, cfg Config) *Agent {
	cfg.applyDefaults()
	return &Agent{
		filter:    filter,
		engine:    engine,
		generator: generator,
		wrapper:   wrapper,
		results:   results,
		source:    source,
		auditor:   auditor,
		cfg:       cfg,
	}
}

// Query answers one clinical question. It completes or fails within
// cfg.QueryTimeout.
func (a *Agent) Query(ctx context.Context, req *Request) (*model.QueryResult, error) {
	start := time.Now()
	if req == nil || req.WorkspaceID == "" {
		return nil, fmt.Errorf("%w: workspace_id is required", pkgerrors.ErrInvalid)
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.QueryTimeout)
	defer cancel()

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = a.cfg.MaxResults
	}
	minSimilarity := a.cfg.MinSimilarity
	if req.MinSimilarity != nil {
		minSimilarity = *req.MinSimilarity
	}

	key := cache.ResultKey(req.WorkspaceID, embedder.Normalize(req.Text), req.ClientID)
	if cached, ok := a.results.Get(ctx, key); ok {
		cached.CacheHit = true
		cached.ProcessingTimeMs = time.Since(start).Milliseconds()
		a.emitAudit(ctx, req, cached.Language, cached.RetrievedCount, len(cached.Citations), model.OutcomeCacheHit)
		return cached, nil
	}

	clean, err := a.filter.ScanInput(req.Text)
	if err != nil {
		a.emitAudit(ctx, req, "", 0, 0, model.OutcomeInvalid)
		return nil, err
	}
	language := DetectLanguage(clean)

	citations, err := a.engine.Retrieve(ctx, req.WorkspaceID, clean, req.ClientID, maxResults, minSimilarity)
	if err != nil {
		a.emitAudit(ctx, req, language, 0, 0, outcomeForError(err))
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	excerpts, err := a.loadExcerpts(ctx, req.WorkspaceID, citations)
	if err != nil {
		a.emitAudit(ctx, req, language, len(citations), len(citations), model.OutcomeError)
		return nil, fmt.Errorf("load citation text: %w", err)
	}

	answer, err := a.synthesize(ctx, clean, language, excerpts)
	if err != nil {
		a.emitAudit(ctx, req, language, len(citations), len(citations), model.OutcomeUnavailable)
		return nil, err
	}

	result := &model.QueryResult{
		Answer:           a.filter.RedactOutput(strings.TrimSpace(answer)),
		Citations:        citations,
		Language:         language,
		RetrievedCount:   len(citations),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	ownerIDs := make([]string, 0, len(citations)+1)
	for _, c := range citations {
		ownerIDs = append(ownerIDs, c.SourceID)
	}
	if req.ClientID != "" {
		ownerIDs = append(ownerIDs, req.ClientID)
	}
	a.results.Put(ctx, key, req.WorkspaceID, ownerIDs, result)

	a.emitAudit(ctx, req, language, result.RetrievedCount, len(citations), model.OutcomeOK)
	return result, nil
}

// loadExcerpts resolves the plain text behind note citations for grounding.
// Citations whose note has vanished since retrieval are kept but contribute
// no excerpt.
func (a *Agent) loadExcerpts(ctx context.Context, workspaceID string, citations []model.Citation) ([]excerpt, error) {
	if len(citations) == 0 {
		return nil, nil
	}
	var noteIDs []string
	for _, c := range citations {
		if c.SourceType == model.SourceTypeNote {
			noteIDs = append(noteIDs, c.SourceID)
		}
	}
	byID := make(map[string]*model.Note, len(noteIDs))
	if a.source != nil && len(noteIDs) > 0 {
		loaded, err := a.source.NotesByID(ctx, workspaceID, noteIDs)
		if err != nil {
			return nil, err
		}
		for i := range loaded {
			byID[loaded[i].ID] = &loaded[i]
		}
	}
	var excerpts []excerpt
	for _, c := range citations {
		note := byID[c.SourceID]
		if note == nil {
			continue
		}
		text := notes.ExtractText(note.FieldText(c.FieldName))
		if text == "" {
			continue
		}
		excerpts = append(excerpts, excerpt{citation: c, text: text})
	}
	return excerpts, nil
}

func (a *Agent) synthesize(ctx context.Context, queryText, language string, excerpts []excerpt) (string, error) {
	prompt := buildPrompt(queryText, language, excerpts)
	begin := time.Now()
	answer, err := resilience.Call(ctx, a.wrapper, synthesisEndpoint, func(ctx context.Context) (string, error) {
		cctx, cancel := context.WithTimeout(ctx, a.cfg.SynthesisTimeout)
		defer cancel()
		return a.generator.Generate(cctx, prompt)
	})
	metrics.SynthesisLatency.Observe(time.Since(begin).Seconds())
	if err != nil {
		logutil.GetLogger(ctx).Warn("synthesis failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrSynthesisUnavailable, err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("%w: provider returned empty answer", ErrSynthesisUnavailable)
	}
	return answer, nil
}

func (a *Agent) emitAudit(ctx context.Context, req *Request, language string, retrieved, citationCnt int, outcome string) {
	if a.auditor == nil {
		return
	}
	a.auditor.Emit(ctx, &model.AuditEvent{
		WorkspaceID:   req.WorkspaceID,
		UserID:        req.UserID,
		EventType:     model.AuditEventQuery,
		QueryLength:   len(req.Text),
		Language:      language,
		RetrievedCnt:  retrieved,
		CitationCnt:   citationCnt,
		Outcome:       outcome,
		EventTimeUnix: time.Now().Unix(),
	})
}

func outcomeForError(err error) string {
	if errors.Is(err, embedder.ErrEmbeddingUnavailable) || errors.Is(err, resilience.ErrCircuitOpen) {
		return model.OutcomeUnavailable
	}
	if errors.Is(err, pkgerrors.ErrInvalid) {
		return model.OutcomeInvalid
	}
	return model.OutcomeError
}
