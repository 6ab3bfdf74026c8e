package retrieval

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/praxisnote/praxisnote/internal/ai"
	"github.com/praxisnote/praxisnote/internal/embedder"
	"github.com/praxisnote/praxisnote/internal/metrics"
	"github.com/praxisnote/praxisnote/internal/model"
	"github.com/praxisnote/praxisnote/internal/notes"
	"github.com/praxisnote/praxisnote/internal/vectorstore"
)

// Interrogative openers suggest the caller wants one particular fact, so
// the similarity floor stays where they set it. Broad statements get a
// lowered floor to avoid empty results.
var interrogativePattern = regexp.MustCompile(`(?i)^\s*(¿\s*)?(what|when|why|how|which|who|where|did|does|was|were|qué|que|cuándo|cuando|por qué|cómo|como|quién|quien|dónde|donde)\b`)

// Config holds the ranking policy knobs. The general/specific boundary is
// a tunable heuristic, not a correctness requirement.
type Config struct {
	// GeneralMaxWords: queries with at most this many words and no
	// interrogative opener are classified general.
	GeneralMaxWords int
	// GeneralFloorDelta is subtracted from the caller's similarity floor
	// for general queries.
	GeneralFloorDelta float64
	// Fields searched per query. Defaults to the SOAP note fields.
	Fields []string
}

func (c *Config) applyDefaults() {
	if c.GeneralMaxWords == 0 {
		c.GeneralMaxWords = 6
	}
	if c.GeneralFloorDelta == 0 {
		c.GeneralFloorDelta = 0.10
	}
	if len(c.Fields) == 0 {
		c.Fields = model.EmbeddableNoteFields
	}
}

// Engine turns a clinical question into ranked citations. It owns all
// ranking and tie-break policy and is deterministic for identical inputs
// over identical store contents.
type Engine struct {
	embedder *embedder.Client
	store    vectorstore.Store
	source   notes.Source
	cfg      Config
}

func NewEngine(embedClient *embedder.Client, store vectorstore.Store, source notes.Source, cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{embedder: embedClient, store: store, source: source, cfg: cfg}
}

// Classify reports whether the query is "general". Exported for tests and
// diagnostics.
func (e *Engine) Classify(queryText string) bool {
	if interrogativePattern.MatchString(queryText) {
		return false
	}
	return len(strings.Fields(queryText)) <= e.cfg.GeneralMaxWords
}

// Retrieve embeds the query, searches the workspace's note fields and
// assembles deduplicated citations. Zero results is a valid outcome, not
// an error.
func (e *Engine) Retrieve(ctx context.Context, workspaceID, queryText, clientID string, maxResults int, minSimilarity float64) ([]model.Citation, error) {
	start := time.Now()
	defer func() {
		metrics.RetrievalLatency.Observe(time.Since(start).Seconds())
	}()
	if maxResults <= 0 {
		maxResults = 5
	}

	floor := minSimilarity
	general := e.Classify(queryText)
	if general {
		floor -= e.cfg.GeneralFloorDelta
		if floor < 0 {
			floor = 0
		}
	}

	vector, err := e.embedder.Embed(ctx, queryText, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}

	filters := vectorstore.SearchFilters{ClientID: clientID, FieldNames: e.cfg.Fields}
	// Over-fetch so per-owner dedupe still fills maxResults.
	limit := maxResults * len(e.cfg.Fields)
	hits, err := e.store.Search(ctx, workspaceID, vector, filters, limit, floor)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Debug("retrieval search done",
		zap.String("workspace_id", workspaceID),
		zap.Bool("general", general),
		zap.Float64("floor", floor),
		zap.Int("hits", len(hits)),
	)

	citations := e.assemble(ctx, workspaceID, hits, maxResults)
	return citations, nil
}

// assemble deduplicates hits per owner (keeping the best-scoring field),
// caps the list and resolves client display names.
func (e *Engine) assemble(ctx context.Context, workspaceID string, hits []vectorstore.SearchHit, maxResults int) []model.Citation {
	seen := make(map[string]bool, len(hits))
	citations := make([]model.Citation, 0, maxResults)
	citClients := make([]string, 0, maxResults)
	for _, hit := range hits {
		if seen[hit.OwnerID] {
			continue
		}
		seen[hit.OwnerID] = true
		sourceType := model.SourceTypeNote
		if !isNoteField(hit.FieldName) {
			sourceType = model.SourceTypeClient
		}
		citations = append(citations, model.Citation{
			SourceType: sourceType,
			SourceID:   hit.OwnerID,
			FieldName:  hit.FieldName,
			Similarity: hit.Similarity,
			Timestamp:  hit.Ctime,
		})
		citClients = append(citClients, hit.ClientID)
		if len(citations) >= maxResults {
			break
		}
	}
	var lookup []string
	for _, id := range citClients {
		if id != "" {
			lookup = append(lookup, id)
		}
	}
	if e.source != nil && len(lookup) > 0 {
		names, err := e.source.ClientNames(ctx, workspaceID, lookup)
		if err != nil {
			// Display names are decoration; the citation stands without them.
			logutil.GetLogger(ctx).Warn("client name lookup failed", zap.Error(err))
		} else {
			for i := range citations {
				citations[i].OwnerName = names[citClients[i]]
			}
		}
	}
	return citations
}

func isNoteField(field string) bool {
	for _, f := range model.EmbeddableNoteFields {
		if f == field {
			return true
		}
	}
	return false
}
