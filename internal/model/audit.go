package model

// AuditEvent describes a completed or failed assistant query. It must never
// contain the query text or the answer text.
type AuditEvent struct {
	WorkspaceID   string `json:"workspace_id"`
	UserID        string `json:"user_id,omitempty"`
	EventType     string `json:"event_type"`
	QueryLength   int    `json:"query_length"`
	Language      string `json:"language"`
	RetrievedCnt  int    `json:"retrieved_count"`
	CitationCnt   int    `json:"citation_count"`
	Outcome       string `json:"outcome"`
	EventTimeUnix int64  `json:"event_time"`
}

const (
	AuditEventQuery = "agent.query"

	OutcomeOK          = "ok"
	OutcomeCacheHit    = "cache_hit"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)
