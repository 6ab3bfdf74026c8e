package model

// QueryResult is the full answer payload returned by the assistant and
// cached in the query-result cache.
type QueryResult struct {
	Answer           string     `json:"answer"`
	Citations        []Citation `json:"citations"`
	Language         string     `json:"language"`
	RetrievedCount   int        `json:"retrieved_count"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
	CacheHit         bool       `json:"cache_hit"`
}
