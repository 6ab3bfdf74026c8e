package model

// Citation is a per-query projection over search hits. It is never persisted
// and never carries raw clinical text beyond the owning note's field name
// and display metadata.
type Citation struct {
	SourceType string  `json:"source_type"`
	SourceID   string  `json:"source_id"`
	OwnerName  string  `json:"owner_display_name"`
	FieldName  string  `json:"field_name"`
	Similarity float64 `json:"similarity_score"`
	Timestamp  int64   `json:"timestamp"`
}

const (
	SourceTypeNote   = "note"
	SourceTypeClient = "client"
)
