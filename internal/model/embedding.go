package model

// EmbeddingRecord is one stored vector row. Rows are immutable: when source
// text changes the old rows for owner+field are deleted and new ones
// inserted in the same transaction.
type EmbeddingRecord struct {
	ID          int64     `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	OwnerID     string    `json:"owner_id"`
	ClientID    string    `json:"client_id"`
	FieldName   string    `json:"field_name"`
	Embedding   []float32 `json:"embedding"`
	ContentHash string    `json:"content_hash"`
	Ctime       int64     `json:"ctime"`
}
