package embedder

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize canonicalizes query/field text before hashing or embedding:
// trim, case-fold, collapse internal whitespace. Cache keys and embeddings
// are computed over the normalized form so trivially different spellings of
// the same question share entries.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(text))), " ")
}

// CacheKey builds the embedding cache key: embedding:{sha256(normalized)}.
func CacheKey(normalized string) string {
	hash := sha256.Sum256([]byte(normalized))
	return "embedding:" + hex.EncodeToString(hash[:])
}
