package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Digest returns the lowercase hex SHA-256 of s. Every on-disk name in the
// store is derived from one of these, so two logical inputs mapping to the
// same digest would be a correctness violation, not something to tolerate.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ArticleFilename computes the content-addressed filename for an article.
// The five identity fields are joined with an unambiguous separator before
// hashing; write-time and read-time callers must pass the exact same values
// for the names to agree.
func ArticleFilename(feedName, feedURL, title, link, timestamp string) string {
	input := strings.Join([]string{feedName, feedURL, title, link, timestamp}, "|")
	return Digest(input) + ".md"
}

// AssetFilename computes the cache filename for a remote asset. The digest
// covers the raw URL string; ext is the already-resolved extension (without
// a leading dot).
func AssetFilename(url, ext string) string {
	return Digest(url) + "." + ext
}
