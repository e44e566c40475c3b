package crawler

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// HashText returns the hex encoded SHA3-256 hash of a page text.
// Stored with each thread, it shows whether a threadmarks page changed
// between two runs.
func HashText(text string) string {
	sum := sha3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
