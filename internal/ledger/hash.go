package ledger

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// HashRecord computes the content hash anchored alongside a record link.
// BLAKE2b-256, hex-encoded; the ledger stores the digest, never the content.
func HashRecord(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}
