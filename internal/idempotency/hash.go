package idempotency

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashRequest fingerprints a request payload as the hex BLAKE2b-256 digest of
// its JSON encoding. Struct fields encode in declaration order and map keys in
// sorted order, so equal payloads always hash equally.
func HashRequest(v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode request for hashing: %w", err)
	}
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}
