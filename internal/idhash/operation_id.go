package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
)

// ComputeOperationID computes a deterministic operation_id using SHA256.
// Formula: SHA256(kind|wallet|mint|signature|nonce|timestamp_ms)
// Returns hex-encoded hash (64 characters).
//
// Failed submissions carry no signature, so callers pass a fresh nonce per
// attempt to keep two failures in the same millisecond distinct.
func ComputeOperationID(
	kind domain.OperationKind,
	wallet string,
	mint string,
	signature string,
	nonce string,
	timestampMs int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%d",
		string(kind),
		wallet,
		mint,
		signature,
		nonce,
		timestampMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
