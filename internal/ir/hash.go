package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm migration.
const (
	DomainInvocation = "msglog/invocation/v1"
	DomainCompletion = "msglog/completion/v1"
	DomainState      = "msglog/state/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InvocationID computes the content-addressed ID of an invocation.
// Stable across restarts and replays given the same inputs.
func InvocationID(method string, args IRObject, seq int64) (string, error) {
	obj := IRObject{
		"method": IRString(method),
		"args":   args,
		"seq":    IRInt(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("InvocationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainInvocation, canonical), nil
}

// CompletionID computes the content-addressed ID of a completion.
// Links to the invocation it completes via invocationID.
func CompletionID(invocationID string, outcome Outcome, result IRObject, seq int64) (string, error) {
	obj := IRObject{
		"invocation_id": IRString(invocationID),
		"outcome":       IRString(outcome),
		"result":        result,
		"seq":           IRInt(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CompletionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCompletion, canonical), nil
}

// StateDigest hashes an encoded state blob for reporting and comparison.
func StateDigest(encoded []byte) string {
	return hashWithDomain(DomainState, encoded)
}
