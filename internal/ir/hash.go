package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainAction = "signalstore/action/v1"
	DomainState  = "signalstore/state/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ActionID computes the identity of a dispatched action from its store
// instance, logical sequence number and type. Two dispatches never share an
// ID within one store because seq is strictly increasing.
func ActionID(storeID string, seq int64, actionType string) string {
	data := []byte(storeID + "\x00" + strconv.FormatInt(seq, 10) + "\x00" + actionType)
	return hashWithDomain(DomainAction, data)[:16]
}

// StateHash computes a stable hash of any JSON-encodable state value.
// Equal states hash identically regardless of map iteration order.
func StateHash(state any) (string, error) {
	canonical, err := Snapshot(state)
	if err != nil {
		return "", fmt.Errorf("StateHash: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// MustStateHash is like StateHash but panics on error.
// Use only in tests or when the state is known to be encodable.
func MustStateHash(state any) string {
	h, err := StateHash(state)
	if err != nil {
		panic(err)
	}
	return h
}
