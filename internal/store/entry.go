package store

import (
	"fmt"

	"github.com/roach88/signalstore/internal/ir"
)

// Entry is one recorded step of a trace: an action and the state it produced.
type Entry struct {
	Session       string
	Seq           int64
	ActionID      string
	ActionType    string
	FeatureKey    string
	Action        []byte // canonical JSON
	State         []byte // canonical JSON
	StateHash     string
	EngineVersion string
	RecordVersion string
}

// NewEntry snapshots a and state into a trace entry.
func NewEntry(session string, a ir.Action, state any) (Entry, error) {
	actionJSON, err := ir.Snapshot(a)
	if err != nil {
		return Entry{}, fmt.Errorf("snapshot action %q: %w", a.Type, err)
	}
	stateJSON, err := ir.Snapshot(state)
	if err != nil {
		return Entry{}, fmt.Errorf("snapshot state after %q: %w", a.Type, err)
	}
	hash, err := ir.StateHash(state)
	if err != nil {
		return Entry{}, fmt.Errorf("hash state after %q: %w", a.Type, err)
	}

	return Entry{
		Session:       session,
		Seq:           a.Seq,
		ActionID:      a.ID,
		ActionType:    a.Type,
		FeatureKey:    a.Meta.FeatureKey,
		Action:        actionJSON,
		State:         stateJSON,
		StateHash:     hash,
		EngineVersion: ir.EngineVersion,
		RecordVersion: ir.RecordVersion,
	}, nil
}

// Session summarizes one recorded session.
type Session struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	LastSeq int64  `json:"last_seq"`
}
