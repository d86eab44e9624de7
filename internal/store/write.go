package store

import (
	"context"
	"fmt"
)

// Record appends e to its session.
// Uses ON CONFLICT DO NOTHING for idempotency: recording the same (session,
// seq) twice keeps the first entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Session == "" {
		return fmt.Errorf("record: session is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trace_entries
		(session, seq, action_id, action_type, feature_key, action, state, state_hash, engine_version, record_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`,
		e.Session,
		e.Seq,
		e.ActionID,
		e.ActionType,
		e.FeatureKey,
		string(e.Action),
		string(e.State),
		e.StateHash,
		e.EngineVersion,
		e.RecordVersion,
	)
	if err != nil {
		return fmt.Errorf("record entry seq=%d: %w", e.Seq, err)
	}
	return nil
}

// DeleteSession removes every entry of session.
func (s *Store) DeleteSession(ctx context.Context, session string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM trace_entries WHERE session = ?`, session); err != nil {
		return fmt.Errorf("delete session %q: %w", session, err)
	}
	return nil
}
