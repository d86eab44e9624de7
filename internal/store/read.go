package store

import (
	"context"
	"database/sql"
	"fmt"
)

const selectEntry = `
	SELECT session, seq, action_id, action_type, feature_key, action, state, state_hash, engine_version, record_version
	FROM trace_entries`

// ReadSession returns every entry of session ordered by seq ASC.
//
// Returns an empty slice (not nil) if the session has no entries.
func (s *Store) ReadSession(ctx context.Context, session string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+`
		WHERE session = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query session %q: %w", session, err)
	}
	return scanEntries(rows)
}

// ReadFeature returns the entries of session whose action targeted featureKey.
func (s *Store) ReadFeature(ctx context.Context, session, featureKey string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+`
		WHERE session = ? AND feature_key = ?
		ORDER BY seq ASC
	`, session, featureKey)
	if err != nil {
		return nil, fmt.Errorf("query feature %q: %w", featureKey, err)
	}
	return scanEntries(rows)
}

// ListSessions returns a summary of every recorded session ordered by name.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, COUNT(*), MAX(seq)
		FROM trace_entries
		GROUP BY session
		ORDER BY session COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.Name, &sess.Entries, &sess.LastSeq); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// GetLastSeq returns the highest recorded seq of session, or 0 if it is empty.
func (s *Store) GetLastSeq(ctx context.Context, session string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM trace_entries WHERE session = ?`, session,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e             Entry
			action, state string
		)
		if err := rows.Scan(
			&e.Session,
			&e.Seq,
			&e.ActionID,
			&e.ActionType,
			&e.FeatureKey,
			&action,
			&state,
			&e.StateHash,
			&e.EngineVersion,
			&e.RecordVersion,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Action = []byte(action)
		e.State = []byte(state)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
