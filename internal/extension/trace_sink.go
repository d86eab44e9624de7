package extension

import (
	"context"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
	"github.com/roach88/signalstore/internal/store"
)

// TraceSink records every delivery into a SQLite trace session.
type TraceSink struct {
	db      *store.Store
	session string
}

// NewTraceSink creates a sink appending to session in db.
func NewTraceSink(db *store.Store, session string) *TraceSink {
	return &TraceSink{db: db, session: session}
}

// Session returns the session name.
func (t *TraceSink) Session() string {
	return t.session
}

// Send snapshots a and state and records them.
func (t *TraceSink) Send(ctx context.Context, a ir.Action, state engine.AppState) error {
	entry, err := store.NewEntry(t.session, a, state)
	if err != nil {
		return err
	}
	return t.db.Record(ctx, entry)
}
