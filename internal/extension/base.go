package extension

import "github.com/roach88/signalstore/internal/engine"

// Extension identifiers.
const (
	LoggerID         engine.ExtensionID = "logger"
	ImmutableStateID engine.ExtensionID = "immutable-state"
	UndoID           engine.ExtensionID = "undo"
	DevToolsID       engine.ExtensionID = "devtools"
	MetricsID        engine.ExtensionID = "metrics"
)

// base implements the identity half of engine.Extension.
type base struct {
	id    engine.ExtensionID
	order int
}

func newBase(id engine.ExtensionID, order int) base {
	return base{id: id, order: order}
}

// ID returns the extension identifier.
func (b base) ID() engine.ExtensionID { return b.id }

// SortOrder returns the pipeline position.
func (b base) SortOrder() int { return b.order }
