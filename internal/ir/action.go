package ir

import (
	"encoding/json"
	"strings"
)

// Namespace prefixes every store-internal action type.
const Namespace = "@signalstore"

// Kind classifies an action by the part of the store that produced it.
type Kind int

const (
	// KindUser is an application-defined action dispatched directly.
	KindUser Kind = iota
	// KindInit initializes the whole store or a single feature.
	KindInit
	// KindDestroy announces removal of a feature.
	KindDestroy
	// KindSetState carries a new slice value for one feature instance.
	KindSetState
	// KindUndo references a previously dispatched set-state action.
	KindUndo
)

// String returns the operation name used in action types.
func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindDestroy:
		return "destroy"
	case KindSetState:
		return "set-state"
	case KindUndo:
		return "undo"
	default:
		return "user"
	}
}

// SetStateType identifies which façade produced a set-state action.
type SetStateType string

const (
	// SetStateFeature marks set-state actions from a FeatureStore.
	SetStateFeature SetStateType = "feature-store"
	// SetStateComponent marks set-state actions from a ComponentStore.
	SetStateComponent SetStateType = "component-store"
)

// Meta carries routing information for lifecycle actions.
// User actions normally leave it zero.
type Meta struct {
	Kind         Kind         `json:"kind"`
	FeatureID    string       `json:"feature_id,omitempty"`
	FeatureKey   string       `json:"feature_key,omitempty"`
	SetStateType SetStateType `json:"set_state_type,omitempty"`
	Name         string       `json:"name,omitempty"`
}

// Action is an immutable record describing one intended state transition.
//
// ID and Seq are assigned by the store when the action is dispatched; callers
// construct actions with zero values for both.
type Action struct {
	ID      string `json:"id,omitempty"`
	Seq     int64  `json:"seq,omitempty"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Meta    Meta   `json:"meta"`
}

// SetStatePayload is the payload of a set-state action. Exactly one of Value
// or Updater is meaningful: when Updater is non-nil it is applied to the
// current slice at reduction time, otherwise Value replaces the slice.
type SetStatePayload struct {
	Value   any
	Updater func(current any) any
}

// Resolve computes the new slice value from the current one.
func (p SetStatePayload) Resolve(current any) any {
	if p.Updater != nil {
		return p.Updater(current)
	}
	return p.Value
}

// MarshalJSON renders the literal value, or a marker for updater functions
// which have no serializable form.
func (p SetStatePayload) MarshalJSON() ([]byte, error) {
	if p.Updater != nil {
		return json.Marshal("<updater>")
	}
	return json.Marshal(p.Value)
}

// NewAction creates a user action.
func NewAction(actionType string, payload any) Action {
	return Action{Type: actionType, Payload: payload, Meta: Meta{Kind: KindUser}}
}

// ActionType renders the devtools-readable type of a store-internal action:
//
//	"@signalstore/<featureKey>/<operation>[/<name>]"
//
// An empty featureKey yields "@signalstore/<operation>".
func ActionType(kind Kind, featureKey, name string) string {
	var b strings.Builder
	b.WriteString(Namespace)
	b.WriteByte('/')
	if featureKey != "" {
		b.WriteString(featureKey)
		b.WriteByte('/')
	}
	b.WriteString(kind.String())
	if name != "" {
		b.WriteByte('/')
		b.WriteString(name)
	}
	return b.String()
}

// InitAction creates the init action for the whole store (featureKey == "")
// or for a single feature.
func InitAction(featureKey string) Action {
	return Action{
		Type: ActionType(KindInit, featureKey, ""),
		Meta: Meta{Kind: KindInit, FeatureKey: featureKey},
	}
}

// DestroyAction creates the destroy action for a feature.
func DestroyAction(featureKey string) Action {
	return Action{
		Type: ActionType(KindDestroy, featureKey, ""),
		Meta: Meta{Kind: KindDestroy, FeatureKey: featureKey},
	}
}

// SetStateAction creates a set-state action scoped to one feature instance.
func SetStateAction(t SetStateType, featureID, featureKey, name string, payload SetStatePayload) Action {
	return Action{
		Type:    ActionType(KindSetState, featureKey, name),
		Payload: payload,
		Meta: Meta{
			Kind:         KindSetState,
			FeatureID:    featureID,
			FeatureKey:   featureKey,
			SetStateType: t,
			Name:         name,
		},
	}
}

// UndoAction creates an undo action referencing a dispatched set-state action.
// The referenced action is carried as the payload.
func UndoAction(target Action) Action {
	return Action{
		Type:    ActionType(KindUndo, target.Meta.FeatureKey, ""),
		Payload: target,
		Meta: Meta{
			Kind:       KindUndo,
			FeatureID:  target.Meta.FeatureID,
			FeatureKey: target.Meta.FeatureKey,
		},
	}
}

// IsSetStateFor reports whether a is a set-state action addressed to featureID.
func (a Action) IsSetStateFor(featureID string) bool {
	return a.Meta.Kind == KindSetState && a.Meta.FeatureID == featureID
}

// UndoTarget returns the action referenced by an undo action.
func (a Action) UndoTarget() (Action, bool) {
	if a.Meta.Kind != KindUndo {
		return Action{}, false
	}
	target, ok := a.Payload.(Action)
	return target, ok
}

// IsLifecycle reports whether a belongs to the reserved namespace.
func (a Action) IsLifecycle() bool {
	return a.Meta.Kind != KindUser
}

// OfType returns a predicate accepting actions whose type is one of types.
func OfType(types ...string) func(Action) bool {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(a Action) bool {
		_, ok := set[a.Type]
		return ok
	}
}
