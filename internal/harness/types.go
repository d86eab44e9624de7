package harness

// TraceEvent is one published action of a scenario run.
type TraceEvent struct {
	Seq        int64  `json:"seq"`
	Type       string `json:"type"`
	FeatureKey string `json:"feature_key,omitempty"`
	StateHash  string `json:"state_hash"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists published actions in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation or step.
	Errors []string `json:"errors,omitempty"`

	// Final is the observable end state: count, todo_ids and cart_total.
	Final Final `json:"final"`
}

// Final is the summary of the end state that expectations check.
type Final struct {
	Count     int      `json:"count"`
	TodoIDs   []string `json:"todo_ids"`
	CartTotal float64  `json:"cart_total"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  Final{TodoIDs: []string{}},
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Types returns the action types of the trace in order.
func (r *Result) Types() []string {
	types := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		types[i] = e.Type
	}
	return types
}
