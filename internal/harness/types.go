package harness

// TraceEvent is one write or query performed while running a scenario.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Op     string `json:"op"` // "node", "edge", "connect" or "query"
	Handle string `json:"handle,omitempty"`
	Schema string `json:"schema,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// QueryOutcome is what a query assertion returned.
type QueryOutcome struct {
	Name    string   `json:"name"`
	Handles []string `json:"handles"`
	Error   string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Trace   []TraceEvent   `json:"trace"`
	Queries []QueryOutcome `json:"queries,omitempty"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult returns a passing, empty result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) record(op, handle, schema, detail string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    len(r.Trace) + 1,
		Op:     op,
		Handle: handle,
		Schema: schema,
		Detail: detail,
	})
}
