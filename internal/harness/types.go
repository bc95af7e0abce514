package harness

import "github.com/roach88/msglog/internal/ir"

// Trace event types.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
)

// TraceEvent is one invocation or completion as recorded by the runtime.
type TraceEvent struct {
	Type    string      `json:"type"` // "invocation" or "completion"
	Method  string      `json:"method,omitempty"`
	Args    ir.IRObject `json:"args,omitempty"`
	Outcome string      `json:"outcome,omitempty"`
	Result  ir.IRObject `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
	Seq     int64       `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// RunID identifies this execution in logs. It is not part of golden
	// traces.
	RunID string `json:"run_id"`

	// Trace holds invocations and completions in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one line per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Messages is the store length after the last step.
	Messages uint64 `json:"messages"`
}

// NewResult creates a passing result with an empty trace.
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

// AddInvocationTrace appends an invocation event.
func (r *Result) AddInvocationTrace(inv ir.Invocation) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventInvocation,
		Method: inv.Method,
		Args:   inv.Args,
		Seq:    inv.Seq,
	})
}

// AddCompletionTrace appends a completion event.
func (r *Result) AddCompletionTrace(comp ir.Completion) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventCompletion,
		Outcome: string(comp.Outcome),
		Result:  comp.Result,
		Message: comp.Message,
		Seq:     comp.Seq,
	})
}
