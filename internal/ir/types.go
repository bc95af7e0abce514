package ir

// Outcome is the result case recorded on a completion: OutcomeSuccess or an
// abort code.
type Outcome string

// OutcomeSuccess marks an invocation that committed.
const OutcomeSuccess Outcome = "Success"

// Invocation is an invocation record in the log.
type Invocation struct {
	ID            string   `json:"id"` // Content-addressed hash
	Method        string   `json:"method"`
	Args          IRObject `json:"args"`
	Seq           int64    `json:"seq"` // Logical clock
	EngineVersion string   `json:"engine_version"`
	IRVersion     string   `json:"ir_version"`
}

// Completion is the single completion record for an invocation.
type Completion struct {
	ID           string   `json:"id"` // Content-addressed hash
	InvocationID string   `json:"invocation_id"`
	Outcome      Outcome  `json:"outcome"`
	Result       IRObject `json:"result"`
	Message      string   `json:"message,omitempty"` // Abort text; empty on success
	Seq          int64    `json:"seq"`
}

// Succeeded reports whether the completion committed.
func (c Completion) Succeeded() bool {
	return c.Outcome == OutcomeSuccess
}
