// Package harness runs YAML scenarios against the message store runtime.
//
// # Scenario Format
//
//	name: append_then_get
//	description: "Appended messages are readable by index"
//	steps:
//	  - invoke: add
//	    args: { message: "AQEB" }       # base64 of [1,1,1]
//	    expect:
//	      case: Success
//	      result: { index: 0 }
//	  - invoke: add
//	    payload: { size: 1025 }         # 1025 zero bytes
//	    expect:
//	      case: MESSAGE_TOO_LARGE
//	assertions:
//	  - type: message_count
//	    count: 1
//	  - type: message_at
//	    index: 0
//	    payload: { hex: "010101" }
//
// A step without expect must succeed. Result matching is exact.
//
// # Assertion Types
//
//   - message_count: the final store holds exactly count messages
//   - message_at: the message at index equals payload
//   - outcome_count: exactly count completions have the given outcome
//   - replay_consistent: replaying the log reproduces every completion and
//     the persisted state
//
// # Deterministic Testing
//
// Every scenario gets its own in-memory SQLite database and a
// testutil.DeterministicClock, so seqs and content-addressed IDs repeat
// exactly. Golden traces (testdata/golden) are compared with goldie.
package harness
