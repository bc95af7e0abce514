// Package ir provides the canonical value types and record types shared by the
// runtime, the invocation log and the harness.
//
// ir imports nothing internal, so every other package can depend on it.
//
// Key design constraints:
//   - NO floats or nulls in argument and result objects (integers are int64)
//   - All JSON tags use snake_case
//   - Records are ordered by logical clock (seq), never wall-clock time
//   - Record IDs are content-addressed over RFC 8785 canonical JSON
package ir
