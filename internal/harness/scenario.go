package harness

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/msglog/internal/runtime"
)

// Scenario is a scripted sequence of invocations against a fresh store,
// followed by assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps run in order, each as one invocation.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	// Supported types: message_count, message_at, outcome_count, replay_consistent
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run identifier. When empty a UUIDv7 is
	// generated.
	RunID string `yaml:"run_id,omitempty"`
}

// Step invokes one method.
type Step struct {
	// Invoke is the method name (add, get, get_multiple).
	Invoke string `yaml:"invoke"`

	// Args are the method arguments. Message bytes are base64 strings.
	Args map[string]any `yaml:"args"`

	// Payload, when set, fills args.message for add from a friendlier
	// encoding.
	Payload *Payload `yaml:"payload,omitempty"`

	// Expect validates the completion. When nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected completion.
type ExpectClause struct {
	// Case is the expected outcome: "Success" or an abort code.
	Case string `yaml:"case"`

	// Result is matched exactly against the completion result when set.
	Result map[string]any `yaml:"result,omitempty"`

	// Message is matched against the abort message when set.
	Message string `yaml:"message,omitempty"`
}

// Payload describes message bytes. Exactly one form must be set.
type Payload struct {
	Text   string `yaml:"text,omitempty"`
	Hex    string `yaml:"hex,omitempty"`
	Base64 string `yaml:"base64,omitempty"`
	Size   int    `yaml:"size,omitempty"` // Size bytes of Fill
	Fill   int    `yaml:"fill,omitempty"`
}

// Bytes decodes the payload.
func (p *Payload) Bytes() ([]byte, error) {
	set := 0
	for _, ok := range []bool{p.Text != "", p.Hex != "", p.Base64 != "", p.Size > 0} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("payload needs exactly one of text, hex, base64, size")
	}

	switch {
	case p.Text != "":
		return []byte(p.Text), nil
	case p.Hex != "":
		b, err := hex.DecodeString(p.Hex)
		if err != nil {
			return nil, fmt.Errorf("payload hex: %w", err)
		}
		return b, nil
	case p.Base64 != "":
		b, err := base64.StdEncoding.DecodeString(p.Base64)
		if err != nil {
			return nil, fmt.Errorf("payload base64: %w", err)
		}
		return b, nil
	default:
		if p.Fill < 0 || p.Fill > 0xFF {
			return nil, fmt.Errorf("payload fill %d is not a byte", p.Fill)
		}
		return bytes.Repeat([]byte{byte(p.Fill)}, p.Size), nil
	}
}

// Assertion validates the final state or the log.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number (message_count, outcome_count).
	Count int `yaml:"count,omitempty"`

	// Index is the message position (message_at).
	Index uint64 `yaml:"index,omitempty"`

	// Payload is the expected message (message_at).
	Payload *Payload `yaml:"payload,omitempty"`

	// Outcome is the completion outcome to count (outcome_count).
	Outcome string `yaml:"outcome,omitempty"`
}

// Assertion type constants.
const (
	AssertMessageCount     = "message_count"
	AssertMessageAt        = "message_at"
	AssertOutcomeCount     = "outcome_count"
	AssertReplayConsistent = "replay_consistent"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Invoke == "" {
			return fmt.Errorf("steps[%d]: invoke is required", i)
		}
		if step.Payload != nil {
			if step.Invoke != runtime.MethodAdd {
				return fmt.Errorf("steps[%d]: payload is only valid for %s", i, runtime.MethodAdd)
			}
			if _, ok := step.Args[runtime.ArgMessage]; ok {
				return fmt.Errorf("steps[%d]: payload and args.message are mutually exclusive", i)
			}
			if _, err := step.Payload.Bytes(); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("steps[%d].expect: case is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertMessageCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for message_count", index)
		}
	case AssertMessageAt:
		if a.Payload == nil {
			return fmt.Errorf("assertions[%d]: payload is required for message_at", index)
		}
		if _, err := a.Payload.Bytes(); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for outcome_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for outcome_count", index)
		}
	case AssertReplayConsistent:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
