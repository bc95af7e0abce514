package runtime

import (
	"encoding/base64"
	"math"
	"slices"
	"strconv"

	"github.com/roach88/msglog/internal/ir"
	"github.com/roach88/msglog/internal/messages"
)

// Method names of the public interface.
const (
	MethodAdd         = "add"
	MethodGet         = "get"
	MethodGetMultiple = "get_multiple"
)

// Argument and result field names.
const (
	ArgMessage    = "message"
	ArgIndex      = "index"
	ArgStartIndex = "start_index"
	ArgCount      = "count"

	ResultIndex    = "index"
	ResultMessage  = "message"
	ResultMessages = "messages"
)

// method binds a name to its argument schema and operation.
// Only mutating methods cause a state write.
type method struct {
	mutates bool
	params  []string
	run     func(s *messages.Store, args ir.IRObject) (ir.IRObject, error)
}

var methods = map[string]method{
	MethodAdd: {
		mutates: true,
		params:  []string{ArgMessage},
		run:     runAdd,
	},
	MethodGet: {
		params: []string{ArgIndex},
		run:    runGet,
	},
	MethodGetMultiple: {
		params: []string{ArgStartIndex, ArgCount},
		run:    runGetMultiple,
	},
}

// Methods returns the supported method names in sorted order.
func Methods() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// dispatch runs method against s. Errors are always *InvocationError.
func dispatch(s *messages.Store, name string, args ir.IRObject) (result ir.IRObject, mutates bool, err error) {
	m, ok := methods[name]
	if !ok {
		return nil, false, newUnknownMethod(name)
	}
	for key := range args {
		if !slices.Contains(m.params, key) {
			return nil, false, newInvalidArgs(name, "unexpected argument %q", key)
		}
	}

	result, err = m.run(s, args)
	if err != nil {
		if abort := abortFromStore(name, err); abort != nil {
			return nil, false, abort
		}
		return nil, false, err
	}
	return result, m.mutates, nil
}

func runAdd(s *messages.Store, args ir.IRObject) (ir.IRObject, error) {
	msg, err := bytesArg(MethodAdd, args, ArgMessage)
	if err != nil {
		return nil, err
	}
	index, err := s.Append(msg)
	if err != nil {
		return nil, err
	}
	return ir.IRObject{ResultIndex: UintValue(index)}, nil
}

func runGet(s *messages.Store, args ir.IRObject) (ir.IRObject, error) {
	index, err := uintArg(MethodGet, args, ArgIndex)
	if err != nil {
		return nil, err
	}
	msg, err := s.Get(index)
	if err != nil {
		return nil, err
	}
	return ir.IRObject{ResultMessage: BytesValue(msg)}, nil
}

func runGetMultiple(s *messages.Store, args ir.IRObject) (ir.IRObject, error) {
	start, err := uintArg(MethodGetMultiple, args, ArgStartIndex)
	if err != nil {
		return nil, err
	}
	count, err := uintArg(MethodGetMultiple, args, ArgCount)
	if err != nil {
		return nil, err
	}
	msgs, err := s.GetMultiple(start, count)
	if err != nil {
		return nil, err
	}
	out := make(ir.IRArray, len(msgs))
	for i, m := range msgs {
		out[i] = BytesValue(m)
	}
	return ir.IRObject{ResultMessages: out}, nil
}

// BytesValue encodes a byte buffer as an argument or result value
// (standard base64).
func BytesValue(b []byte) ir.IRString {
	return ir.IRString(base64.StdEncoding.EncodeToString(b))
}

// UintValue encodes an unsigned integer as an argument or result value.
// Values above math.MaxInt64 do not fit an IRInt and are carried as decimal
// strings.
func UintValue(n uint64) ir.IRValue {
	if n > math.MaxInt64 {
		return ir.IRString(strconv.FormatUint(n, 10))
	}
	return ir.IRInt(n)
}

// DecodeBytes reverses BytesValue.
func DecodeBytes(v ir.IRValue) ([]byte, bool) {
	s, ok := v.(ir.IRString)
	if !ok {
		return nil, false
	}
	b, err := base64.StdEncoding.DecodeString(string(s))
	if err != nil {
		return nil, false
	}
	return b, true
}

// DecodeUint reverses UintValue. Negative integers and malformed strings
// are rejected.
func DecodeUint(v ir.IRValue) (uint64, bool) {
	switch val := v.(type) {
	case ir.IRInt:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	case ir.IRString:
		n, err := strconv.ParseUint(string(val), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func bytesArg(method string, args ir.IRObject, key string) ([]byte, error) {
	v, ok := args[key]
	if !ok {
		return nil, newInvalidArgs(method, "missing argument %q", key)
	}
	b, ok := DecodeBytes(v)
	if !ok {
		return nil, newInvalidArgs(method, "argument %q must be a base64 string", key)
	}
	return b, nil
}

func uintArg(method string, args ir.IRObject, key string) (uint64, error) {
	v, ok := args[key]
	if !ok {
		return 0, newInvalidArgs(method, "missing argument %q", key)
	}
	n, ok := DecodeUint(v)
	if !ok {
		return 0, newInvalidArgs(method, "argument %q must be a non-negative integer", key)
	}
	return n, nil
}
