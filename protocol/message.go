package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/ThinkInAIXYZ/ba-agent/pkg"
)

// Call is a method name plus its argument mapping. Outbound calls waiting in
// the offline buffer are Calls, and so is every decoded inbound payload.
type Call struct {
	Method Method
	Args   map[string]any
}

func NewCall(method Method, args map[string]any) *Call {
	if args == nil {
		args = map[string]any{}
	}
	return &Call{Method: method, Args: args}
}

// Encode renders the call as the `[method, {args}]` frame the remote side expects.
func (c *Call) Encode() ([]byte, error) {
	b, err := json.Marshal([]any{c.Method, c.Args})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.Method, err)
	}
	return b, nil
}

// InboundCall is a decoded frame received from the remote side.
type InboundCall struct {
	Call
	raw gjson.Result
}

// Get reads a single argument by gjson path.
func (c *InboundCall) Get(path string) gjson.Result {
	return c.raw.Get(path)
}

func Decode(frame []byte) (*InboundCall, error) {
	if !gjson.ValidBytes(frame) {
		return nil, fmt.Errorf("%w: invalid json", pkg.ErrMalformedMessage)
	}
	root := gjson.ParseBytes(frame)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: frame is not an array", pkg.ErrMalformedMessage)
	}

	method := root.Get("0")
	if method.Type != gjson.String || method.String() == "" {
		return nil, fmt.Errorf("%w: missing method name", pkg.ErrMalformedMessage)
	}

	call := &InboundCall{Call: Call{Method: Method(method.String()), Args: map[string]any{}}}

	args := root.Get("1")
	if !args.Exists() {
		return call, nil
	}
	if !args.IsObject() {
		return nil, fmt.Errorf("%w: arguments of %s are not a mapping", pkg.ErrMalformedMessage, call.Method)
	}
	if m, ok := args.Value().(map[string]any); ok {
		call.Args = m
	}
	call.raw = args
	return call, nil
}
