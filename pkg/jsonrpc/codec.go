package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBatchUnsupported is returned by DecodeFrame for JSON arrays.
var ErrBatchUnsupported = errors.New("jsonrpc: batch frames are not supported")

// ErrNotObject is returned by DecodeFrame for valid JSON that is not an object.
var ErrNotObject = errors.New("jsonrpc: frame is not a JSON object")

// DecodeFrame parses one inbound message.
func DecodeFrame(data []byte) (*Frame, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("jsonrpc: empty frame")
	}
	switch trimmed[0] {
	case '{':
	case '[':
		return nil, ErrBatchUnsupported
	default:
		if json.Valid(trimmed) {
			return nil, ErrNotObject
		}
		return nil, fmt.Errorf("jsonrpc: invalid frame: %w", json.Unmarshal(trimmed, new(any)))
	}

	var f Frame
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, fmt.Errorf("jsonrpc: invalid frame: %w", err)
	}
	return &f, nil
}

// Encode serializes any envelope.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: encode: %w", err)
	}
	return data, nil
}

// DecodeRequest parses an inbound request, rejecting envelopes that are not
// JSON-RPC 2.0 or lack a method. Servers use it; the client never does.
func DecodeRequest(data []byte) (*Frame, *Error) {
	f, err := DecodeFrame(data)
	if err != nil {
		return nil, NewErrorWithMessage(CodeParseError, "Parse error: "+err.Error())
	}
	if f.JSONRPC != Version {
		return nil, NewErrorWithMessage(CodeInvalidRequest, `Invalid request: jsonrpc must be "2.0"`)
	}
	if f.Method == "" {
		return nil, NewErrorWithMessage(CodeInvalidRequest, "Invalid request: method is required")
	}
	return f, nil
}

// UnmarshalResult decodes a call result into T. An empty or null result
// yields the zero value.
func UnmarshalResult[T any](result json.RawMessage) (T, error) {
	var out T
	trimmed := bytes.TrimSpace(result)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return out, fmt.Errorf("jsonrpc: decode result: %w", err)
	}
	return out, nil
}
