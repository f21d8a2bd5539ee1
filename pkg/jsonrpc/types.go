package jsonrpc

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Version is the protocol version carried by every envelope.
const Version = "2.0"

// Request is an outbound JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewRequest builds a request envelope. Nil params are sent as an empty
// object, which is what the chat server expects for parameterless methods.
func NewRequest(id, method string, params any) *Request {
	if params == nil {
		params = struct{}{}
	}
	return &Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// Notification is a JSON-RPC message without an id.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewNotification creates a notification envelope.
func NewNotification(method string, params any) *Notification {
	return &Notification{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
	}
}

// Response is a JSON-RPC 2.0 response. The client only decodes responses
// (see Frame); this type is used by servers, including the stub server.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Frame is any inbound JSON-RPC message.
type Frame struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// HasID reports whether the frame carries a non-null id.
func (f *Frame) HasID() bool {
	id := bytes.TrimSpace(f.ID)
	return len(id) > 0 && !bytes.Equal(id, []byte("null"))
}

// IDString returns the id in the form used as correlation key: the string
// value for string ids, the decimal text for numeric ids, "" otherwise.
func (f *Frame) IDString() string {
	if !f.HasID() {
		return ""
	}
	id := bytes.TrimSpace(f.ID)
	if id[0] == '"' {
		var s string
		if err := json.Unmarshal(id, &s); err != nil {
			return ""
		}
		return s
	}
	var n json.Number
	if err := json.Unmarshal(id, &n); err != nil {
		return ""
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	return n.String()
}

// IsResponse reports whether the frame answers a request.
func (f *Frame) IsResponse() bool {
	return f.HasID() && f.Method == ""
}

// IsNotification reports whether the frame is a server notification.
func (f *Frame) IsNotification() bool {
	return !f.HasID() && f.Method != ""
}

// IsRequest reports whether the frame is a server-to-client request.
func (f *Frame) IsRequest() bool {
	return f.HasID() && f.Method != ""
}

// Failed reports whether the frame carries an error object.
func (f *Frame) Failed() bool {
	return f.Error != nil
}
