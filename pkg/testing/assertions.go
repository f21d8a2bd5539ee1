package testing

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

// RequestLog is one request received by the server.
type RequestLog struct {
	// ID is the request id, "" for notifications.
	ID string
	// Method is the JSON-RPC method.
	Method string
	// Params are the raw request params.
	Params json.RawMessage
	// Transport is TransportWebSocket or TransportHTTP.
	Transport string
	// Time is when the request arrived.
	Time time.Time
}

// AssertParams asserts that the request params match the expected JSON.
// The expected value can be a string, []byte, or any value that will be JSON
// encoded.
func (r *RequestLog) AssertParams(t testing.TB, expected any) {
	t.Helper()

	var expectedJSON, actualJSON any

	switch v := expected.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &expectedJSON); err != nil {
			t.Errorf("failed to parse expected JSON: %v", err)
			return
		}
	case []byte:
		if err := json.Unmarshal(v, &expectedJSON); err != nil {
			t.Errorf("failed to parse expected JSON: %v", err)
			return
		}
	default:
		// Marshal and unmarshal to normalize
		data, err := json.Marshal(v)
		if err != nil {
			t.Errorf("failed to marshal expected value: %v", err)
			return
		}
		if err := json.Unmarshal(data, &expectedJSON); err != nil {
			t.Errorf("failed to parse expected JSON: %v", err)
			return
		}
	}

	if err := json.Unmarshal(r.Params, &actualJSON); err != nil {
		t.Errorf("request params are not valid JSON: %v\nparams: %s", err, r.Params)
		return
	}

	if !reflect.DeepEqual(actualJSON, expectedJSON) {
		expectedBytes, _ := json.MarshalIndent(expectedJSON, "", "  ")
		actualBytes, _ := json.MarshalIndent(actualJSON, "", "  ")
		t.Errorf("request params do not match expected JSON\nexpected:\n%s\nactual:\n%s",
			string(expectedBytes), string(actualBytes))
	}
}

// AssertCalled asserts that method was called at least once.
func (s *StubServer) AssertCalled(t testing.TB, method string) {
	t.Helper()

	if s.countCalls(method) == 0 {
		t.Errorf("expected %s to be called, but it was not called", method)
	}
}

// AssertCalledTimes asserts that method was called exactly n times.
func (s *StubServer) AssertCalledTimes(t testing.TB, method string, times int) {
	t.Helper()

	count := s.countCalls(method)
	if count != times {
		t.Errorf("expected %s to be called %d times, but was called %d times", method, times, count)
	}
}

// AssertNotCalled asserts that method was not called.
func (s *StubServer) AssertNotCalled(t testing.TB, method string) {
	t.Helper()

	if count := s.countCalls(method); count > 0 {
		t.Errorf("expected %s to not be called, but it was called %d times", method, count)
	}
}

// LastRequest returns the most recent request for method, or nil.
func (s *StubServer) LastRequest(method string) *RequestLog {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method {
			return &reqs[i]
		}
	}
	return nil
}

func (s *StubServer) countCalls(method string) int {
	count := 0
	for _, r := range s.Requests() {
		if r.Method == method {
			count++
		}
	}
	return count
}
