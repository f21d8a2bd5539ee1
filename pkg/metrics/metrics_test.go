package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestCounter(t *testing.T) {
	t.Run("without labels", func(t *testing.T) {
		c := NewRegistry().NewCounter("test_counter", "A test counter")
		_ = c.Inc()
		_ = c.Inc()
		_ = c.Add(3)
		if got := c.Value(); got != 5 {
			t.Errorf("expected 5, got %v", got)
		}
	})

	t.Run("with labels", func(t *testing.T) {
		c := NewRegistry().NewCounter("calls", "calls", "method", "outcome")
		_ = c.Inc("chat/message", OutcomeOK)
		_ = c.Inc("chat/message", OutcomeOK)
		_ = c.Inc("tools/list", OutcomeTimeout)

		if got := c.Value("chat/message", OutcomeOK); got != 2 {
			t.Errorf("chat/message ok = %v, want 2", got)
		}
		if got := c.Value("tools/list", OutcomeTimeout); got != 1 {
			t.Errorf("tools/list timeout = %v, want 1", got)
		}
	})

	t.Run("wrong label count returns error", func(t *testing.T) {
		c := NewRegistry().NewCounter("test", "test", "a", "b")
		if err := c.Inc("only_one"); !errors.Is(err, ErrLabelCountMismatch) {
			t.Errorf("expected ErrLabelCountMismatch, got %v", err)
		}
	})

	t.Run("negative add returns error", func(t *testing.T) {
		c := NewRegistry().NewCounter("test", "test")
		if err := c.Add(-1); !errors.Is(err, ErrNegativeCounterValue) {
			t.Errorf("expected ErrNegativeCounterValue, got %v", err)
		}
	})
}

func TestCounter_Concurrent(t *testing.T) {
	c := NewRegistry().NewCounter("concurrent", "concurrent", "worker")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Inc("w")
			}
		}()
	}
	wg.Wait()
	if got := c.Value("w"); got != 2000 {
		t.Errorf("expected 2000, got %v", got)
	}
}

func TestGauge(t *testing.T) {
	g := NewRegistry().NewGauge("pending", "pending")
	_ = g.Set(3)
	_ = g.Add(-1)
	if got := g.Value(); got != 2 {
		t.Errorf("expected 2, got %v", got)
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.NewCounter("dup", "first")
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate metric name")
		}
	}()
	r.NewGauge("dup", "second")
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	m := NewClient(r, "idle", "open")
	m.CallFinished("chat/message", OutcomeOK)
	m.SetPending(2)
	m.StateChanged("open")
	r.NewCounter("unused_total", "never incremented")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)
	out := string(body)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
	for _, want := range []string{
		"# TYPE mcpchat_calls_total counter",
		`mcpchat_calls_total{method="chat/message",outcome="ok"} 1`,
		"mcpchat_pending_calls 2",
		`mcpchat_connection_state{state="idle"} 0`,
		`mcpchat_connection_state{state="open"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "unused_total") {
		t.Errorf("metrics without samples must not be written:\n%s", out)
	}
}

func TestEscapeLabelValue(t *testing.T) {
	got := formatLabels(map[string]string{"method": `a"b\c`})
	if want := `method="a\"b\\c"`; got != want {
		t.Errorf("formatLabels = %s, want %s", got, want)
	}
}

func TestNilClient(t *testing.T) {
	var m *Client
	m.CallFinished("x", OutcomeOK)
	m.SetPending(1)
	m.Reconnect()
	m.FrameDropped()
	m.StateChanged("open")
}

func TestClient_LabelMismatchPanics(t *testing.T) {
	r := NewRegistry()
	m := &Client{
		Calls:   r.NewCounter("wrong_calls_total", "Registered without labels."),
		Pending: r.NewGauge("wrong_pending", "Registered with a label.", "method"),
	}

	if !panics(func() { m.CallFinished("chat/message", OutcomeOK) }) {
		t.Error("CallFinished with mismatched labels did not panic")
	}
	if !panics(func() { m.SetPending(1) }) {
		t.Error("SetPending with mismatched labels did not panic")
	}
}

func TestClient_Records(t *testing.T) {
	m := NewClient(NewRegistry(), "idle", "open")
	m.CallFinished("ping", OutcomeOK)
	m.SetPending(3)
	m.Reconnect()
	m.FrameDropped()
	m.StateChanged("open")

	if got := m.Calls.Value("ping", OutcomeOK); got != 1 {
		t.Errorf("calls = %v, want 1", got)
	}
	if got := m.Pending.Value(); got != 3 {
		t.Errorf("pending = %v, want 3", got)
	}
	if m.ConnectionState.Value("open") != 1 || m.ConnectionState.Value("idle") != 0 {
		t.Error("state gauge does not mark open alone")
	}
}

func panics(fn func()) (panicked bool) {
	defer func() { panicked = recover() != nil }()
	fn()
	return false
}
