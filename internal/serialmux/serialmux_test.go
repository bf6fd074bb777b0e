package serialmux

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPort feeds lines written to in back as port reads and records writes.
type testPort struct {
	in  *io.PipeReader
	out *io.PipeWriter

	mu      sync.Mutex
	written bytes.Buffer
	closed  bool
}

func newTestPort() *testPort {
	r, w := io.Pipe()
	return &testPort{in: r, out: w}
}

func (p *testPort) Read(b []byte) (int, error) { return p.in.Read(b) }

func (p *testPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *testPort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.out.Close()
}

func (p *testPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func TestSendCommandAppendsNewline(t *testing.T) {
	port := newTestPort()
	mux := NewSerialMux(port)

	require.NoError(t, mux.SendCommand("PING"))
	require.NoError(t, mux.SendCommand("VERBOSE=0\n"))
	assert.Equal(t, "PING\nVERBOSE=0\n", port.Written())
}

func TestInitializeSendsStartCommands(t *testing.T) {
	port := newTestPort()
	mux := NewSerialMux(port)

	require.NoError(t, mux.Initialize())
	lines := strings.Split(strings.TrimSpace(port.Written()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "TIME="))
	assert.Equal(t, []string{"FMT=NDJSON", "VERBOSE=1", "BUFFER=FLUSH"}, lines[1:])
}

func TestMonitorBroadcastsToSubscribers(t *testing.T) {
	port := newTestPort()
	mux := NewSerialMux(port)

	id1, c1 := mux.Subscribe()
	_, c2 := mux.Subscribe()

	done := make(chan error, 1)
	go func() { done <- mux.Monitor(context.Background()) }()

	_, err := io.WriteString(port.out, "first\nsecond\n")
	require.NoError(t, err)

	for _, c := range []chan string{c1, c2} {
		assert.Equal(t, "first", <-c)
		assert.Equal(t, "second", <-c)
	}

	mux.Unsubscribe(id1)
	_, ok := <-c1
	assert.False(t, ok, "unsubscribed channel should be closed")

	require.NoError(t, port.out.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return at EOF")
	}
}

func TestMonitorStopsOnContextCancel(t *testing.T) {
	port := newTestPort()
	mux := NewSerialMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
	require.NoError(t, mux.Close())
}

func TestCloseClosesSubscribersAndPort(t *testing.T) {
	port := newTestPort()
	mux := NewSerialMux(port)
	_, c := mux.Subscribe()

	require.NoError(t, mux.Close())
	_, ok := <-c
	assert.False(t, ok)
	assert.True(t, port.closed)
}

func TestReaderPortReplaysFeed(t *testing.T) {
	mux := NewSerialMux(NewReaderPort(strings.NewReader("a\nb\nc\n")))
	_, c := mux.Subscribe()

	require.NoError(t, mux.Monitor(context.Background()))
	require.NoError(t, mux.Close())

	var got []string
	for line := range c {
		got = append(got, line)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestDisabledSerialMux(t *testing.T) {
	d := NewDisabledSerialMux()
	var _ SerialMuxInterface = d

	id, c := d.Subscribe()
	assert.NoError(t, d.SendCommand("PING"))
	assert.NoError(t, d.SendCommand("VERBOSE=1"))
	assert.NoError(t, d.Initialize())
	assert.Equal(t, []string{"PING", "VERBOSE=1"}, d.Sent())

	httpMux := http.NewServeMux()
	d.AttachAdminRoutes(httpMux)
	req := httptest.NewRequest(http.MethodGet, "/debug/telematics-status", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	w := httptest.NewRecorder()
	httpMux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var st DisabledStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.False(t, st.Attached)
	assert.Equal(t, 1, st.Subscribers)
	assert.Equal(t, []string{"PING", "VERBOSE=1"}, st.Commands)

	d.Unsubscribe(id)
	_, ok := <-c
	assert.False(t, ok)

	_, c2 := d.Subscribe()
	require.NoError(t, d.Close())
	_, ok = <-c2
	assert.False(t, ok)

	_, c3 := d.Subscribe()
	_, ok = <-c3
	assert.False(t, ok, "subscribing after close yields a closed channel")
	assert.NoError(t, d.Close())
}

func TestAdminSendCommand(t *testing.T) {
	port := newTestPort()
	mux := NewSerialMux(port)
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	form := url.Values{"command": {"VERBOSE=0"}}
	req := httptest.NewRequest(http.MethodPost, "/debug/send-command-api", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "127.0.0.1:1234"
	w := httptest.NewRecorder()
	httpMux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "VERBOSE=0\n", port.Written())

	req = httptest.NewRequest(http.MethodPost, "/debug/send-command-api", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "127.0.0.1:1234"
	w = httptest.NewRecorder()
	httpMux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPortOptionsNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr bool
	}{
		{name: "defaults", in: PortOptions{}, want: PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}},
		{name: "long parity", in: PortOptions{BaudRate: 9600, Parity: "even"}, want: PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "E"}},
		{name: "odd baud", in: PortOptions{BaudRate: 12345}, wantErr: true},
		{name: "data bits", in: PortOptions{DataBits: 9}, wantErr: true},
		{name: "stop bits", in: PortOptions{StopBits: 3}, wantErr: true},
		{name: "parity", in: PortOptions{Parity: "mark"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, PortOptions{}.Equal(PortOptions{BaudRate: 115200, Parity: "none"}))
	assert.False(t, PortOptions{}.Equal(PortOptions{BaudRate: 9600}))

	mode, err := PortOptions{Parity: "O"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 115200, mode.BaudRate)
}
