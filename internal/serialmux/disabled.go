package serialmux

import (
	"context"
	"net/http"
	"sync"

	"github.com/banshee-data/vehicle.history/internal/httputil"
	"github.com/banshee-data/vehicle.history/internal/monitoring"
)

// DisabledSerialMux stands in for a telematics unit when none is attached.
// No lines are ever read. Commands are accepted and kept so an operator can
// see what would have been sent; subscribers are closed on Unsubscribe and
// Close so readers unblock.
type DisabledSerialMux struct {
	mu     sync.Mutex
	subs   map[string]chan string
	sent   []string
	closed bool
}

func NewDisabledSerialMux() *DisabledSerialMux {
	return &DisabledSerialMux{subs: make(map[string]chan string)}
}

// Subscribe returns a channel that never carries a line. After Close the
// channel is already closed.
func (d *DisabledSerialMux) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		close(ch)
		return id, ch
	}
	d.subs[id] = ch
	return id, ch
}

func (d *DisabledSerialMux) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subs[id]; ok {
		close(ch)
		delete(d.subs, id)
	}
}

// SendCommand records command instead of writing it to a device.
func (d *DisabledSerialMux) SendCommand(command string) error {
	d.mu.Lock()
	d.sent = append(d.sent, command)
	d.mu.Unlock()
	monitoring.Diagf("telematics disabled, dropped command %q", command)
	return nil
}

// Sent returns the commands accepted so far, oldest first.
func (d *DisabledSerialMux) Sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.sent...)
}

// Monitor blocks until ctx ends, as there is no feed to read.
func (d *DisabledSerialMux) Monitor(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (d *DisabledSerialMux) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	for id, ch := range d.subs {
		close(ch)
		delete(d.subs, id)
	}
	return nil
}

// Initialize has no handshake to perform.
func (d *DisabledSerialMux) Initialize() error { return nil }

// DisabledStatus is the body of /debug/telematics-status.
type DisabledStatus struct {
	Attached    bool     `json:"attached"`
	Subscribers int      `json:"subscribers"`
	Commands    []string `json:"commands"`
}

// AttachAdminRoutes mounts the usual debug routes plus a status page
// reporting that no unit is attached.
func (d *DisabledSerialMux) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, d)
	mux.HandleFunc("GET /debug/telematics-status", func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		st := DisabledStatus{Subscribers: len(d.subs), Commands: append([]string{}, d.sent...)}
		d.mu.Unlock()
		httputil.WriteJSONOK(w, st)
	})
}
