package testing

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/vnfstack/internal/provisioning"
)

// MockProber is a mock implementation of instance.Prober.
type MockProber struct {
	mock.Mock
}

// Probe records the call and returns the configured result.
func (m *MockProber) Probe(ctx context.Context, address, user string, privateKey []byte) bool {
	args := m.Called(ctx, address, user, privateKey)
	return args.Bool(0)
}

// NewReachableProber returns a prober for which every address is reachable.
func NewReachableProber() *MockProber {
	m := &MockProber{}
	m.On("Probe", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true)
	return m
}

// NewUnreachableProber returns a prober for which no address is reachable.
func NewUnreachableProber() *MockProber {
	m := &MockProber{}
	m.On("Probe", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false)
	return m
}

// RecordingObserver is a provisioning.Observer that keeps everything it is
// told. Safe for concurrent use.
type RecordingObserver struct {
	mu       sync.Mutex
	events   []provisioning.Event
	messages []string
}

var _ provisioning.Observer = (*RecordingObserver)(nil)

// Printf implements provisioning.Logger.
func (o *RecordingObserver) Printf(format string, _ ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, format)
}

// Event implements provisioning.Observer.
func (o *RecordingObserver) Event(event provisioning.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

// Progress implements provisioning.Observer.
func (o *RecordingObserver) Progress(string, int, int) {}

// WithFields implements provisioning.Observer. Fields are dropped.
func (o *RecordingObserver) WithFields(map[string]string) provisioning.Observer {
	return o
}

// Events returns the recorded events of type t, or all events when t is empty.
func (o *RecordingObserver) Events(t provisioning.EventType) []provisioning.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []provisioning.Event
	for _, e := range o.events {
		if t == "" || e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Resources returns the Resource of every recorded event of type t.
func (o *RecordingObserver) Resources(t provisioning.EventType) []string {
	var out []string
	for _, e := range o.Events(t) {
		out = append(out, e.Resource)
	}
	return out
}
