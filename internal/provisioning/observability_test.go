package provisioning

import (
	"bytes"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vnfstack/internal/cloud"
)

// eventSink collects events for assertions.
type eventSink struct {
	ConsoleObserver
	events []Event
}

func newEventSink() *eventSink {
	var buf bytes.Buffer
	return &eventSink{ConsoleObserver: ConsoleObserver{out: log.New(&buf, "", 0)}}
}

func (s *eventSink) Event(event Event) { s.events = append(s.events, event) }

func TestEvent_String(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "message only",
			event: Event{Type: EventProgress, Message: "halfway"},
			want:  "progress halfway",
		},
		{
			name:  "phase",
			event: Event{Type: EventPhaseStarted, Phase: "image", Message: "starting"},
			want:  "phase.started [image] starting",
		},
		{
			name: "resource and sorted fields",
			event: Event{
				Type:     EventResourceCreated,
				Phase:    "network",
				Resource: "mgmt-net",
				Message:  "network created",
				Fields:   map[string]string{"type": "network", "id": "12345"},
			},
			want: "resource.created [network] resource=mgmt-net network created (id=12345, type=network)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.event.String())
		})
	}
}

func TestConsoleObserver_Output(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	o := NewConsoleObserverWith(log.New(&buf, "", 0))

	o.Printf("plain %s", "line")
	o.Progress("compute", 1, 4)
	o.Progress("compute", 0, 0)
	o.Event(Event{Type: EventPhaseFailed, Phase: "keypair", Message: "failed: boom"})

	assert.Equal(t, "plain line\n"+
		"[compute] Progress: 1/4 (25%)\n"+
		"[compute] Progress: 0/0\n"+
		"phase.failed [keypair] failed: boom\n", buf.String())
}

func TestConsoleObserver_WithFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	root := NewConsoleObserverWith(log.New(&buf, "", 0))

	env := root.WithFields(map[string]string{"environment": "lab", "type": "default"})
	env.Event(Event{Type: EventPhaseStarted, Phase: "image", Message: "starting"})
	env.Event(Event{Type: EventResourceDeleted, Message: "x", Fields: map[string]string{"type": "port"}})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "(environment=lab, type=default)")
	assert.Contains(t, string(lines[1]), "(environment=lab, type=port)", "event fields win")
	assert.Empty(t, root.fields, "parent observer is not modified")
}

func TestLogHelpers(t *testing.T) {
	t.Parallel()
	sink := newEventSink()
	boom := errors.New("boom")

	LogPhaseStart(sink, "compute")
	LogResourceCreating(sink, "compute", "instance", "web-1")
	LogResourceCreated(sink, "compute", "instance", "web-1", "id-1")
	LogResourceExists(sink, "compute", "instance", "web-2", "id-2")
	LogResourceDeleting(sink, "destroy", "port", "web-1-mgmt")
	LogResourceDeleted(sink, "destroy", "port", "web-1-mgmt")
	LogResourceFailed(sink, "destroy", "network", "mgmt", boom)
	LogPhaseFailed(sink, "destroy", boom)
	LogPhaseComplete(sink, "compute", 1500*time.Microsecond)

	require.Len(t, sink.events, 9)
	types := make([]EventType, 0, len(sink.events))
	for _, e := range sink.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{
		EventPhaseStarted,
		EventResourceCreating,
		EventResourceCreated,
		EventResourceExists,
		EventResourceDeleting,
		EventResourceDeleted,
		EventResourceFailed,
		EventPhaseFailed,
		EventPhaseCompleted,
	}, types)

	assert.Equal(t, "id-1", sink.events[2].Fields["id"])
	assert.Equal(t, "instance already exists", sink.events[3].Message)
	assert.Equal(t, "port", sink.events[5].Fields["type"])
	assert.Equal(t, "network failed: boom", sink.events[6].Message)
	assert.Equal(t, "completed in 2ms", sink.events[8].Message)
}

func TestLogInstanceStatus(t *testing.T) {
	t.Parallel()
	sink := newEventSink()

	LogInstanceStatus(sink, "web-1", "", cloud.StatusPending)
	LogInstanceStatus(sink, "web-1", cloud.StatusPending, cloud.StatusActive)

	require.Len(t, sink.events, 2)
	assert.Equal(t, "NONE -> PENDING", sink.events[0].Message)
	assert.Equal(t, "web-1", sink.events[1].Resource)
	assert.Equal(t, "ACTIVE", sink.events[1].Fields["to"])
}
