package provisioning

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/imamik/vnfstack/internal/cloud"
)

// Observer receives what the phases do. It doubles as their Logger.
type Observer interface {
	Logger

	Event(event Event)
	Progress(phase string, current, total int)

	// WithFields returns an observer that attaches fields to every event.
	WithFields(fields map[string]string) Observer
}

// EventType classifies an Event.
type EventType string

// Event types emitted by the phases.
const (
	EventPhaseStarted   EventType = "phase.started"
	EventPhaseCompleted EventType = "phase.completed"
	EventPhaseFailed    EventType = "phase.failed"

	EventResourceCreating EventType = "resource.creating"
	EventResourceCreated  EventType = "resource.created"
	EventResourceExists   EventType = "resource.exists"
	EventResourceFailed   EventType = "resource.failed"
	EventResourceDeleting EventType = "resource.deleting"
	EventResourceDeleted  EventType = "resource.deleted"

	EventInstanceStatus EventType = "instance.status"

	EventValidationWarning EventType = "validation.warning"
	EventValidationError   EventType = "validation.error"

	EventProgress EventType = "progress"
)

// Event is one structured observation.
type Event struct {
	Type      EventType
	Phase     string
	Resource  string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// String renders the event as a single console line, fields sorted by key.
func (e Event) String() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	if e.Phase != "" {
		fmt.Fprintf(&b, " [%s]", e.Phase)
	}
	if e.Resource != "" {
		fmt.Fprintf(&b, " resource=%s", e.Resource)
	}
	b.WriteString(" ")
	b.WriteString(e.Message)
	if len(e.Fields) == 0 {
		return b.String()
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString(" (")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%s", k, e.Fields[k])
	}
	b.WriteString(")")
	return b.String()
}

// mergeFields returns a copy of base overlaid with extra.
func mergeFields(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// ConsoleObserver prints events through a *log.Logger.
type ConsoleObserver struct {
	out    *log.Logger
	fields map[string]string
}

// NewConsoleObserver returns an observer writing to the standard logger.
func NewConsoleObserver() *ConsoleObserver {
	return NewConsoleObserverWith(log.Default())
}

// NewConsoleObserverWith returns an observer writing to l.
func NewConsoleObserverWith(l *log.Logger) *ConsoleObserver {
	return &ConsoleObserver{out: l}
}

// Printf implements Logger.
func (o *ConsoleObserver) Printf(format string, v ...any) {
	o.out.Printf(format, v...)
}

// Event implements Observer. Fields set on the event win over the
// observer's own.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Fields = mergeFields(o.fields, event.Fields)
	o.out.Print(event.String())
}

// Progress implements Observer.
func (o *ConsoleObserver) Progress(phase string, current, total int) {
	if total <= 0 {
		o.out.Printf("[%s] Progress: %d/%d", phase, current, total)
		return
	}
	o.out.Printf("[%s] Progress: %d/%d (%d%%)", phase, current, total, current*100/total)
}

// WithFields implements Observer.
func (o *ConsoleObserver) WithFields(fields map[string]string) Observer {
	return &ConsoleObserver{out: o.out, fields: mergeFields(o.fields, fields)}
}

// LogPhaseStart reports that a phase begins.
func LogPhaseStart(o Observer, phase string) {
	o.Event(Event{Type: EventPhaseStarted, Phase: phase, Message: "starting"})
}

// LogPhaseComplete reports a successful phase and its duration.
func LogPhaseComplete(o Observer, phase string, took time.Duration) {
	o.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: "completed in " + took.Round(time.Millisecond).String(),
	})
}

// LogPhaseFailed reports the error a phase stopped on.
func LogPhaseFailed(o Observer, phase string, err error) {
	o.Event(Event{Type: EventPhaseFailed, Phase: phase, Message: fmt.Sprintf("failed: %v", err)})
}

func resourceEvent(typ EventType, phase, kind, name, message string) Event {
	return Event{
		Type:     typ,
		Phase:    phase,
		Resource: name,
		Message:  message,
		Fields:   map[string]string{"type": kind},
	}
}

// LogResourceCreating reports that kind/name is about to be created.
func LogResourceCreating(o Observer, phase, kind, name string) {
	o.Event(resourceEvent(EventResourceCreating, phase, kind, name, "creating "+kind))
}

// LogResourceCreated reports a created resource with its provider ID.
func LogResourceCreated(o Observer, phase, kind, name, id string) {
	e := resourceEvent(EventResourceCreated, phase, kind, name, kind+" created")
	e.Fields["id"] = id
	o.Event(e)
}

// LogResourceExists reports a resource that is reused instead of created.
func LogResourceExists(o Observer, phase, kind, name, id string) {
	e := resourceEvent(EventResourceExists, phase, kind, name, kind+" already exists")
	e.Fields["id"] = id
	o.Event(e)
}

func LogResourceDeleting(o Observer, phase, kind, name string) {
	o.Event(resourceEvent(EventResourceDeleting, phase, kind, name, "deleting "+kind))
}

func LogResourceDeleted(o Observer, phase, kind, name string) {
	o.Event(resourceEvent(EventResourceDeleted, phase, kind, name, kind+" deleted"))
}

// LogResourceFailed reports a create, lookup or delete that failed.
func LogResourceFailed(o Observer, phase, kind, name string, err error) {
	o.Event(resourceEvent(EventResourceFailed, phase, kind, name, fmt.Sprintf("%s failed: %v", kind, err)))
}

// LogInstanceStatus reports an observed status transition. An empty from
// means the instance was not seen before.
func LogInstanceStatus(o Observer, name string, from, to cloud.ServerStatus) {
	if from == "" {
		from = "NONE"
	}
	o.Event(Event{
		Type:     EventInstanceStatus,
		Phase:    "compute",
		Resource: name,
		Message:  fmt.Sprintf("%s -> %s", from, to),
		Fields:   map[string]string{"from": string(from), "to": string(to)},
	})
}
