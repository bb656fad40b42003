package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventsFileName is the event log file inside the base directory.
const EventsFileName = "events.jsonl"

// Event is one line of the event log.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`  // e.g. "project.created", "milestone.triggered"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventFilter specifies criteria for reading events. ProjectID matches the
// project_id field of the event data.
type EventFilter struct {
	Since     *time.Time
	Until     *time.Time
	Type      string
	Level     string
	ProjectID string
}

// EventLog defines the interface for writing and reading events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

type jsonlEventLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLEventLog opens (creating if needed) an append-only JSONL event log
// at path.
func NewJSONLEventLog(path string) (EventLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{path: path, file: f}, nil
}

func (l *jsonlEventLog) Write(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read scans the whole log and returns the events matching filter in write
// order. Malformed lines are skipped.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		if filter.matches(event) {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}
	return events, nil
}

func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

func (f EventFilter) matches(event Event) bool {
	if f.Since != nil && event.Time.Before(*f.Since) {
		return false
	}
	if f.Until != nil && event.Time.After(*f.Until) {
		return false
	}
	if f.Type != "" && event.Type != f.Type {
		return false
	}
	if f.Level != "" && event.Level != f.Level {
		return false
	}
	if f.ProjectID != "" {
		if id, _ := event.Data["project_id"].(string); id != f.ProjectID {
			return false
		}
	}
	return true
}

// eventMessages gives each known event type its human-readable message.
var eventMessages = map[string]string{
	"project.created":       "project created",
	"tasks.generated":       "tasks generated",
	"task.progress_updated": "task progress updated",
	"task.completed":        "task completed",
	"milestone.triggered":   "milestone reached",
	"dependency.triggered":  "dependent tasks generated",
}

// EventRecorder adapts an EventLog to the LogEvent(type, data) shape the
// service layer emits, stamping time, level and message.
type EventRecorder struct {
	log EventLog
	now func() time.Time
}

// NewEventRecorder wraps log. now defaults to time.Now.
func NewEventRecorder(log EventLog, now func() time.Time) *EventRecorder {
	if now == nil {
		now = time.Now
	}
	return &EventRecorder{log: log, now: now}
}

// LogEvent writes an INFO event of eventType carrying data.
func (r *EventRecorder) LogEvent(eventType string, data map[string]any) error {
	msg, ok := eventMessages[eventType]
	if !ok {
		msg = eventType
	}
	return r.log.Write(Event{
		Time:    r.now().UTC(),
		Level:   "INFO",
		Type:    eventType,
		Message: msg,
		Data:    data,
	})
}
