package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Event string

const (
	EventAll    Event = "*"
	EventInsert Event = "INSERT"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
)

const SchemaPublic = "public"

var (
	ErrClosed        = errors.New("realtime: broker closed")
	ErrInvalidFilter = errors.New("realtime: invalid filter")
)

// Change is one committed row change.
type Change struct {
	Schema          string            `json:"schema"`
	Table           string            `json:"table"`
	Event           Event             `json:"event"`
	Columns         map[string]string `json:"columns,omitempty"`
	Record          json.RawMessage   `json:"record,omitempty"`
	CommitTimestamp time.Time         `json:"commit_timestamp"`
}

// NewChange builds a change whose record is the JSON encoding of row.
func NewChange(table string, event Event, columns map[string]string, row any) (Change, error) {
	rec, err := json.Marshal(row)
	if err != nil {
		return Change{}, fmt.Errorf("encode %s record: %w", table, err)
	}
	return Change{
		Schema:          SchemaPublic,
		Table:           table,
		Event:           event,
		Columns:         columns,
		Record:          rec,
		CommitTimestamp: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the change record into v.
func (c Change) Decode(v any) error {
	if len(c.Record) == 0 {
		return fmt.Errorf("realtime: %s change on %s has no record", c.Event, c.Table)
	}
	return json.Unmarshal(c.Record, v)
}

// Spec selects the changes a subscription receives.
type Spec struct {
	Event  Event
	Schema string
	Table  string
	Filter string // column=eq.value, optional
}

type Filter struct {
	Column string
	Value  string
}

// ParseFilter parses "column=eq.value". Only equality is supported.
func ParseFilter(s string) (*Filter, error) {
	if s == "" {
		return nil, nil
	}
	col, rest, ok := strings.Cut(s, "=")
	if !ok || col == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
	val, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return nil, fmt.Errorf("%w: unsupported operator in %q", ErrInvalidFilter, s)
	}
	return &Filter{Column: col, Value: val}, nil
}

type matcher struct {
	event  Event
	schema string
	table  string
	filter *Filter
}

func compile(spec Spec) (matcher, error) {
	f, err := ParseFilter(spec.Filter)
	if err != nil {
		return matcher{}, err
	}
	if spec.Table == "" {
		return matcher{}, fmt.Errorf("%w: table is required", ErrInvalidFilter)
	}
	m := matcher{event: spec.Event, schema: spec.Schema, table: spec.Table, filter: f}
	if m.event == "" {
		m.event = EventAll
	}
	if m.schema == "" {
		m.schema = SchemaPublic
	}
	return m, nil
}

func (m matcher) match(c Change) bool {
	if c.Schema != m.schema || c.Table != m.table {
		return false
	}
	if m.event != EventAll && c.Event != m.event {
		return false
	}
	if m.filter != nil {
		v, ok := c.Columns[m.filter.Column]
		if !ok || v != m.filter.Value {
			return false
		}
	}
	return true
}

type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, spec Spec) (*Subscription, error)
}

// Broker is the live subscription bus.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}
