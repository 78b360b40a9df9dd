package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EventType is the kind of row change carried by an Event
type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
	Any    EventType = "*"
)

// Event is one row change on a table. New is empty for deletes, Old for inserts.
type Event struct {
	Table string         `json:"table"`
	Type  EventType      `json:"type"`
	New   map[string]any `json:"new,omitempty"`
	Old   map[string]any `json:"old,omitempty"`
}

// NewEvent builds an event from row values using their JSON field names.
func NewEvent(table string, typ EventType, newRow, oldRow any) (Event, error) {
	ev := Event{Table: table, Type: typ}
	var err error
	if newRow != nil {
		if ev.New, err = toRow(newRow); err != nil {
			return Event{}, err
		}
	}
	if oldRow != nil {
		if ev.Old, err = toRow(oldRow); err != nil {
			return Event{}, err
		}
	}
	return ev, nil
}

func toRow(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	var row map[string]any
	if err := json.Unmarshal(b, &row); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return row, nil
}

// Field returns a column of the changed row as text, preferring the new values.
func (e Event) Field(column string) (string, bool) {
	if v, ok := e.New[column]; ok {
		return formatValue(v), true
	}
	if v, ok := e.Old[column]; ok {
		return formatValue(v), true
	}
	return "", false
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Filter selects the events a subscriber receives.
type Filter struct {
	Table  string
	Column string // Optional row filter, column = Value
	Value  string
	Events []EventType // Empty or containing Any means every type
}

// Table returns a filter for every event on a table.
func Table(table string) Filter {
	return Filter{Table: table}
}

// Eq narrows the filter to rows whose column equals value.
func (f Filter) Eq(column string, value any) Filter {
	f.Column = column
	f.Value = fmt.Sprint(value)
	return f
}

// On narrows the filter to the given event types.
func (f Filter) On(types ...EventType) Filter {
	f.Events = types
	return f
}

// String renders the filter in "table:column=eq.value" form for logs.
func (f Filter) String() string {
	if f.Column == "" {
		return f.Table
	}
	return f.Table + ":" + f.Column + "=eq." + f.Value
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(e Event) bool {
	if f.Table != "" && e.Table != f.Table {
		return false
	}
	if !f.acceptsType(e.Type) {
		return false
	}
	if f.Column == "" {
		return true
	}
	v, ok := e.Field(f.Column)
	return ok && v == f.Value
}

func (f Filter) acceptsType(t EventType) bool {
	if len(f.Events) == 0 {
		return true
	}
	for _, want := range f.Events {
		if want == Any || want == t {
			return true
		}
	}
	return false
}

// Decode unmarshals the new row, or the old row for deletes, into v.
func (e Event) Decode(v any) error {
	row := e.New
	if len(row) == 0 {
		row = e.Old
	}
	b, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("decode %s row: %w", e.Table, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s row: %w", e.Table, err)
	}
	return nil
}
