// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the newline-delimited JSON framing shared by the
// control socket (supervisor <-> sender) and the receiver-link
// (sender <-> receiver): one Frame per line, a typed envelope (type,
// command, eventId, message) plus a free-form field bag for
// command-specific data. Dynamic event dispatch in an event-emitter
// style source becomes this tagged envelope, dispatched on Type/Command
// by the caller.
package wire

import "encoding/json"

// Type is the envelope discriminator of a Frame.
type Type string

const (
	TypeRequest      Type = "request"
	TypeResponse     Type = "response"
	TypeError        Type = "error"
	TypeSyncSuccess  Type = "sync-success"
	TypeProgress     Type = "progress"
)

// Frame is one newline-delimited JSON message. Fields carries whatever
// command-specific data rides alongside the envelope (e.g. "names",
// "token", "zfsFilesystem", "current_progress").
type Frame struct {
	Type    Type
	Command string
	EventID uint64
	Message string
	Fields  map[string]any
}

// NewRequest builds an outbound request frame.
func NewRequest(eventID uint64, command string, fields map[string]any) Frame {
	return Frame{Type: TypeRequest, Command: command, EventID: eventID, Fields: fields}
}

// NewResponse builds a response frame correlated to eventID.
func NewResponse(eventID uint64, command string, fields map[string]any) Frame {
	return Frame{Type: TypeResponse, Command: command, EventID: eventID, Fields: fields}
}

// NewError builds an asynchronous (or correlated) error frame.
func NewError(command string, eventID uint64, message string, fields map[string]any) Frame {
	return Frame{Type: TypeError, Command: command, EventID: eventID, Message: message, Fields: fields}
}

// NewSyncSuccess builds the receiver's asynchronous sync-success frame.
func NewSyncSuccess(fields map[string]any) Frame {
	return Frame{Type: TypeSyncSuccess, Fields: fields}
}

// NewProgress builds a progress broadcast frame per spec.md §4.6.
func NewProgress(phase, state string, current, total int64, store bool) Frame {
	return Frame{
		Type: TypeProgress,
		Fields: map[string]any{
			"phase":            phase,
			"state":            state,
			"current_progress": current,
			"total_progress":   total,
			"store":            store,
		},
	}
}

// MarshalJSON flattens the envelope and Fields into one JSON object.
func (f Frame) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(f.Fields)+4)
	for k, v := range f.Fields {
		m[k] = v
	}
	m["type"] = f.Type
	if f.Command != "" {
		m["command"] = f.Command
	}
	if f.EventID != 0 {
		m["eventId"] = f.EventID
	}
	if f.Message != "" {
		m["message"] = f.Message
	}
	return json.Marshal(m)
}

// UnmarshalJSON lifts the envelope fields out of the object, leaving the
// rest in Fields.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if v, ok := m["type"].(string); ok {
		f.Type = Type(v)
		delete(m, "type")
	}
	if v, ok := m["command"].(string); ok {
		f.Command = v
		delete(m, "command")
	}
	if v, ok := m["eventId"]; ok {
		if n, ok := v.(float64); ok {
			f.EventID = uint64(n)
		}
		delete(m, "eventId")
	}
	if v, ok := m["message"].(string); ok {
		f.Message = v
		delete(m, "message")
	}
	f.Fields = m
	return nil
}

// StringField returns Fields[k] as a string, or "" if absent/wrong type.
func (f Frame) StringField(k string) string {
	if v, ok := f.Fields[k].(string); ok {
		return v
	}
	return ""
}

// BoolField returns Fields[k] as a bool, or false if absent/wrong type.
func (f Frame) BoolField(k string) bool {
	if v, ok := f.Fields[k].(bool); ok {
		return v
	}
	return false
}

// Int64Field returns Fields[k] as an int64 and whether it was present and
// numeric.
func (f Frame) Int64Field(k string) (int64, bool) {
	v, ok := f.Fields[k]
	if !ok {
		return 0, false
	}
	n, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int64(n), true
}

// StringSlice returns Fields[k] as a []string. A non-array value (or
// absent key) returns nil, false - callers treat that as an empty list
// per spec.md §4.3 step 3 ("if the response field is not an array, treat
// as empty").
func (f Frame) StringSlice(k string) ([]string, bool) {
	v, ok := f.Fields[k]
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}
