package match

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/bytebufferpool"
)

const (
	FieldID        = "id"
	FieldHomeScore = "homeScore"
	FieldAwayScore = "awayScore"
	FieldStatus    = "status"
)

// MutableFields are the only fields a later fetch may overwrite on a cached match.
var MutableFields = []string{FieldHomeScore, FieldAwayScore, FieldStatus}

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

var nullValue = jsoniter.RawMessage("null")

// Field is one top-level member of an upstream event, kept as raw JSON.
type Field struct {
	Name  string
	Value jsoniter.RawMessage
}

// Match is one upstream event object. Fields keep their upstream order and
// values are passed through untouched.
type Match struct {
	fields []Field
}

// New builds a match from already encoded fields.
func New(fields ...Field) Match {
	var m Match
	for _, f := range fields {
		m.Set(f.Name, f.Value)
	}
	return m
}

// Parse decodes a single JSON object.
func Parse(data []byte) (Match, error) {
	var m Match
	if err := m.UnmarshalJSON(data); err != nil {
		return Match{}, err
	}
	return m, nil
}

// ParseList decodes a JSON array of objects. Empty input and null yield an empty list.
func ParseList(data []byte) ([]Match, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Match{}, nil
	}

	if !codec.Valid(data) {
		return nil, fmt.Errorf("decode matches: invalid json")
	}

	iter := codec.BorrowIterator(data)
	defer codec.ReturnIterator(iter)

	out := make([]Match, 0)
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.Skip()
		return out, nil
	case jsoniter.ArrayValue:
	default:
		return nil, fmt.Errorf("decode matches: expected array")
	}

	iter.ReadArrayCB(func(iter *jsoniter.Iterator) bool {
		var m Match
		if err := m.readObject(iter); err != nil {
			iter.ReportError("decode match", err.Error())
			return false
		}
		out = append(out, m)
		return true
	})
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, fmt.Errorf("decode matches: %w", iter.Error)
	}

	return out, nil
}

// Key is the identity of the match. Numeric ids are keyed by value (1, 1.0
// and 1e0 are one key) and string ids by their decoded text, so 1 and "1"
// stay different keys. A match without id has the empty key.
func (m Match) Key() string {
	v, ok := m.Get(FieldID)
	if !ok {
		return ""
	}
	return canonicalKey(v)
}

func canonicalKey(raw jsoniter.RawMessage) string {
	iter := codec.BorrowIterator(raw)
	defer codec.ReturnIterator(iter)

	switch iter.WhatIsNext() {
	case jsoniter.NumberValue:
		f := iter.ReadFloat64()
		if iter.Error != nil && iter.Error != io.EOF {
			return string(raw)
		}
		if f == 0 {
			f = 0 // -0
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	case jsoniter.StringValue:
		s := iter.ReadString()
		if iter.Error != nil && iter.Error != io.EOF {
			return string(raw)
		}
		return strconv.Quote(s)
	default:
		return string(raw)
	}
}

func (m Match) Get(name string) (jsoniter.RawMessage, bool) {
	for _, f := range m.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set overwrites the field in place, or appends it when absent.
func (m *Match) Set(name string, value jsoniter.RawMessage) {
	value = cloneValue(value)
	for i := range m.fields {
		if m.fields[i].Name == name {
			m.fields[i].Value = value
			return
		}
	}
	m.fields = append(m.fields, Field{Name: name, Value: value})
}

func (m *Match) Delete(name string) {
	for i := range m.fields {
		if m.fields[i].Name == name {
			m.fields = append(m.fields[:i:i], m.fields[i+1:]...)
			return
		}
	}
}

func (m Match) Len() int {
	return len(m.fields)
}

// Fields returns a copy of the fields in order.
func (m Match) Fields() []Field {
	out := make([]Field, len(m.fields))
	copy(out, m.fields)
	return out
}

func (m Match) Clone() Match {
	if m.fields == nil {
		return Match{}
	}
	out := Match{fields: make([]Field, len(m.fields))}
	for i, f := range m.fields {
		out.fields[i] = Field{Name: f.Name, Value: cloneValue(f.Value)}
	}
	return out
}

func (m Match) MarshalJSON() ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_ = buf.WriteByte('{')
	for i, f := range m.fields {
		if i > 0 {
			_ = buf.WriteByte(',')
		}
		name, err := codec.Marshal(f.Name)
		if err != nil {
			return nil, fmt.Errorf("encode field name %q: %w", f.Name, err)
		}
		_, _ = buf.Write(name)
		_ = buf.WriteByte(':')
		if len(f.Value) == 0 {
			_, _ = buf.Write(nullValue)
			continue
		}
		_, _ = buf.Write(f.Value)
	}
	_ = buf.WriteByte('}')

	return append([]byte(nil), buf.B...), nil
}

func (m *Match) UnmarshalJSON(data []byte) error {
	if !codec.Valid(data) {
		return fmt.Errorf("decode match: invalid json")
	}

	iter := codec.BorrowIterator(data)
	defer codec.ReturnIterator(iter)

	if err := m.readObject(iter); err != nil {
		return err
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return fmt.Errorf("decode match: %w", iter.Error)
	}
	return nil
}

// readObject decodes one object from iter. A repeated key keeps its first
// position and takes the last value.
func (m *Match) readObject(iter *jsoniter.Iterator) error {
	m.fields = nil
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.Skip()
		return nil
	case jsoniter.ObjectValue:
	default:
		return fmt.Errorf("decode match: expected object")
	}

	fields := make([]Field, 0, 16)
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, name string) bool {
		raw := bytes.TrimSpace(iter.SkipAndReturnBytes())
		value := append(jsoniter.RawMessage(nil), raw...)
		for i := range fields {
			if fields[i].Name == name {
				fields[i].Value = value
				return true
			}
		}
		fields = append(fields, Field{Name: name, Value: value})
		return true
	})
	if iter.Error != nil && iter.Error != io.EOF {
		return fmt.Errorf("decode match: %w", iter.Error)
	}

	m.fields = fields
	return nil
}

func cloneValue(v jsoniter.RawMessage) jsoniter.RawMessage {
	if v == nil {
		return nil
	}
	return append(jsoniter.RawMessage(nil), v...)
}
