// Package task models the annotation task records consumed by the exporter
// and reads them from JSON streams.
//
// Records are deliberately loosely typed below the result level: region
// payloads stay as decoded JSON (map[string]interface{} with json.Number for
// numbers) so the exporter can tolerate the variety of shapes annotation tools
// emit.
package task

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Task is one annotated item: a data record pointing at images plus the
// annotations made on it.
type Task struct {
	ID          ID           `json:"id"`
	Data        Data         `json:"data"`
	Annotations []Annotation `json:"annotations"`
}

// Annotation is one annotator's set of results on a task.
type Annotation struct {
	ID     ID       `json:"id"`
	Result []Result `json:"result"`
}

// Result is a single annotation result. Several results may share an ID when
// a region's label, shape and free-text facets are stored separately.
type Result struct {
	ID             ID                     `json:"id"`
	Type           string                 `json:"type"`
	FromName       string                 `json:"from_name"`
	ToName         string                 `json:"to_name"`
	OriginalWidth  interface{}            `json:"original_width"`
	OriginalHeight interface{}            `json:"original_height"`
	Value          map[string]interface{} `json:"value"`
}

// ID is an identifier that may be encoded as a JSON string or number.
// The zero value means the identifier was absent or null.
type ID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier text.
func (id ID) String() string { return string(id) }

// Valid reports whether the identifier was present.
func (id ID) Valid() bool { return id != "" }

// Data is a task's data record. Key order from the source document is
// preserved because the exporter falls back to the first field when no image
// field is configured.
type Data struct {
	keys   []string
	values map[string]interface{}
}

// NewData builds a Data from alternating key/value pairs. It is intended for
// constructing tasks in code.
func NewData(kv ...interface{}) Data {
	d := Data{values: make(map[string]interface{}, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if _, seen := d.values[key]; !seen {
			d.keys = append(d.keys, key)
		}
		d.values[key] = kv[i+1]
	}
	return d
}

// Get returns the value stored under key.
func (d Data) Get(key string) (interface{}, bool) {
	v, ok := d.values[key]
	return v, ok
}

// First returns the first field in document order.
func (d Data) First() (string, interface{}, bool) {
	if len(d.keys) == 0 {
		return "", nil, false
	}
	return d.keys[0], d.values[d.keys[0]], true
}

// Keys returns field names in document order.
func (d Data) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of fields.
func (d Data) Len() int { return len(d.keys) }

// UnmarshalJSON decodes an object while recording key order. Null decodes to
// an empty record.
func (d *Data) UnmarshalJSON(data []byte) error {
	*d = Data{values: map[string]interface{}{}}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("task data must be an object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", tok)
		}
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		if _, seen := d.values[key]; !seen {
			d.keys = append(d.keys, key)
		}
		d.values[key] = v
	}

	_, err = dec.Token()
	return err
}

// MarshalJSON encodes the record in its original key order.
func (d Data) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(d.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
