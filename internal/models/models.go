package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Field is one named cell of a scraped table row.
type Field struct {
	Name  string
	Value string
}

// Record is one extracted table row. Field order follows the header set
// of the page the row came from, so consumers must treat the schema as data.
type Record struct {
	fields []Field
}

// NewRecord zips values positionally against headers. Values beyond the
// header count are ignored. A repeated header keeps its first position and
// takes the later value.
func NewRecord(headers, values []string) Record {
	r := Record{fields: make([]Field, 0, len(headers))}
	for i, name := range headers {
		if i >= len(values) {
			break
		}
		r.set(name, values[i])
	}
	return r
}

// RecordOf builds a record from alternating name/value pairs.
func RecordOf(pairs ...string) Record {
	var r Record
	for i := 0; i+1 < len(pairs); i += 2 {
		r.set(pairs[i], pairs[i+1])
	}
	return r
}

func (r *Record) set(name, value string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Fields returns a copy of the record's fields in order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Names returns the field names in order.
func (r Record) Names() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

// Get returns the value stored under name.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// MarshalJSON encodes the record as a JSON object with keys in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}

	*r = Record{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("record: unexpected key token %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("record: value for %q: %w", key, err)
		}
		r.set(key, value)
	}
	_, err = dec.Token()
	return err
}

// Snapshot is the dataset produced by one successful run.
type Snapshot struct {
	RunID     string    `json:"run_id"`
	ScrapedAt time.Time `json:"scraped_at"`
	Records   []Record  `json:"records"`
}

// Headers returns the column order used for exports: the first record's names.
func (s *Snapshot) Headers() []string {
	if s == nil || len(s.Records) == 0 {
		return nil
	}
	return s.Records[0].Names()
}

// RunState is the terminal state of a scrape run.
type RunState string

const (
	RunDone   RunState = "done"
	RunFailed RunState = "failed"
)

// RunResult is what the pagination driver hands back after a run. A failed
// run still carries the records extracted before the failure.
type RunResult struct {
	RunID      string
	State      RunState
	Pages      int
	Records    []Record
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Snapshot converts the result into a publishable dataset.
func (r *RunResult) Snapshot() *Snapshot {
	return &Snapshot{
		RunID:     r.RunID,
		ScrapedAt: r.FinishedAt,
		Records:   r.Records,
	}
}

// StoredSnapshot is the persisted form of the latest published dataset.
type StoredSnapshot struct {
	// GORM will automatically add ID, CreatedAt, UpdatedAt, DeletedAt
	gorm.Model

	RunID       string    `gorm:"type:varchar(36);uniqueIndex"`
	ScrapedAt   time.Time `gorm:"not null"`
	RecordCount int
	// JSON array of records, keys in column order
	Records []byte `gorm:"type:jsonb;not null"`
}
