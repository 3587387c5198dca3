// Package models provides the record types that flow between the source
// connector and the downstream ingestion pipeline.
package models

import (
	"fmt"
	"time"

	gojson "github.com/goccy/go-json"
)

// RecordMetadata carries provenance information alongside record data.
// All fields are optional; the extraction path fills what it knows.
type RecordMetadata struct {
	// Source identifies the origin connector
	Source string `json:"source,omitempty"`
	// Entity names the remote collection the record came from
	Entity string `json:"entity,omitempty"`
	// Page is the 1-based page the record was fetched on
	Page int `json:"page,omitempty"`
	// Timestamp is when the record was extracted
	Timestamp time.Time `json:"timestamp,omitempty"`
	// Custom holds additional connector-specific metadata
	Custom map[string]interface{} `json:"custom,omitempty"`
}

// Record is a single flattened record produced by a source connector.
// Data holds the decoded JSON object as returned by the remote API.
type Record struct {
	Data     map[string]interface{} `json:"data"`
	Metadata RecordMetadata         `json:"metadata"`
}

// NewRecord creates a record for the given source with the decoded data.
func NewRecord(source string, data map[string]interface{}) *Record {
	return &Record{
		Data: data,
		Metadata: RecordMetadata{
			Source:    source,
			Timestamp: time.Now(),
		},
	}
}

// SetData sets a data field
func (r *Record) SetData(key string, value interface{}) {
	if r.Data == nil {
		r.Data = make(map[string]interface{})
	}
	r.Data[key] = value
}

// GetData returns a data field
func (r *Record) GetData(key string) (interface{}, bool) {
	v, ok := r.Data[key]
	return v, ok
}

// SetMetadata sets a custom metadata field
func (r *Record) SetMetadata(key string, value interface{}) {
	if r.Metadata.Custom == nil {
		r.Metadata.Custom = make(map[string]interface{})
	}
	r.Metadata.Custom[key] = value
}

// ID returns the record's "id" field rendered as a string. The Harvest API
// returns numeric ids; the JSON decoder may surface them as float64,
// json.Number, or int64 depending on decode options, and nested traversal
// needs them in URL form.
func (r *Record) ID() (string, bool) {
	raw, ok := r.Data["id"]
	if !ok || raw == nil {
		return "", false
	}

	switch v := raw.(type) {
	case string:
		return v, v != ""
	case gojson.Number:
		return v.String(), true
	case float64:
		return fmt.Sprintf("%.0f", v), true
	case int64:
		return fmt.Sprintf("%d", v), true
	case int:
		return fmt.Sprintf("%d", v), true
	default:
		return "", false
	}
}

// RecordBatch represents a batch of records for bulk hand-off.
type RecordBatch struct {
	Records []*Record
}

// NewRecordBatch creates a batch with the specified capacity.
func NewRecordBatch(capacity int) *RecordBatch {
	return &RecordBatch{
		Records: make([]*Record, 0, capacity),
	}
}

// AddRecord appends a record to the batch.
func (rb *RecordBatch) AddRecord(r *Record) {
	rb.Records = append(rb.Records, r)
}

// Reset clears the batch for reuse without deallocating memory.
func (rb *RecordBatch) Reset() {
	rb.Records = rb.Records[:0]
}

// Size returns the current number of records in the batch.
func (rb *RecordBatch) Size() int {
	return len(rb.Records)
}
