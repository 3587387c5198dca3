// Package json provides JSON serialization with pooled buffers, backed by
// goccy/go-json for performance.
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	// Don't pool oversized buffers
	if buf.Cap() > 1<<20 {
		return
	}
	bufferPool.Put(buf)
}

// NewEncoder creates a JSON encoder for the writer with HTML escaping
// disabled, matching the wire format the downstream pipeline expects.
func NewEncoder(w io.Writer) *gojson.Encoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// NewDecoder creates a JSON decoder for the reader
func NewDecoder(r io.Reader) *gojson.Decoder {
	return gojson.NewDecoder(r)
}

// Marshal serializes a value to JSON
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal deserializes JSON into a value
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalToBuffer serializes a value into a pooled buffer. The caller must
// return the buffer with PutBuffer when done.
func MarshalToBuffer(v interface{}) (*bytes.Buffer, error) {
	buf := GetBuffer()
	enc := NewEncoder(buf)
	if err := enc.Encode(v); err != nil {
		PutBuffer(buf)
		return nil, err
	}
	return buf, nil
}
