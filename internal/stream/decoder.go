// Package stream frames an agent's line-delimited JSON output into discrete
// records, independent of how the byte stream is chunked by the OS pipe.
package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is one decoded JSON object from the agent's output stream.
// The raw line is retained so callers can report undecodable payloads.
type Record struct {
	Line string
	Data map[string]interface{}
}

// DecodeError reports a single malformed line. It is recoverable: the
// decoder drops the line and continues with the rest of the stream.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed stream record: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder accumulates arbitrary-sized text chunks and emits one Record per
// complete newline-terminated JSON line. A trailing fragment with no newline
// is retained until the next Write (or Flush) completes it.
type Decoder struct {
	buf       strings.Builder
	onRecord  func(Record)
	onError   func(error)
}

// NewDecoder creates a Decoder. onRecord receives each complete record in
// arrival order. onError receives a *DecodeError for each malformed line;
// it may be nil to silently drop them.
func NewDecoder(onRecord func(Record), onError func(error)) *Decoder {
	return &Decoder{onRecord: onRecord, onError: onError}
}

// Write consumes one chunk of stream text. Chunk boundaries carry no meaning:
// a record split across chunks is reassembled before parsing.
func (d *Decoder) Write(chunk string) {
	d.buf.WriteString(chunk)
	data := d.buf.String()

	idx := strings.LastIndexByte(data, '\n')
	if idx < 0 {
		return // no complete line yet
	}

	complete := data[:idx]
	d.buf.Reset()
	d.buf.WriteString(data[idx+1:])

	for _, line := range strings.Split(complete, "\n") {
		d.decodeLine(line)
	}
}

// Flush processes any retained fragment as a final record. Call once at
// stream end to handle output whose last line has no trailing newline.
func (d *Decoder) Flush() {
	if d.buf.Len() == 0 {
		return
	}
	line := d.buf.String()
	d.buf.Reset()
	d.decodeLine(line)
}

func (d *Decoder) decodeLine(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		if d.onError != nil {
			d.onError(&DecodeError{Line: trimmed, Err: err})
		}
		return
	}

	d.onRecord(Record{Line: trimmed, Data: data})
}
