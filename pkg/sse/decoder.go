package sse

import (
	"context"
	"encoding/json"
	"io"
	"strings"
)

// doneSentinel is the literal payload some vendors emit to mark the end of
// a stream. It is recognized and discarded without producing a Frame.
const doneSentinel = "[DONE]"

// Decoder turns a sequence of byte chunks into Frames. A Decoder is bound
// to exactly one stream: it holds the carry-over of a line split across
// chunks and the pending event type for the next data line. Start a new
// stream with a new Decoder (or Reset).
type Decoder struct {
	// carry holds the trailing partial line of the previous chunk.
	carry string

	// eventType is the pending type set by the last "event:" line. It is
	// consumed by the next "data:" line and then cleared.
	eventType string
}

// NewDecoder returns a Decoder ready to consume the first chunk of a stream.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the carry-over buffer, splits on newlines, and
// returns the Frames completed by this chunk. The final fragment (no
// terminating newline yet) is retained as the new carry-over.
func (d *Decoder) Feed(chunk []byte) []Frame {
	buf := d.carry + string(chunk)
	lines := strings.Split(buf, "\n")

	// The last element is the text after the final newline: either empty
	// (chunk ended exactly on a newline) or an incomplete line.
	d.carry = lines[len(lines)-1]

	var frames []Frame
	for _, line := range lines[:len(lines)-1] {
		if f, ok := d.decodeLine(strings.TrimSuffix(line, "\r")); ok {
			frames = append(frames, f)
		}
	}

	return frames
}

// Close ends the stream. Any non-empty carry-over is discarded: a trailing
// frame without a terminating newline is never delivered.
func (d *Decoder) Close() {
	d.carry = ""
	d.eventType = ""
}

// Reset rebinds the Decoder to a fresh stream.
func (d *Decoder) Reset() {
	d.Close()
}

// decodeLine processes one complete line. "event:" lines set the pending
// event type; "data:" lines yield a Frame. Everything else (blank lines,
// comments, unknown fields) is skipped.
func (d *Decoder) decodeLine(line string) (Frame, bool) {
	switch {
	case strings.HasPrefix(line, "event:"):
		d.eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		return Frame{}, false

	case strings.HasPrefix(line, "data:"):
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == doneSentinel {
			d.eventType = ""
			return Frame{}, false
		}

		f := Frame{Type: d.eventType, Data: data}
		if f.Type == "" {
			f.Type = typeFromPayload(data)
		}

		// The event-type context covers exactly one data line.
		d.eventType = ""
		return f, true
	}

	return Frame{}, false
}

// typeFromPayload extracts an event type from the payload's own "event" or
// "type" field when the stream carried no "event:" line. Payloads that are
// not JSON objects simply yield an empty type.
func typeFromPayload(data string) string {
	var probe struct {
		Event string `json:"event"`
		Type  string `json:"type"`
	}
	if err := json.Unmarshal([]byte(data), &probe); err != nil {
		return ""
	}
	if probe.Event != "" {
		return probe.Event
	}
	return probe.Type
}

// Stream reads r in transport-sized chunks and invokes fn for every decoded
// Frame, in order. It returns when the reader is exhausted, ctx is
// cancelled, or fn returns an error. The reader's own error (other than
// io.EOF) is returned as-is.
func Stream(ctx context.Context, r io.Reader, fn func(Frame) error) error {
	d := NewDecoder()
	defer d.Close()

	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			for _, f := range d.Feed(buf[:n]) {
				if err := fn(f); err != nil {
					return err
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
