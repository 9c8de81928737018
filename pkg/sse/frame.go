// Package sse decodes Server-Sent-Events byte streams into discrete frames.
// It is purpose-built for the vendor chat streams weft consumes: the
// transport delivers chunks of arbitrary size, and a frame may be split
// across any chunk boundary, so the decoder carries partial lines between
// Feed calls.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Frame represents one decoded SSE event.
type Frame struct {
	// Type is the event type from the preceding "event:" line. When the
	// stream carries no "event:" line, the decoder lifts the type from the
	// payload's own "event" or "type" JSON field, best effort.
	Type string

	// Data is the trimmed payload of the "data:" line.
	Data string
}
