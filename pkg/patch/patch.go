// Package patch implements the generic keypath mutation protocol spoken by
// the agent platform's event stream. A stream of small patches — each an
// (action, key path, content) triple — is folded left-to-right into a
// growing JSON-shaped tree representing the in-progress assistant message.
package patch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is the mutation kind carried by a Patch.
type Action string

const (
	// ActionUpsert sets the value at the key path, replacing any previous
	// value and creating intermediate containers as needed.
	ActionUpsert Action = "upsert"

	// ActionAppend concatenates string content onto a string leaf, or
	// inserts/replaces an array slot when the final path segment is numeric.
	ActionAppend Action = "append"

	// ActionEnd signals stream completion. It never mutates the tree.
	ActionEnd Action = "end"
)

// Path addresses a location in the tree. Elements are field names (string)
// or array indices (int).
type Path []any

// Patch is one mutation instruction.
type Patch struct {
	SeqID   int
	Key     Path
	Action  Action
	Content any
}

// wirePatch is the agent platform's frame payload shape.
type wirePatch struct {
	SeqID   int             `json:"seq_id"`
	Key     []any           `json:"key"`
	Action  string          `json:"action"`
	Content json.RawMessage `json:"content"`
}

// UnmarshalJSON decodes the wire shape {seq_id, key, action, content},
// normalizing JSON numbers in the key array to int indices.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var w wirePatch
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	key := make(Path, 0, len(w.Key))
	for _, seg := range w.Key {
		switch v := seg.(type) {
		case string:
			key = append(key, v)
		case float64:
			key = append(key, int(v))
		default:
			return fmt.Errorf("unsupported key segment %T", seg)
		}
	}

	var content any
	if len(w.Content) > 0 {
		if err := json.Unmarshal(w.Content, &content); err != nil {
			return fmt.Errorf("decoding patch content: %w", err)
		}
	}

	p.SeqID = w.SeqID
	p.Key = key
	p.Action = Action(w.Action)
	p.Content = content

	return nil
}

// String renders the path in dotted/bracket form, e.g. "a.b[2].c".
// This is the form the whitelist matches against.
func (p Path) String() string {
	var b strings.Builder
	for _, seg := range p {
		switch v := seg.(type) {
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		default:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			fmt.Fprintf(&b, "%v", v)
		}
	}
	return b.String()
}
