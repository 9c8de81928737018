package reduce

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spoolworks/weft/pkg/chat"
	"github.com/spoolworks/weft/pkg/patch"
	"github.com/spoolworks/weft/pkg/sse"
)

// Translator normalizes one vendor frame into zero or more generic
// patches. The agent platform speaks the patch protocol directly; the bot
// platform's named events are rewritten into equivalent patches.
type Translator interface {
	Translate(f sse.Frame) ([]patch.Patch, error)
}

// errDone stops the Run loop once an end patch arrives.
var errDone = errors.New("reduction complete")

// Engine folds one message's event stream. An Engine is bound to a single
// message id and a single stream; start the next message with a new
// Engine. Frames are processed strictly in arrival order, one at a time.
type Engine struct {
	translator Translator
	projectors *Projectors
	log        *slog.Logger

	messageID string
	tree      patch.Tree
	done      bool
}

// NewEngine creates an Engine projecting into sink under messageID.
func NewEngine(translator Translator, sink chat.Sink, messageID string, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		translator: translator,
		projectors: NewProjectors(sink, log),
		log:        log,
		messageID:  messageID,
		tree:       patch.Tree{},
	}
}

// Reduce folds one frame: translate, apply each patch to the tree, route
// it through the whitelist, and project. Errors on a single frame are
// logged and swallowed — the stream continues against the last
// successfully reduced tree.
func (e *Engine) Reduce(f sse.Frame) {
	if e.done {
		return
	}

	defer func() {
		// A malformed payload shape must never abort the stream.
		if r := recover(); r != nil {
			e.log.Warn("frame reduction panicked", "recovered", r, "event", f.Type)
		}
	}()

	patches, err := e.translator.Translate(f)
	if err != nil {
		e.log.Warn("dropping undecodable frame", "error", err, "event", f.Type)
		return
	}

	for _, p := range patches {
		if p.Action == patch.ActionEnd {
			e.done = true
			return
		}

		e.tree = patch.Apply(e.tree, p)

		if entry := route(p.Action, p.Key); entry != nil {
			entry.project(e.projectors, e.tree, p, e.messageID)
		}
	}
}

// Run decodes r frame by frame and reduces until the stream ends, ctx is
// cancelled, or an end patch arrives.
func (e *Engine) Run(ctx context.Context, r io.Reader) error {
	err := sse.Stream(ctx, r, func(f sse.Frame) error {
		e.Reduce(f)
		if e.done {
			return errDone
		}
		return nil
	})
	if errors.Is(err, errDone) {
		return nil
	}
	return err
}

// Done reports whether an end patch has been seen.
func (e *Engine) Done() bool {
	return e.done
}

// Tree returns the current assistant-message tree snapshot. Snapshots are
// safe to inspect: Apply derives a new tree per patch and never mutates a
// returned one.
func (e *Engine) Tree() patch.Tree {
	return e.tree
}
