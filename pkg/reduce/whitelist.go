// Package reduce folds a vendor event stream into an assistant-message
// tree and projects whitelisted mutations into renderable content blocks.
// The fold is strictly ordered and single-threaded: one frame at a time is
// translated into patches, applied to the tree, routed through the
// whitelist, and projected through the chat.Sink.
package reduce

import (
	"regexp"

	"github.com/spoolworks/weft/pkg/patch"
)

// Tree paths with UI-visible projections. Everything else the server sends
// is absorbed into the tree and projects nothing — silent drop is the
// contract, protecting against unknown future server fields.
const (
	pathFinalAnswerText  = "message.content.final_answer.answer.text"
	pathFinalAnswerOther = "message.content.final_answer.answer_type_other"
)

// The progress array paths repeat with an unbounded index, so they are
// matched by pattern rather than listed exactly.
var (
	progressEntryPattern  = regexp.MustCompile(`^message\.content\.middle_answer\.progress\[\d+\]$`)
	progressAnswerPattern = regexp.MustCompile(`^message\.content\.middle_answer\.progress\[\d+\]\.answer$`)
)

// projectFunc reads the just-patched tree region and the raw patch content
// and emits or updates a content block for the target message.
type projectFunc func(p *Projectors, tree patch.Tree, pt patch.Patch, messageID string)

// entry is one whitelist row. Exactly one of path or pattern is set.
type entry struct {
	action  patch.Action
	path    string
	pattern *regexp.Regexp
	project projectFunc
}

// whitelist is the static, process-wide projection table. Read-only after
// construction.
var whitelist = []entry{
	{action: patch.ActionAppend, path: pathFinalAnswerText, project: (*Projectors).finalAnswerText},
	{action: patch.ActionUpsert, path: pathFinalAnswerText, project: (*Projectors).finalAnswerText},
	{action: patch.ActionUpsert, path: pathFinalAnswerOther, project: (*Projectors).finalAnswerOther},
	{action: patch.ActionAppend, pattern: progressEntryPattern, project: (*Projectors).progressEntry},
	{action: patch.ActionAppend, pattern: progressAnswerPattern, project: (*Projectors).progressAnswer},
}

// route returns the whitelist entry for (action, keyPath), or nil when the
// patch should mutate the tree without any UI side effect.
func route(action patch.Action, key patch.Path) *entry {
	rendered := key.String()
	for i := range whitelist {
		e := &whitelist[i]
		if e.action != action {
			continue
		}
		if e.path != "" && e.path == rendered {
			return e
		}
		if e.pattern != nil && e.pattern.MatchString(rendered) {
			return e
		}
	}
	return nil
}
