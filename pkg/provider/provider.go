// Package provider defines the capability interface every vendor chat
// adapter implements. Adapters translate a vendor's native wire shapes
// into the generic patch protocol and own the session lifecycle calls.
// The concrete adapters live in the bot and agent subpackages and are
// selected at construction, never via subclassing.
//
// The declarations live in the core subpackage so the adapter
// subpackages can share them without importing this package (which
// imports them for construction); they are re-exported here as aliases.
package provider

import (
	"github.com/spoolworks/weft/pkg/provider/core"
)

// ErrNotSupported is returned for session-management operations a vendor
// does not expose (the bot platform omits history management).
var ErrNotSupported = core.ErrNotSupported

// OnboardingInfo is the vendor-configured conversation opener.
type OnboardingInfo = core.OnboardingInfo

// ConversationSummary is one row of the vendor's conversation history list.
type ConversationSummary = core.ConversationSummary

// SendRequest carries one user turn to the vendor.
type SendRequest = core.SendRequest

// Adapter is the five-method-plus-sessions capability surface both
// vendors implement against different wire shapes.
type Adapter = core.Adapter

// EmbedContext prepends the application context as an indented JSON block
// ahead of the user's literal text. Marshalling failures fall back to the
// bare text — context is advisory, never a reason to drop the message.
func EmbedContext(text string, appCtx map[string]any) string {
	return core.EmbedContext(text, appCtx)
}
