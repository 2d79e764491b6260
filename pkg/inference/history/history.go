// Package history sanitizes the conversation sent to the model: it keeps
// tool results paired with the tool-call requests that produced them and
// bounds how much history each call carries.
package history

import (
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/rs/zerolog/log"
)

// DefaultWindow is how many trailing history messages a model call carries.
const DefaultWindow = 12

// Report describes what Validate dropped.
type Report struct {
	// DroppedToolCallIDs lists the tool_call_id of every orphaned tool result, in order.
	DroppedToolCallIDs []string
}

// Dropped is the number of orphaned tool results removed.
func (r Report) Dropped() int {
	return len(r.DroppedToolCallIDs)
}

// Validate reorders and filters msgs so the sequence is acceptable to the
// model provider. See ValidateWithReport.
func Validate(msgs []turns.Message) []turns.Message {
	out, _ := ValidateWithReport(msgs)
	return out
}

// ValidateWithReport hoists every system message to the front in relative
// order, then walks the rest: tool-call ids of AI messages become pending, a
// tool result is kept only when its id is pending (and consumes it), every
// other message is kept. Orphaned tool results are dropped with a warning.
// The input is never modified.
func ValidateWithReport(msgs []turns.Message) ([]turns.Message, Report) {
	var report Report
	if len(msgs) == 0 {
		return msgs, report
	}

	out := make([]turns.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Kind == turns.KindSystem {
			out = append(out, m)
		}
	}

	pending := map[string]struct{}{}
	for _, m := range msgs {
		switch {
		case m.Kind == turns.KindSystem:
			continue
		case m.HasToolCalls():
			for _, id := range m.ToolCallIDs() {
				pending[id] = struct{}{}
			}
			out = append(out, m)
		case m.Kind == turns.KindTool:
			if _, ok := pending[m.ToolCallID]; ok && m.ToolCallID != "" {
				delete(pending, m.ToolCallID)
				out = append(out, m)
				continue
			}
			log.Warn().Str("tool_call_id", m.ToolCallID).Msg("skipping orphaned tool message")
			report.DroppedToolCallIDs = append(report.DroppedToolCallIDs, m.ToolCallID)
		default:
			out = append(out, m)
		}
	}
	return out, report
}

// Trim keeps the last max messages. max <= 0 means DefaultWindow. The cut may
// separate tool results from their requests; run Validate on the assembled
// sequence afterwards.
func Trim(msgs []turns.Message, max int) []turns.Message {
	if max <= 0 {
		max = DefaultWindow
	}
	if len(msgs) <= max {
		return msgs
	}
	return msgs[len(msgs)-max:]
}

// DropLeadingOrphans removes tool results that occur before the first AI
// message carrying tool-call requests.
func DropLeadingOrphans(msgs []turns.Message) ([]turns.Message, Report) {
	var report Report
	out := make([]turns.Message, 0, len(msgs))
	seenCalls := false
	for _, m := range msgs {
		if m.HasToolCalls() {
			seenCalls = true
		}
		if m.Kind == turns.KindTool && !seenCalls {
			log.Warn().Str("tool_call_id", m.ToolCallID).Msg("removing orphaned tool message at start")
			report.DroppedToolCallIDs = append(report.DroppedToolCallIDs, m.ToolCallID)
			continue
		}
		out = append(out, m)
	}
	return out, report
}
