package turns

import (
	"fmt"
	"io"
	"strings"
)

// FprintMessages prints a message history in a readable, transcript-like form.
func FprintMessages(w io.Writer, msgs []Message) {
	for _, m := range msgs {
		switch m.Kind {
		case KindSystem:
			fmt.Fprintf(w, "system: %s\n", firstLine(m.Content))
		case KindHuman:
			fmt.Fprintf(w, "user: %s\n", m.Content)
		case KindAI:
			if m.Content != "" {
				fmt.Fprintf(w, "assistant: %s\n", m.Content)
			}
			for _, tc := range m.ToolCalls {
				fmt.Fprintf(w, "tool_call: %s (%s)\n", tc.Name, tc.ID)
			}
		case KindTool:
			fmt.Fprintf(w, "tool_result[%s]: %s\n", m.ToolCallID, m.Content)
		default:
			fmt.Fprintf(w, "%s: %s\n", m.Kind, m.Content)
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
