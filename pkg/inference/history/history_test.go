package history

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/stretchr/testify/require"
)

func sys(c string) turns.Message   { return turns.Message{ID: c, Kind: turns.KindSystem, Content: c} }
func human(c string) turns.Message { return turns.Message{ID: c, Kind: turns.KindHuman, Content: c} }
func ai(c string, ids ...string) turns.Message {
	m := turns.Message{ID: c, Kind: turns.KindAI, Content: c}
	for _, id := range ids {
		m.ToolCalls = append(m.ToolCalls, turns.ToolCall{ID: id, Name: "set_plan"})
	}
	return m
}
func tool(id string) turns.Message {
	return turns.Message{ID: "r-" + id, Kind: turns.KindTool, ToolCallID: id, Content: "ok"}
}

func ids(msgs []turns.Message) []string {
	ret := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ret = append(ret, m.ID)
	}
	return ret
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name     string
		in       []turns.Message
		expected []string
		dropped  []string
	}{
		{
			name:     "empty",
			in:       nil,
			expected: []string{},
		},
		{
			name:     "system messages hoisted in order",
			in:       []turns.Message{human("h1"), sys("s1"), ai("a1"), sys("s2")},
			expected: []string{"s1", "s2", "h1", "a1"},
		},
		{
			name:     "paired tool result kept",
			in:       []turns.Message{ai("a1", "c1"), tool("c1")},
			expected: []string{"a1", "r-c1"},
		},
		{
			name:     "tool result before its request dropped",
			in:       []turns.Message{tool("c1"), ai("a1", "c1")},
			expected: []string{"a1"},
			dropped:  []string{"c1"},
		},
		{
			name:     "pending id consumed once",
			in:       []turns.Message{ai("a1", "c1"), tool("c1"), tool("c1")},
			expected: []string{"a1", "r-c1"},
			dropped:  []string{"c1"},
		},
		{
			name:     "unknown id dropped",
			in:       []turns.Message{human("h1"), ai("a1", "c1"), tool("c2"), tool("c1")},
			expected: []string{"h1", "a1", "r-c1"},
			dropped:  []string{"c2"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, report := ValidateWithReport(c.in)
			require.Equal(t, c.expected, ids(out))
			require.Equal(t, c.dropped, report.DroppedToolCallIDs)
			require.Equal(t, len(c.dropped), report.Dropped())
		})
	}
}

func TestValidateDoesNotModifyInput(t *testing.T) {
	in := []turns.Message{human("h1"), sys("s1"), tool("c9")}
	_ = Validate(in)
	require.Equal(t, []string{"h1", "s1", "r-c9"}, ids(in))
}

func randomHistory(r *rand.Rand, n int) []turns.Message {
	msgs := make([]turns.Message, 0, n)
	callSeq := 0
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("m%d", i)
		switch r.Intn(5) {
		case 0:
			msgs = append(msgs, sys(id))
		case 1:
			msgs = append(msgs, human(id))
		case 2:
			m := ai(id)
			for k := 0; k < r.Intn(3); k++ {
				callSeq++
				m.ToolCalls = append(m.ToolCalls, turns.ToolCall{ID: fmt.Sprintf("c%d", callSeq), Name: "get_weather"})
			}
			msgs = append(msgs, m)
		default:
			m := tool(fmt.Sprintf("c%d", r.Intn(callSeq+2)))
			m.ID = id
			msgs = append(msgs, m)
		}
	}
	return msgs
}

func TestValidateProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 500; iter++ {
		in := randomHistory(r, r.Intn(30))
		out := Validate(in)

		systemCount := 0
		for _, m := range in {
			if m.Kind == turns.KindSystem {
				systemCount++
			}
		}
		// system prefix, exactly once each
		for i, m := range out {
			if i < systemCount {
				require.Equal(t, turns.KindSystem, m.Kind)
			} else {
				require.NotEqual(t, turns.KindSystem, m.Kind)
			}
		}

		// every kept tool result is preceded by a matching request and ids are unique
		requested := map[string]bool{}
		answered := map[string]bool{}
		for _, m := range out {
			if m.HasToolCalls() {
				for _, id := range m.ToolCallIDs() {
					requested[id] = true
				}
			}
			if m.Kind == turns.KindTool {
				require.True(t, requested[m.ToolCallID], "orphan %s survived", m.ToolCallID)
				require.False(t, answered[m.ToolCallID], "duplicate result %s survived", m.ToolCallID)
				answered[m.ToolCallID] = true
			}
		}

		// idempotent
		require.Equal(t, ids(out), ids(Validate(out)))
	}
}

func TestTrim(t *testing.T) {
	msgs := make([]turns.Message, 0, 20)
	for i := 0; i < 20; i++ {
		msgs = append(msgs, human(fmt.Sprintf("h%d", i)))
	}
	require.Len(t, Trim(msgs, 12), 12)
	require.Equal(t, "h8", Trim(msgs, 12)[0].ID)
	require.Equal(t, "h19", Trim(msgs, 12)[11].ID)
	require.Len(t, Trim(msgs, 0), DefaultWindow)
	require.Len(t, Trim(msgs[:5], 12), 5)
	require.Len(t, Trim(msgs, 50), 20)
}

func TestTrimThenValidateDropsSeveredResults(t *testing.T) {
	msgs := []turns.Message{human("h0"), ai("a1", "c1"), tool("c1"), human("h2")}
	out := Validate(append([]turns.Message{sys("s")}, Trim(msgs, 2)...))
	require.Equal(t, []string{"s", "h2"}, ids(out))
}

func TestDropLeadingOrphans(t *testing.T) {
	in := []turns.Message{tool("c0"), human("h1"), tool("c1"), ai("a1", "c2"), tool("c2"), tool("c3")}
	out, report := DropLeadingOrphans(in)
	require.Equal(t, []string{"h1", "a1", "r-c2", "r-c3"}, ids(out))
	require.Equal(t, []string{"c0", "c1"}, report.DroppedToolCallIDs)
}
