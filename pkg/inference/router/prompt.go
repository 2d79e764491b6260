package router

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/rs/zerolog/log"
)

// Guidance attached to the update by each route.
const (
	GuidanceDeletion = "If a deletion tool reports success (deleted:ID), acknowledge deletion even if the item no longer exists afterwards."
	GuidanceFrontend = "Frontend tool calls issued. Waiting for client tool results before continuing."
	GuidanceContinue = "Plan is in progress. Proceed to the next step automatically. " +
		"Update the step status to in_progress, call necessary tools, and mark it completed when done."
	GuidanceComplete = "All steps are completed. Call complete_plan to mark the plan as finished, " +
		"then present a concise summary of outcomes."
)

const fieldSchema = `FIELD SCHEMA:
- project: field1 (text), field2 (select: A/B/C), field3 (date YYYY-MM-DD), field4 (checklist items)
- entity: field1 (text), field2 (select: A/B/C), field3 (selected tags from field3_options)
- note: field1 (content/description)
- chart: field1 (metrics array with label and value 0-100)
- All types have subtitle (card subtitle)`

const coreRules = `CORE RULES:
- Always use current state as ground truth, not chat history
- When changing items, MUST call corresponding tools
- For descriptions/subtitles: use setItemSubtitleOrDescription (not data fields)
- For note content: use setNoteField1/appendNoteField1
- If item not specified, check lastAction or ask user to choose`

const planning = `PLANNING:
- For multi-step tasks, call set_plan with step titles
- Auto-proceed through steps: update_plan_progress → execute → mark completed
- Call complete_plan only after verifying all deliverables exist`

const loopControl = `LOOP CONTROL:
- Never repeat the same tool in one turn
- After mutations, summarize and stop
- If lastAction shows 'created:', don't auto-create more unless explicitly asked`

// snapshot is the part of the state rendered into both system messages.
type snapshot struct {
	Heading     string
	Title       string
	Description string
	Items       string
	LastAction  string
	Status      state.PlanStatus
	Index       int
	StepTitles  []string
}

var promptTemplates = template.Must(template.New("prompt").Funcs(sprig.TxtFuncMap()).Parse(
	`{{ define "header" }}{{ .Heading }}
globalTitle: {{ .Title }}
globalDescription: {{ .Description }}
items:
{{ .Items }}
lastAction: {{ .LastAction }}
planStatus: {{ .Status }} (step {{ .Index }})
{{ end }}` +
		`{{ define "planSteps" }}planSteps: [{{ range $i, $t := .StepTitles }}{{ if $i }}, {{ end }}{{ quote $t }}{{ end }}]{{ end }}`,
))

func takeSnapshot(st *state.State) snapshot {
	items, err := state.SummarizeItems(st.Items)
	if err != nil {
		log.Debug().Err(err).Msg("could not summarize items")
		items = state.UnavailableSummary
	}
	titles := make([]string, 0, len(st.PlanSteps))
	for _, s := range st.PlanSteps {
		titles = append(titles, s.Title)
	}
	return snapshot{
		Title:       st.GlobalTitle,
		Description: st.GlobalDescription,
		Items:       items,
		LastAction:  st.LastAction,
		Status:      st.PlanStatus,
		Index:       st.CurrentStepIndex,
		StepTitles:  titles,
	}
}

func (s snapshot) render(name string) string {
	var b strings.Builder
	if err := promptTemplates.ExecuteTemplate(&b, name, s); err != nil {
		log.Warn().Err(err).Str("template", name).Msg("could not render prompt section")
		return ""
	}
	return b.String()
}

func (s snapshot) header(heading string) string {
	s.Heading = heading
	return s.render("header")
}

// SystemPrompt renders the leading system message: the current state
// snapshot followed by the standing instructions and the last guidance.
func SystemPrompt(st *state.State) string {
	s := takeSnapshot(st)
	var b strings.Builder
	b.WriteString(s.header("CURRENT STATE:"))
	b.WriteString(s.render("planSteps") + "\n\n")
	b.WriteString(fieldSchema + "\n\n")
	b.WriteString(coreRules + "\n\n")
	b.WriteString(planning + "\n\n")
	b.WriteString(loopControl + "\n\n")
	b.WriteString(st.LastToolGuidance)
	return b.String()
}

// LatestStateReminder renders the system message appended after the
// trimmed history.
func LatestStateReminder(st *state.State) string {
	return takeSnapshot(st).header("LATEST STATE (use this, not chat history):")
}
