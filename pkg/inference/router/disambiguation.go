package router

import (
	"strings"

	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
)

const (
	ChooseItemPrompt     = "Please choose which item you mean."
	ChooseCardTypePrompt = "Which type of card should I create?"
)

var (
	editKeywords     = []string{"item", "rename", "update", "modify", "change", "edit"}
	idMarkers        = []string{"id=", "item id"}
	createKeywords   = []string{"create", "add", "new"}
	cardKeywords     = []string{"item", "card"}
	itemTypeKeywords = []string{"project", "entity", "note", "chart"}
)

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// NeedsItemChoice reports whether the human message asks to edit an item
// without saying which one while several items exist.
func NeedsItemChoice(human turns.Message, items []state.Item) bool {
	if len(items) <= 1 {
		return false
	}
	text := strings.ToLower(human.Content)
	if !containsAny(text, editKeywords) {
		return false
	}
	if containsAny(text, idMarkers) {
		return false
	}
	for _, it := range items {
		if it.ID != "" && strings.Contains(text, strings.ToLower(it.ID)) {
			return false
		}
	}
	return true
}

// NeedsCardType reports whether the human message asks to create an item
// without naming its type.
func NeedsCardType(human turns.Message) bool {
	text := strings.ToLower(human.Content)
	return containsAny(text, createKeywords) &&
		containsAny(text, cardKeywords) &&
		!containsAny(text, itemTypeKeywords)
}

// CardTypeMessage is the clarifying message added to the prompt once a type is chosen.
func CardTypeMessage(answer string) turns.Message {
	return turns.NewHumanMessage("Create a " + answer + " item.")
}

// disambiguation is what the side branches decided for this hop.
type disambiguation struct {
	interrupt *state.Interrupt
	update    state.Update
	// extra goes into the prompt right after clarify; it is not persisted.
	clarify   *turns.Message
	extra     []turns.Message
}

// disambiguate runs the choose_item and choose_card_type checks against the
// latest human message. An answer in st.Resume is consumed and bound to that
// message, so each question is asked at most once per human message.
func disambiguate(st *state.State, msgs []turns.Message) disambiguation {
	var d disambiguation
	human, ok := turns.LastHuman(msgs)
	if !ok {
		return d
	}

	if NeedsItemChoice(human, st.Items) {
		answer, ok := st.AnswerFor(state.InterruptChooseItem, human.ID)
		if !ok {
			d.interrupt = &state.Interrupt{Type: state.InterruptChooseItem, Content: ChooseItemPrompt, MessageID: human.ID}
			return d
		}
		d.update = d.update.Merge(consume(state.InterruptChooseItem, answer, human.ID))
		d.update.ChosenItemID = state.Ptr(answer.Answer)
	}

	if NeedsCardType(human) {
		answer, ok := st.AnswerFor(state.InterruptChooseCardType, human.ID)
		if !ok {
			d.interrupt = &state.Interrupt{Type: state.InterruptChooseCardType, Content: ChooseCardTypePrompt, MessageID: human.ID}
			return d
		}
		d.update = d.update.Merge(consume(state.InterruptChooseCardType, answer, human.ID))
		d.clarify = &human
		d.extra = append(d.extra, CardTypeMessage(answer.Answer))
	}
	return d
}

func consume(t state.InterruptType, a state.Answer, messageID string) state.Update {
	return state.Update{
		ClearInterrupt: true,
		Resume:         map[state.InterruptType]state.Answer{t: {Answer: a.Answer, MessageID: messageID}},
	}
}
