package state

// InterruptType names the choice a suspended turn is waiting for.
type InterruptType string

const (
	InterruptChooseItem     InterruptType = "choose_item"
	InterruptChooseCardType InterruptType = "choose_card_type"
)

// Interrupt is the awaiting_input request emitted when the router needs an
// external decision before it can call the model.
//
// MessageID is the id of the human message that triggered the question.
type Interrupt struct {
	Type      InterruptType `json:"type" yaml:"type"`
	Content   string        `json:"content" yaml:"content"`
	MessageID string        `json:"message_id,omitempty" yaml:"message_id,omitempty"`
}

// Answer is the resume payload for an interrupt.
//
// An answer with an empty MessageID applies to the current human message; once
// consumed it is bound to that message so later hops of the same request reuse it.
type Answer struct {
	Answer    string `json:"answer" yaml:"answer"`
	MessageID string `json:"message_id,omitempty" yaml:"message_id,omitempty"`
}

// AnswerFor returns the usable answer for the given interrupt type and human message.
func (s *State) AnswerFor(t InterruptType, messageID string) (Answer, bool) {
	if s == nil || s.Resume == nil {
		return Answer{}, false
	}
	a, ok := s.Resume[t]
	if !ok || a.Answer == "" {
		return Answer{}, false
	}
	if a.MessageID != "" && a.MessageID != messageID {
		return Answer{}, false
	}
	return a, true
}
