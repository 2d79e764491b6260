package events

import (
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"
	"gopkg.in/yaml.v3"
)

// StepPrinterFunc returns a watermill handler rendering events as readable text.
func StepPrinterFunc(name string, w io.Writer) func(msg *message.Message) error {
	isFirst := true

	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		if isFirst && name != "" {
			isFirst = false
			if _, err := fmt.Fprintf(w, "\n%s:\n", name); err != nil {
				return err
			}
		}

		switch p_ := e.(type) {
		case *EventError:
			_, err = fmt.Fprintf(w, "\n[error] %s\n", p_.ErrorString)
			return err

		case *EventNodeUpdate:
			if _, err := fmt.Fprintf(w, "--- %s ---\n", p_.Node); err != nil {
				return err
			}
			for _, m := range p_.Update.Messages {
				if m.Content != "" {
					if _, err := fmt.Fprintf(w, "%s: %s\n", m.Kind, m.Content); err != nil {
						return err
					}
				}
			}

		case *EventToolCall:
			return printYAML(w, p_.ToolCall)

		case *EventToolCallExecutionResult:
			return printYAML(w, p_.ToolResult)

		case *EventInterrupt:
			_, err = fmt.Fprintf(w, "\n[awaiting input: %s] %s\n", p_.Interrupt.Type, p_.Interrupt.Content)
			return err

		case *EventFinal:
			_, err = fmt.Fprintf(w, "\n[done]\n")
			return err

		case *EventStart, *EventToolCallExecute:
		}

		return nil
	}
}

func printYAML(w io.Writer, v interface{}) error {
	v_, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", v_)
	return err
}
