package main

import (
	"io"
	"strings"

	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/pkg/errors"
	"github.com/tcnksm/go-input"
)

// askInterrupt prompts for the answer to a pending interrupt.
func askInterrupt(r io.Reader, w io.Writer, in *state.Interrupt) (string, error) {
	ui := &input.UI{
		Writer: w,
		Reader: r,
	}

	query := "\n" + in.Content
	answer, err := ui.Ask(query, &input.Options{
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			if strings.TrimSpace(answer) == "" {
				return errors.New("please enter an answer")
			}
			return nil
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "read answer")
	}
	return strings.TrimSpace(answer), nil
}

// resumeWith records answer for the pending interrupt of st so the next run
// picks it up.
func resumeWith(st *state.State, answer string) {
	if st.Interrupt == nil {
		return
	}
	if st.Resume == nil {
		st.Resume = map[state.InterruptType]state.Answer{}
	}
	st.Resume[st.Interrupt.Type] = state.Answer{Answer: answer, MessageID: st.Interrupt.MessageID}
}
