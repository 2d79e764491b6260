package events

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"
)

// SSEFrame wraps a serialized event as `data: {"event": <type>, "data": <event>}\n\n`.
func SSEFrame(eventType EventType, payload []byte) ([]byte, error) {
	chunk := struct {
		Event EventType       `json:"event"`
		Data  json.RawMessage `json:"data"`
	}{Event: eventType, Data: payload}
	b, err := json.Marshal(chunk)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("data: %s\n\n", b)), nil
}

// SSEErrorFrame renders the terminal error frame `data: {"error": msg}\n\n`.
func SSEErrorFrame(err error) []byte {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return []byte(fmt.Sprintf("data: %s\n\n", b))
}

// SSEFrameFromMessage turns a watermill message carrying an event into an SSE frame.
func SSEFrameFromMessage(msg *message.Message) ([]byte, EventType, error) {
	var hdr struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(msg.Payload, &hdr); err != nil {
		return nil, "", err
	}
	frame, err := SSEFrame(hdr.Type, msg.Payload)
	return frame, hdr.Type, err
}

// SSEPrinterFunc returns a watermill handler writing each event as an SSE frame.
func SSEPrinterFunc(w io.Writer) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()
		frame, _, err := SSEFrameFromMessage(msg)
		if err != nil {
			return err
		}
		_, err = w.Write(frame)
		return err
	}
}
