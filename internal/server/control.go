package server

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Control actions accepted on the stream endpoint.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// ErrUnknownAction is returned by ParseControl for an action other than
// subscribe or unsubscribe.
var ErrUnknownAction = errors.New("unknown action")

// Client-facing stream messages.
const (
	msgStreamDisabled = "Live streaming is disabled on the server (missing FINNHUB_API_KEY)."
	msgUnknownAction  = "Unknown action. Use 'subscribe' or 'unsubscribe'."
	msgInvalidMessage = "Invalid message. Expected a JSON object."
	msgRateLimited    = "Too many messages. Slow down."
)

// Control is a decoded client control message.
type Control struct {
	Action  string
	Symbols []string
}

// ParseControl decodes a client control message. A symbols field that is
// not a list is treated as empty; non-string entries are skipped.
func ParseControl(data []byte) (Control, error) {
	var raw struct {
		Action  any `json:"action"`
		Symbols any `json:"symbols"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Control{}, fmt.Errorf("decode control message: %w", err)
	}

	action, _ := raw.Action.(string)
	if action != ActionSubscribe && action != ActionUnsubscribe {
		return Control{Action: action}, ErrUnknownAction
	}

	ctrl := Control{Action: action}
	if list, ok := raw.Symbols.([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				ctrl.Symbols = append(ctrl.Symbols, s)
			}
		}
	}
	return ctrl, nil
}

type readyMessage struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newErrorMessage(msg string) errorMessage {
	return errorMessage{Type: "error", Message: msg}
}
