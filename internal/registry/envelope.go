package registry

import (
	"encoding/json"
	"fmt"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
)

// Content is one block of an MCP tool-call result, matching
// {type:"text", text:"..."} from spec section 6.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Envelope is the {content:[...]} response shape every handler returns,
// per spec section 4.1/6.
type Envelope struct {
	Content []Content `json:"content"`
}

const stateJSONOpen = "<!-- STATE_JSON "
const stateJSONClose = " STATE_JSON -->"

// NewEnvelope builds a text envelope. If state is non-nil it is marshalled
// and embedded as a delimited block after the human-readable message, so
// downstream parsers can recover it without re-parsing prose (spec 6).
func NewEnvelope(message string, state any) Envelope {
	text := message
	if state != nil {
		if blob, err := json.Marshal(state); err == nil {
			text = fmt.Sprintf("%s\n%s%s%s", message, stateJSONOpen, blob, stateJSONClose)
		}
	}
	return Envelope{Content: []Content{{Type: "text", Text: text}}}
}

// errorPayload is the structured machine-readable body of an error
// response, per spec section 7 ("{error:true, kind, message, details?}").
type errorPayload struct {
	Error   bool           `json:"error"`
	Kind    apperr.Kind    `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ToErrorEnvelope converts any error surfaced by a handler into the error
// response envelope. Errors that are not *apperr.Error (a programming bug,
// not a domain condition) are reported as StorageError so the caller always
// gets a well-formed structured payload.
func ToErrorEnvelope(err error) Envelope {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Storage(err)
	}
	payload := errorPayload{Error: true, Kind: ae.Kind, Message: ae.Message, Details: ae.Details}
	blob, _ := json.Marshal(payload)
	text := fmt.Sprintf("%s\n%s%s%s", ae.Error(), stateJSONOpen, blob, stateJSONClose)
	return Envelope{Content: []Content{{Type: "text", Text: text}}}
}
