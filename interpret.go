package tinder

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// envelope is the part of a response body that can report an application error.
// Error and Message stay raw: the API does not always send them as strings, and their
// shape must not decide whether the status is seen.
type envelope struct {
	Status  json.RawMessage `json:"status"`
	Error   json.RawMessage `json:"error"`
	Message json.RawMessage `json:"message"`
}

// interpret turns a dispatched response into its body or a classified error.
func interpret(resp *Response) (json.RawMessage, error) {
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newHTTPError(resp)
	}

	// Bodies that are not JSON objects, or whose status is not a number, carry no
	// application status and pass through.
	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return json.RawMessage(resp.Body), nil
	}
	var status int
	if err := json.Unmarshal(env.Status, &status); err != nil || status == http.StatusOK {
		return json.RawMessage(resp.Body), nil
	}

	message := renderMessage(env.Error)
	if message == "" {
		message = renderMessage(env.Message)
	}
	return nil, &AppError{Status: status, Message: message}
}

// renderMessage returns a string field as-is and any other JSON value as its compact text.
func renderMessage(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
