package tools

import "encoding/json"

// ErrorBody is the structured error sent to callers.
type ErrorBody struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the JSON shape of every tool result.
type Envelope struct {
	OK     bool       `json:"ok"`
	Result any        `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// Success wraps a result.
func Success(result any) Envelope {
	return Envelope{OK: true, Result: result}
}

// Failure wraps an error, classifying it first.
func Failure(err error) Envelope {
	te := AsError(err)
	return Envelope{Error: &ErrorBody{Kind: te.Kind, Message: te.Message, Details: te.Details}}
}

// JSON encodes the envelope. Encoding failures are reported as an
// OperationFailed envelope so callers always receive valid JSON.
func (e Envelope) JSON() []byte {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		data, _ = json.Marshal(Failure(Errorf(KindOperationFailed, "encode result: %v", err)))
	}
	return data
}

// Image is a binary result returned inline instead of as JSON.
type Image struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	// Info is sent alongside the image as the JSON result.
	Info any `json:"info,omitempty"`
}
