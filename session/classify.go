package session

import "strings"

// User-facing transcription failure messages
const (
	MsgTranscriptionFailed = "An error occurred during transcription."
	MsgMissingAPIKey       = "API Key missing."
	MsgBadRequest          = "Bad Request. File format might not be supported."
)

// ClassifyError maps a transcription failure to the message shown to the
// user. A "400" in the error text wins over an "API Key" mention.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	msg := MsgTranscriptionFailed
	if strings.Contains(text, "API Key") {
		msg = MsgMissingAPIKey
	}
	if strings.Contains(text, "400") {
		msg = MsgBadRequest
	}
	return msg
}
