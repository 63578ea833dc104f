package gemini

import (
	"encoding/json"
	"strings"
)

type transcriptWire struct {
	RawTranscript   *string   `json:"raw_transcript"`
	PolishedVersion *string   `json:"polished_version"`
	Summary         *string   `json:"summary"`
	KeyPoints       *[]string `json:"key_points"`
}

// ParseTranscript decodes the model's answer. Markdown code fences around
// the JSON are tolerated. All four fields must be present and non-null;
// otherwise a *ParseError is returned and no partial result.
func ParseTranscript(text string) (*TranscriptResult, error) {
	text = cleanJSONResponse(text)

	var wire transcriptWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, &ParseError{Err: err}
	}

	switch {
	case wire.RawTranscript == nil:
		return nil, &ParseError{Field: FieldRawTranscript}
	case wire.PolishedVersion == nil:
		return nil, &ParseError{Field: FieldPolishedVersion}
	case wire.Summary == nil:
		return nil, &ParseError{Field: FieldSummary}
	case wire.KeyPoints == nil:
		return nil, &ParseError{Field: FieldKeyPoints}
	}

	keyPoints := *wire.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}

	return &TranscriptResult{
		RawTranscript:   *wire.RawTranscript,
		PolishedVersion: *wire.PolishedVersion,
		Summary:         *wire.Summary,
		KeyPoints:       keyPoints,
	}, nil
}

// cleanJSONResponse removes markdown code blocks if present
func cleanJSONResponse(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	return text
}
