package gemini

// TranscriptionPrompt is sent after the media part of every request
const TranscriptionPrompt = `You are an expert professional transcriber.

Task 1: Listen to the audio/video and provide a verbatim transcript.
CRITICAL: Identify distinct speakers (Speaker 1, Speaker 2, etc.) and add timestamps [MM:SS] at the start of each turn.

Task 2: Create a polished version suitable for publishing. Remove stutters, false starts, and filler words. Ensure grammatical correctness.

Task 3: Create a 5-point executive summary.

Task 4: Extract 3-5 key takeaways.

Return the result strictly in JSON format matching the schema.`

// Transcript field names, shared by the schema and the parser
const (
	FieldRawTranscript   = "raw_transcript"
	FieldPolishedVersion = "polished_version"
	FieldSummary         = "summary"
	FieldKeyPoints       = "key_points"
)

// TranscriptSchema returns the responseSchema that forces the four fields
func TranscriptSchema() *Schema {
	return &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			FieldRawTranscript: {
				Type:        "STRING",
				Description: "The verbatim transcript including speaker labels (e.g. Speaker 1:) and timestamps [00:00].",
			},
			FieldPolishedVersion: {
				Type: "STRING",
				Description: "A professionally polished version. Remove filler words (um, ah), fix grammar, " +
					"but strictly maintain meaning. Do not use timestamps here. Use paragraphs.",
			},
			FieldSummary: {
				Type:        "STRING",
				Description: "A concise executive summary of the content (5 bullet points).",
			},
			FieldKeyPoints: {
				Type:        "ARRAY",
				Items:       &Schema{Type: "STRING"},
				Description: "A list of 3-5 distinct key takeaways.",
			},
		},
		Required: []string{FieldRawTranscript, FieldPolishedVersion, FieldSummary, FieldKeyPoints},
	}
}
