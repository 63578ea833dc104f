// Package gemini provides a client for the Google Gemini API that turns an
// audio or video payload into a structured transcript.
package gemini

import "context"

// Model constants for Gemini models
const (
	// ModelGemini25Flash is the fast, efficient model for most tasks
	ModelGemini25Flash = "gemini-2.5-flash"
	// ModelGemini25Pro is Gemini 2.5 Pro for long or noisy recordings
	ModelGemini25Pro = "gemini-2.5-pro"
	// ModelGemini20Flash is the previous generation fast model
	ModelGemini20Flash = "gemini-2.0-flash"

	DefaultModel = ModelGemini25Flash
)

// Models lists the models offered in interactive pickers
var Models = []string{ModelGemini25Flash, ModelGemini25Pro, ModelGemini20Flash}

// TranscriptResult is the structured output of one transcription
type TranscriptResult struct {
	// RawTranscript is verbatim, with speaker labels and [MM:SS] timestamps
	RawTranscript string `json:"raw_transcript"`

	// PolishedVersion is filler-free prose without timestamps
	PolishedVersion string `json:"polished_version"`

	// Summary is a short executive summary
	Summary string `json:"summary"`

	// KeyPoints holds the key takeaways
	KeyPoints []string `json:"key_points"`
}

// Transcriber turns a base64 payload of the given MIME type into a transcript
type Transcriber interface {
	Transcribe(ctx context.Context, payload, mimeType string) (*TranscriptResult, error)
}

// TranscriberFunc adapts a function to the Transcriber interface
type TranscriberFunc func(ctx context.Context, payload, mimeType string) (*TranscriptResult, error)

func (f TranscriberFunc) Transcribe(ctx context.Context, payload, mimeType string) (*TranscriptResult, error) {
	return f(ctx, payload, mimeType)
}

// GenerateContentRequest is the request structure for the Gemini API
type GenerateContentRequest struct {
	Contents          []*Content        `json:"contents"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
}

// Content represents a content block in the API
type Content struct {
	Role  string  `json:"role,omitempty"`
	Parts []*Part `json:"parts"`
}

// Part represents a part of content (text or inline data)
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries media inline
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // Base64 encoded
}

// GenerationConfig contains generation parameters
type GenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  *int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema  `json:"responseSchema,omitempty"`
}

// Schema is the OpenAPI subset accepted as responseSchema
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// GenerateContentResponse is the response from the Gemini API
type GenerateContentResponse struct {
	Candidates     []*Candidate    `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
}

// Candidate represents a generated response candidate
type Candidate struct {
	Content      *Content `json:"content"`
	FinishReason string   `json:"finishReason"`
}

// PromptFeedback is set when the prompt itself was blocked
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// UsageMetadata contains token usage information
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Text concatenates the text parts of the first candidate
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	c := r.Candidates[0]
	if c.Content == nil {
		return ""
	}
	var text string
	for _, p := range c.Content.Parts {
		text += p.Text
	}
	return text
}
