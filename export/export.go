// Package export renders transcript fields as text and writes them to disk.
package export

import (
	"fmt"
	"strings"

	"mediascribe/gemini"
)

// Field names one downloadable part of a transcript
type Field string

const (
	FieldSummary         Field = gemini.FieldSummary
	FieldKeyPoints       Field = gemini.FieldKeyPoints
	FieldRawTranscript   Field = gemini.FieldRawTranscript
	FieldPolishedVersion Field = gemini.FieldPolishedVersion
)

// Fields lists every field in display order
var Fields = []Field{FieldSummary, FieldKeyPoints, FieldPolishedVersion, FieldRawTranscript}

// ParseField accepts a field name as used in URLs and flags
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q (want one of summary, key_points, polished_version, raw_transcript)", s)
}

// Title is the heading shown for the field
func (f Field) Title() string {
	switch f {
	case FieldSummary:
		return "Executive Summary"
	case FieldKeyPoints:
		return "Key Takeaways"
	case FieldRawTranscript:
		return "Raw Transcript"
	case FieldPolishedVersion:
		return "Polished Version"
	default:
		return string(f)
	}
}

// Filename is the download name, derived from the title
func (f Field) Filename() string {
	return sanitizeFilename(f.Title()) + ".txt"
}

// Text renders one field: strings verbatim, key points one "- item" per line
func Text(r *gemini.TranscriptResult, f Field) string {
	if r == nil {
		return ""
	}
	switch f {
	case FieldSummary:
		return r.Summary
	case FieldRawTranscript:
		return r.RawTranscript
	case FieldPolishedVersion:
		return r.PolishedVersion
	case FieldKeyPoints:
		lines := make([]string, len(r.KeyPoints))
		for i, p := range r.KeyPoints {
			lines[i] = "- " + p
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

// sanitizeFilename creates a safe filename from a title
func sanitizeFilename(title string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	result := replacer.Replace(title)

	for strings.Contains(result, "__") {
		result = strings.ReplaceAll(result, "__", "_")
	}
	result = strings.Trim(result, "_")

	if len(result) > 50 {
		result = result[:50]
	}
	if result == "" {
		result = "transcript"
	}

	return strings.ToLower(result)
}
