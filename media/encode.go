package media

import (
	"encoding/base64"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Encode returns the standard base64 form of data
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode
func Decode(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return data, nil
}

// FormatSize renders a byte count for display, e.g. "1.5 MiB"
func FormatSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}
