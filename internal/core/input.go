package core

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeInput normalizes raw upload bytes to UTF-8 before any decoder sees
// them. A UTF-8 or UTF-16 byte order mark selects the source encoding and is
// removed; without one the input is read as UTF-8. Invalid sequences become
// U+FFFD.
func decodeInput(data []byte) ([]byte, error) {
	if isPlainASCII(data) {
		return data, nil
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// isPlainASCII is the fast path: most uploads never need decoding.
func isPlainASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// isJSONNull reports whether a raw JSON value is the literal null.
func isJSONNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
