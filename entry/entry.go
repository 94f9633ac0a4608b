// Package entry implements the per-string storage codec. Each stored string
// is kept either raw or Snappy-compressed, whichever is smaller.
package entry

import (
	"errors"
	"unicode/utf8"

	"github.com/golang/snappy"
)

var (
	// ErrCorruptEntry reports a compressed payload that does not
	// decompress cleanly.
	ErrCorruptEntry = errors.New("corrupt compressed entry")

	// ErrInvalidUTF8 reports a payload that decoded to invalid UTF-8.
	ErrInvalidUTF8 = errors.New("entry is not valid UTF-8")
)

// Entry is a single stored string, raw or Snappy-compressed. The compressed
// form is chosen iff it is strictly smaller than the raw bytes.
type Entry struct {
	compressed bool
	payload    []byte
}

// Encode chooses the smaller representation of s.
func Encode(s string) Entry {
	compressed := snappy.Encode(nil, []byte(s))
	if len(compressed) < len(s) {
		return Entry{compressed: true, payload: compressed}
	}

	return Entry{payload: []byte(s)}
}

// Raw reconstructs an Entry from its stored payload, as read back from a
// segment data file.
func Raw(payload []byte, compressed bool) Entry {
	return Entry{compressed: compressed, payload: payload}
}

// Compressed reports whether the stored payload is Snappy-compressed.
func (e Entry) Compressed() bool { return e.compressed }

// Payload returns the bytes as stored, compressed or not.
func (e Entry) Payload() []byte { return e.payload }

// Decode returns the original string. The compressed path validates both
// the Snappy framing and that the result is UTF-8.
func (e Entry) Decode() (string, error) {
	if !e.compressed {
		return string(e.payload), nil
	}

	raw, err := snappy.Decode(nil, e.payload)
	if err != nil {
		return "", ErrCorruptEntry
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}

	return string(raw), nil
}
