package entry

import (
	"errors"
	"strings"
	"testing"

	"github.com/golang/snappy"
)

func compress(b []byte) []byte {
	return snappy.Encode(nil, b)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"short", "short"},
		{"compressible", strings.Repeat("a", 25) + strings.Repeat("b", 16)},
		{"unicode", "héllo wörld ☃"},
		{"long random-ish", "the quick brown fox jumps over the lazy dog"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := Encode(test.in)

			out, err := e.Decode()
			if err != nil {
				t.Fatal(err)
			}

			if out != test.in {
				t.Fatal("expected", test.in, "got", out)
			}
		})
	}
}

func TestEncodeChoosesSmallerForm(t *testing.T) {
	short := Encode("short")
	if short.Compressed() {
		t.Fatal("short string should not be compressed")
	}

	long := Encode(strings.Repeat("a", 25) + strings.Repeat("b", 16))
	if !long.Compressed() {
		t.Fatal("highly compressible string should be compressed")
	}
	if len(long.Payload()) >= 41 {
		t.Fatal("compressed payload not smaller than raw, got", len(long.Payload()))
	}
}

func TestDecodeCorruptPayload(t *testing.T) {
	e := Raw([]byte{0xff, 0xff, 0xff, 0xff, 0xff}, true)

	_, err := e.Decode()
	if !errors.Is(err, ErrCorruptEntry) {
		t.Fatal("expected ErrCorruptEntry, got", err)
	}
}

func TestDecodeInvalidUTF8(t *testing.T) {
	// Valid snappy framing around invalid UTF-8 bytes.
	e := Encode("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	if !e.Compressed() {
		t.Fatal("fixture must take the compressed path")
	}

	raw := Raw(compress([]byte{0xff, 0xfe, 0xfd, 0xff, 0xfe, 0xfd}), true)

	_, err := raw.Decode()
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatal("expected ErrInvalidUTF8, got", err)
	}
}
