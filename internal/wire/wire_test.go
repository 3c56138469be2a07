package wire

import (
	"bytes"
	"strings"
	"testing"
)

func TestEntryRoundTrip(t *testing.T) {
	key := strings.Repeat("ab", 32) // sha256 hex length
	payload := []byte(`{"path":"/cache/x.feather"}`)

	b, err := EncodeEntry(key, payload)
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}
	gotKey, gotPayload, err := DecodeEntry(b)
	if err != nil {
		t.Fatalf("DecodeEntry: %v", err)
	}
	if gotKey != key {
		t.Fatalf("key = %q, want %q", gotKey, key)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestEmptyPayload(t *testing.T) {
	b, err := EncodeEntry("k", nil)
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}
	key, payload, err := DecodeEntry(b)
	if err != nil {
		t.Fatalf("DecodeEntry: %v", err)
	}
	if key != "k" || len(payload) != 0 {
		t.Fatalf("got key=%q payload=%v", key, payload)
	}
}

// Strict framing: trailing bytes mean corruption, not slack.
func TestDecodeRejectsTrailing(t *testing.T) {
	b, err := EncodeEntry("key", []byte("v"))
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}
	b = append(b, 0xDE, 0xAD)
	if _, _, err := DecodeEntry(b); err == nil {
		t.Fatalf("DecodeEntry should reject trailing bytes")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":       nil,
		"short":       {'A', 'B'},
		"bad_magic":   []byte("XXXX\x01\x00\x01k\x00\x00\x00\x00"),
		"bad_version": []byte("ABRG\x07\x00\x01k\x00\x00\x00\x00"),
		"truncated":   []byte("ABRG\x01\x00\x04ke"),
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := DecodeEntry(b); err == nil {
				t.Fatalf("DecodeEntry accepted %q", b)
			}
		})
	}
}

func TestEncodeKeyLengthValidation(t *testing.T) {
	if _, err := EncodeEntry("", []byte("x")); err == nil {
		t.Fatalf("EncodeEntry should reject empty key")
	}
	if _, err := EncodeEntry(strings.Repeat("a", 0x10000), nil); err == nil {
		t.Fatalf("EncodeEntry should reject key length > 0xFFFF")
	}
	if _, err := EncodeEntry(strings.Repeat("b", 0xFFFF), nil); err != nil {
		t.Fatalf("EncodeEntry should accept boundary key length: %v", err)
	}
}
