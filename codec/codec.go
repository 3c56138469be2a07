// Package codec serializes memo records (typically store.Reference values)
// for storage in a provider. Codecs are pluggable; CBOR in deterministic
// mode is the default used by arrowbridge.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
