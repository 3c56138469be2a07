package codec

import "fmt"

// Limit wraps another codec to cap the accepted payload size at Decode time;
// Encode is forwarded unchanged. MaxDecode <= 0 disables the cap.
//
// Typical use: guard against oversized entries arriving from a shared Redis
// memo written by untrusted or broken peers.
type Limit[V any] struct {
	// Inner is the wrapped codec. Must be set.
	Inner Codec[V]
	// MaxDecode is the maximum permitted payload length in bytes.
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
