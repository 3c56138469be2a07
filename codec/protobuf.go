package codec

import "google.golang.org/protobuf/proto"

// Protobuf adapts a proto.Message type as a Codec. The constructor function
// produces a fresh message for Decode, e.g.
// NewProtobuf(func() *pb.Artifact { return &pb.Artifact{} }).
type Protobuf[T proto.Message] struct {
	new func() T
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
