package ontology

import "encoding/json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec over plain
// JSON. There is no protoc toolchain available to generate a typed
// protobuf client for a service this module doesn't own, so messages are
// marshaled as JSON instead of protobuf wire format — grpc's transport,
// deadlines, and connection-state machinery are unaffected by which codec
// carries the payload.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}
