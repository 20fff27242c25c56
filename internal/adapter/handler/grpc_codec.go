package handler

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// JSONCodec carries the checkout service's plain Go messages over gRPC.
type JSONCodec struct{}

var _ encoding.Codec = JSONCodec{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Name() string {
	return "json"
}
