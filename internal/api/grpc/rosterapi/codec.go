// Package rosterapi defines the roster.v1.Signups gRPC service: its
// messages, the JSON codec they travel in, the service descriptor and a
// client.
package rosterapi

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype of every Signups call.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(codec{})
}

// codec marshals messages as JSON. It handles any Go value, so the service
// needs no generated code.
type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rosterapi: marshal %T: %w", v, err)
	}
	return data, nil
}

func (codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rosterapi: unmarshal %T: %w", v, err)
	}
	return nil
}

func (codec) Name() string {
	return CodecName
}
