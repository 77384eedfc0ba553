package protocol

import "encoding/json"

// Serializer defines the contract for serializing and deserializing wire
// documents. This allows different deployments to choose their preferred
// format while interacting with the matching service.
type Serializer interface {
	// Marshal serializes a Go struct (e.g. OrderEvent) into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes bytes into a Go struct.
	// v must be a pointer to the target struct.
	Unmarshal(data []byte, v any) error
}

// DefaultJSONSerializer implements Serializer with encoding/json, matching
// the documents the order service publishes.
type DefaultJSONSerializer struct{}

func (DefaultJSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (DefaultJSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
