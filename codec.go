package optionz

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec decodes a raw configuration payload onto an options instance.
// Decoding overlays the payload on whatever the instance already holds, so
// fields absent from the payload keep their constructed or configured value.
type Codec interface {
	// Unmarshal decodes data into v, which is a pointer.
	Unmarshal(data []byte, v any) error

	// ContentType names the payload format for logs and events.
	ContentType() string
}

// JSONCodec decodes JSON payloads using json struct tags.
type JSONCodec struct{}

// Unmarshal decodes JSON data into v.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// ContentType returns "application/json".
func (JSONCodec) ContentType() string {
	return "application/json"
}

// YAMLCodec decodes YAML payloads using yaml struct tags.
type YAMLCodec struct{}

// Unmarshal decodes YAML data into v.
func (YAMLCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

// ContentType returns "application/x-yaml".
func (YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

// AutoCodec picks JSON for payloads starting with '{' or '[' and YAML for
// everything else. Bindings use it when no codec is set.
type AutoCodec struct{}

// Unmarshal sniffs data and decodes it with the matching codec.
func (AutoCodec) Unmarshal(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := (JSONCodec{}).Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
		return nil
	}
	if err := (YAMLCodec{}).Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// ContentType returns "application/octet-stream" since the format is only
// known per payload.
func (AutoCodec) ContentType() string {
	return "application/octet-stream"
}

var (
	_ Codec = JSONCodec{}
	_ Codec = YAMLCodec{}
	_ Codec = AutoCodec{}
)
