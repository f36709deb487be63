// Package msgpack provides an optionz.Codec for MessagePack payloads.
package msgpack

import (
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zoobzio/optionz"
)

// Codec decodes MessagePack payloads using msgpack struct tags.
type Codec struct{}

// Unmarshal decodes MessagePack data into v.
func (Codec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// ContentType returns "application/msgpack".
func (Codec) ContentType() string {
	return "application/msgpack"
}

var _ optionz.Codec = Codec{}
