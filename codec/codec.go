// Package codec centralizes the encoding of run manifests and other small
// JSON documents.
//
// A manifest records the name of the codec that wrote it, so changing
// Default never breaks resuming a run started by an older build.
package codec

import (
	"errors"
	"fmt"
)

// ErrUnknownCodec is returned for a codec name no build has ever used.
var ErrUnknownCodec = errors.New("codec: unknown codec")

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case JSON{}.Name():
		return JSON{}, true
	case GoJSON{}.Name():
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Decode unmarshals data with the codec called name. An empty name means
// Default.
func Decode(name string, data []byte, v any) error {
	c := Default
	if name != "" {
		var ok bool
		if c, ok = ByName(name); !ok {
			return fmt.Errorf("%w %q", ErrUnknownCodec, name)
		}
	}
	return c.Unmarshal(data, v)
}
