package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manifest struct {
	Seed   uint64   `json:"seed"`
	Blocks int      `json:"blocks"`
	Failed []uint32 `json:"failed,omitempty"`
}

func TestCodecsAgree(t *testing.T) {
	in := manifest{Seed: 42, Blocks: 3, Failed: []uint32{2, 5}}

	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())

		data, err := c.Marshal(in)
		require.NoError(t, err)
		assert.Contains(t, string(data), "\n  \"seed\": 42")

		for _, other := range []Codec{JSON{}, GoJSON{}} {
			var out manifest
			require.NoError(t, other.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		}
	}

	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestDecode(t *testing.T) {
	data := []byte(`{"seed": 7, "blocks": 1}`)

	var m manifest
	require.NoError(t, Decode("", data, &m))
	assert.Equal(t, uint64(7), m.Seed)

	require.NoError(t, Decode("json", data, &m))
	assert.Equal(t, 1, m.Blocks)

	assert.ErrorIs(t, Decode("msgpack", data, &m), ErrUnknownCodec)
	assert.Error(t, Decode("go-json", []byte("{"), &m))
	assert.Equal(t, "go-json", Default.Name())
}
