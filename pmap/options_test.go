package pmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurability(t *testing.T) {
	for in, want := range map[string]Durability{
		"":      DurabilityAsync,
		"async": DurabilityAsync,
		"SYNC":  DurabilitySync,
	} {
		got, err := ParseDurability(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDurability("fsync")
	assert.Error(t, err)
}
