package variable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_NeverReuses(t *testing.T) {
	a := NewAllocator()
	require.NoError(t, a.Reserve(0))
	require.NoError(t, a.Reserve(2))

	assert.Equal(t, uint32(1), a.Next())
	assert.Equal(t, uint32(3), a.Next())
	assert.True(t, a.InUse(2))
	assert.False(t, a.InUse(4))
	assert.Error(t, a.Reserve(3))
	assert.Equal(t, 4, a.Len())
}

func TestAllocator_Release(t *testing.T) {
	a := NewAllocator()
	require.NoError(t, a.Reserve(1))
	vr := a.Next()
	require.Equal(t, uint32(0), vr)

	a.Release(vr)
	assert.False(t, a.InUse(0))
	assert.Equal(t, uint32(0), a.Next())
	assert.Equal(t, uint32(2), a.Next(), "reserved reference still skipped")

	a.Release(7)
	assert.Equal(t, 3, a.Len())
}
