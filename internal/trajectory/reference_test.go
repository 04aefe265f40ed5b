package trajectory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReference_Interpolates(t *testing.T) {
	t.Parallel()

	ref, err := NewReference([]Sample{
		{T: 0, X: 0, Y: 0, Heading: 0},
		{T: 1, X: 10, Y: 2, Heading: 0.2},
		{T: 3, X: 30, Y: 2, Heading: 0.4},
	})
	require.NoError(t, err)

	assert.InDelta(t, 3.0, ref.Duration(), 1e-12)
	assert.Len(t, ref.Trace(), 3)

	p := ref.At(0.5)
	assert.InDelta(t, 5.0, p.X, 1e-9)
	assert.InDelta(t, 1.0, p.Y, 1e-9)
	assert.InDelta(t, 0.1, p.Heading, 1e-9)

	p = ref.At(2)
	assert.InDelta(t, 20.0, p.X, 1e-9)
	assert.InDelta(t, 0.3, p.Heading, 1e-9)

	p = ref.At(10)
	assert.InDelta(t, 30.0, p.X, 1e-9)
}

func TestNewReference_DuplicateTimestamps(t *testing.T) {
	t.Parallel()

	ref, err := NewReference([]Sample{
		{T: 0, X: 0},
		{T: 1, X: 5},
		{T: 1, X: 10},
		{T: 2, X: 20},
	})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, ref.At(1).X, 1e-9)
	assert.Len(t, ref.Trace(), 4)
}

func TestNewReference_SingleSample(t *testing.T) {
	t.Parallel()

	ref, err := NewReference([]Sample{{T: 0, X: 4, Y: 5, Heading: 1}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, ref.Duration())
	assert.Equal(t, Pose{X: 4, Y: 5, Heading: 1}, ref.At(3))
}

func TestNewReference_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewReference(nil)
	assert.Error(t, err)

	_, err = NewReference([]Sample{{T: 2}, {T: 1}})
	assert.Error(t, err)
}
