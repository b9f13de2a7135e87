package scatter

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	sets      int
	positions []mgl32.Vec3
	pivot     mgl32.Vec3
	bound     mgl32.Vec2
}

func (s *recordingSink) SetInstancePositions(p []mgl32.Vec3) {
	s.sets++
	s.positions = p
}

func (s *recordingSink) SetMaterialTransform(pivot mgl32.Vec3, bound mgl32.Vec2) {
	s.pivot = pivot
	s.bound = bound
}

func TestGenerateBounds(t *testing.T) {
	p := Params{Count: 40000, Pivot: mgl32.Vec3{10, 2, -5}, Seed: 123}
	positions, err := Generate(context.Background(), p, 4)
	require.NoError(t, err)
	require.Len(t, positions, 40000)

	scale := p.Scale()
	assert.Equal(t, float32(50), scale)
	for _, pos := range positions {
		assert.InDelta(t, 10, pos.X(), float64(scale)+1e-3)
		assert.InDelta(t, -5, pos.Z(), float64(scale)+1e-3)
		assert.Equal(t, float32(2), pos.Y())
	}
}

func TestGenerateDeterministicAcrossWorkers(t *testing.T) {
	p := Params{Count: 3*chunkSize + 17, Seed: 123}

	a, err := Generate(context.Background(), p, 1)
	require.NoError(t, err)
	b, err := Generate(context.Background(), p, 8)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerateErrors(t *testing.T) {
	_, err := Generate(context.Background(), Params{Count: -1}, 1)
	assert.ErrorIs(t, err, ErrNegativeCount)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Generate(ctx, Params{Count: 10}, 1)
	assert.ErrorIs(t, err, context.Canceled)

	empty, err := Generate(context.Background(), Params{}, 1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProducerCachesOnParams(t *testing.T) {
	sink := &recordingSink{}
	prod := NewProducer(sink, nil, Params{Count: 1000, Seed: 123})

	changed, err := prod.UpdateIfNeeded(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, sink.sets)
	assert.Len(t, sink.positions, 1000)

	changed, err = prod.UpdateIfNeeded(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, sink.sets)

	// Same count, different pivot: still a new set.
	prod.SetParams(Params{Count: 1000, Seed: 123, Pivot: mgl32.Vec3{5, 0, 0}})
	changed, err = prod.UpdateIfNeeded(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, sink.sets)
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, sink.pivot)
	assert.Equal(t, prod.Params().BoundSize(), sink.bound)
}
