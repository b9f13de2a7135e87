package core

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPositions(n int, seed int64, minX, minZ, maxX, maxZ float32) []mgl32.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]mgl32.Vec3, n)
	for i := range out {
		out[i] = mgl32.Vec3{
			minX + rng.Float32()*(maxX-minX),
			0,
			minZ + rng.Float32()*(maxZ-minZ),
		}
	}
	return out
}

func buildGrid(t *testing.T, positions []mgl32.Vec3, cellSizeX, cellSizeZ float32) *Grid {
	t.Helper()
	g, err := BuildGrid(positions, cellSizeX, cellSizeZ)
	require.NoError(t, err)
	return g
}

func TestBuildGridPartition(t *testing.T) {
	cases := []struct {
		name     string
		n        int
		cellSize float32
	}{
		{"small", 17, 10},
		{"dense", 5000, 10},
		{"tiny cells", 2000, 0.5},
		{"one huge cell", 300, 1000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			positions := randomPositions(tc.n, 42, -37, -12, 63, 88)
			g := buildGrid(t, positions, tc.cellSize, tc.cellSize)

			require.Equal(t, tc.n, g.Len())
			require.Len(t, g.Cells, g.CountX*g.CountZ)

			// Offsets form a gap-free prefix sum over the sorted array.
			next := 0
			for i, c := range g.Cells {
				assert.Equal(t, next, c.Offset, "cell %d offset", i)
				next += c.Count
			}
			assert.Equal(t, tc.n, next)

			// Every input position appears exactly once, in the cell it maps to.
			seen := make(map[mgl32.Vec3]int)
			for _, p := range positions {
				seen[p]++
			}
			for i := range g.Cells {
				for _, p := range g.CellPositions(i) {
					assert.Equal(t, i, g.CellOf(p))
					seen[p]--
				}
			}
			for p, n := range seen {
				assert.Zero(t, n, "position %v", p)
			}
		})
	}
}

func TestBuildGridCellCounts(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 0}, {100, 0, 35}, {42, 0, 7}}
	g := buildGrid(t, positions, 10, 10)

	assert.Equal(t, 10, g.CountX)
	assert.Equal(t, 4, g.CountZ)
	assert.Equal(t, float32(0), g.MinX)
	assert.Equal(t, float32(100), g.MaxX)
	assert.Equal(t, float32(35), g.MaxZ)
}

func TestBuildGridAssignmentInsideBounds(t *testing.T) {
	positions := randomPositions(4000, 7, -50, -50, 50, 50)
	g := buildGrid(t, positions, 7, 13)

	const eps = 1e-3
	for _, p := range positions {
		b := g.CellBounds(g.CellOf(p))
		assert.True(t, p.X() >= b[0].X()-eps && p.X() <= b[1].X()+eps, "x of %v outside %v", p, b)
		assert.True(t, p.Z() >= b[0].Z()-eps && p.Z() <= b[1].Z()+eps, "z of %v outside %v", p, b)
	}
}

func TestBuildGridUpperEdgeClamp(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 0}, {20, 0, 20}}
	g := buildGrid(t, positions, 10, 10)

	require.Equal(t, 2, g.CountX)
	assert.Equal(t, 0, g.CellOf(positions[0]))
	assert.Equal(t, g.CellIndex(1, 1), g.CellOf(positions[1]))
}

func TestBuildGridDegenerate(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		g := buildGrid(t, nil, 10, 10)
		assert.Equal(t, 1, g.CountX)
		assert.Equal(t, 1, g.CountZ)
		assert.Equal(t, []Cell{{Offset: 0, Count: 0}}, g.Cells)
		assert.Zero(t, g.Len())
		assert.Equal(t, [2]mgl32.Vec3{}, g.Bounds())
	})

	t.Run("coincident", func(t *testing.T) {
		p := mgl32.Vec3{3, 1, -4}
		g := buildGrid(t, []mgl32.Vec3{p, p, p}, 10, 10)
		assert.Equal(t, 1, g.CountX)
		assert.Equal(t, 1, g.CountZ)
		assert.Equal(t, 3, g.Cells[0].Count)
	})

	t.Run("line along x", func(t *testing.T) {
		g := buildGrid(t, []mgl32.Vec3{{0, 0, 5}, {35, 0, 5}}, 10, 10)
		assert.Equal(t, 4, g.CountX)
		assert.Equal(t, 1, g.CountZ)
	})
}

func TestBuildGridKeepsOrderWithinCell(t *testing.T) {
	positions := []mgl32.Vec3{{1, 0, 1}, {15, 0, 1}, {2, 0, 2}, {3, 0, 3}, {19, 0, 19}}
	g := buildGrid(t, positions, 10, 10)

	assert.Equal(t, []mgl32.Vec3{{1, 0, 1}, {2, 0, 2}, {3, 0, 3}}, g.CellPositions(0))
	assert.Equal(t, []mgl32.Vec3{{1, 0, 1}, {15, 0, 1}, {2, 0, 2}, {3, 0, 3}, {19, 0, 19}}, positions, "input must not be reordered")
}

func TestGridCellIndexRoundTrip(t *testing.T) {
	g := &Grid{CountX: 7, CountZ: 3}
	for cz := 0; cz < g.CountZ; cz++ {
		for cx := 0; cx < g.CountX; cx++ {
			x, z := g.CellCoord(g.CellIndex(cx, cz))
			assert.Equal(t, cx, x)
			assert.Equal(t, cz, z)
		}
	}
}

func TestCellBoundsUsePerAxisSize(t *testing.T) {
	g := buildGrid(t, []mgl32.Vec3{{0, 0, 0}, {40, 2, 10}}, 10, 5)

	require.Equal(t, 4, g.CountX)
	require.Equal(t, 2, g.CountZ)

	b := g.CellBounds(g.CellIndex(3, 1))
	assert.Equal(t, mgl32.Vec3{30, 0, 5}, b[0])
	assert.Equal(t, mgl32.Vec3{40, 2, 10}, b[1])
}

func TestBuildGridRejectsSparseExtent(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 0}, {1e7, 0, 1e7}}

	g, err := BuildGrid(positions, 10, 10)
	assert.ErrorIs(t, err, ErrGridTooLarge)
	assert.Nil(t, g)

	_, err = BuildGrid([]mgl32.Vec3{{-math.MaxFloat32, 0, 0}, {math.MaxFloat32, 0, 0}}, 0.01, 10)
	assert.ErrorIs(t, err, ErrGridTooLarge)

	// Same extent, coarse enough cells.
	g, err = BuildGrid(positions, 1e4, 1e4)
	require.NoError(t, err)
	assert.Equal(t, 1000, g.CountX)
}
