package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxGridCells bounds the cell array of one grid. A sparse instance set
// spread over a huge extent is rejected instead of allocating a cell for
// every empty square of it.
const MaxGridCells = 1 << 22

var ErrGridTooLarge = errors.New("grass: grid exceeds cell limit")

// Cell owns the sub-range [Offset, Offset+Count) of Grid.Sorted.
type Cell struct {
	Offset int
	Count  int
}

// Grid is a 2D bucketing of instance positions on the XZ ground plane.
// Cells are stored flattened as cx + cz*CountX and Sorted holds every
// position grouped by cell in that same order, so neighbouring cell
// indices are neighbours in memory.
type Grid struct {
	CellSizeX float32
	CellSizeZ float32

	MinX, MinY, MinZ float32
	MaxX, MaxY, MaxZ float32

	CountX int
	CountZ int

	Cells  []Cell
	Sorted []mgl32.Vec3
}

// BuildGrid partitions positions into cells of the given size. The input
// slice is not modified. Relative order of positions inside a cell is kept.
// It fails with ErrGridTooLarge when the extent needs more than
// MaxGridCells cells.
func BuildGrid(positions []mgl32.Vec3, cellSizeX, cellSizeZ float32) (*Grid, error) {
	g := &Grid{
		CellSizeX: cellSizeX,
		CellSizeZ: cellSizeZ,
	}

	if len(positions) > 0 {
		g.MinX, g.MinY, g.MinZ = math.MaxFloat32, math.MaxFloat32, math.MaxFloat32
		g.MaxX, g.MaxY, g.MaxZ = -math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32
		for _, p := range positions {
			g.MinX = min(g.MinX, p.X())
			g.MinY = min(g.MinY, p.Y())
			g.MinZ = min(g.MinZ, p.Z())
			g.MaxX = max(g.MaxX, p.X())
			g.MaxY = max(g.MaxY, p.Y())
			g.MaxZ = max(g.MaxZ, p.Z())
		}
	}

	countX := cellCount(g.MaxX-g.MinX, cellSizeX)
	countZ := cellCount(g.MaxZ-g.MinZ, cellSizeZ)
	// Written negated so NaN extents are rejected too.
	if !(countX*countZ <= MaxGridCells) {
		return nil, fmt.Errorf("%w: %.0fx%.0f cells of %vx%v", ErrGridTooLarge, countX, countZ, cellSizeX, cellSizeZ)
	}
	g.CountX = int(countX)
	g.CountZ = int(countZ)
	g.Cells = make([]Cell, g.CountX*g.CountZ)

	// Two passes instead of per-cell slices: count, prefix sum, scatter.
	cellOf := make([]int32, len(positions))
	for i, p := range positions {
		c := g.CellOf(p)
		cellOf[i] = int32(c)
		g.Cells[c].Count++
	}

	offset := 0
	for i := range g.Cells {
		g.Cells[i].Offset = offset
		offset += g.Cells[i].Count
	}

	g.Sorted = make([]mgl32.Vec3, len(positions))
	cursor := make([]int, len(g.Cells))
	for i, p := range positions {
		c := cellOf[i]
		g.Sorted[g.Cells[c].Offset+cursor[c]] = p
		cursor[c]++
	}

	return g, nil
}

// cellCount is ceil(extent/size) with a floor of one cell, so a grid over
// zero or coincident instances still has a valid 1x1 layout.
// The count is returned as a float so that extreme extents are compared
// against MaxGridCells before any integer conversion.
func cellCount(extent, size float32) float64 {
	if size <= 0 || extent <= 0 {
		return 1
	}
	return max(math.Ceil(float64(extent)/float64(size)), 1)
}

// Len returns the number of instances held by the grid.
func (g *Grid) Len() int {
	return len(g.Sorted)
}

// NumCells returns CountX*CountZ.
func (g *Grid) NumCells() int {
	return len(g.Cells)
}

// CellIndex flattens cell coordinates.
func (g *Grid) CellIndex(cx, cz int) int {
	return cx + cz*g.CountX
}

// CellCoord is the inverse of CellIndex.
func (g *Grid) CellCoord(index int) (cx, cz int) {
	return index % g.CountX, index / g.CountX
}

// CellOf returns the flattened index of the cell containing p. Positions
// outside the extents are clamped onto the border cells.
func (g *Grid) CellOf(p mgl32.Vec3) int {
	cx := axisCell(g.MinX, g.MaxX, p.X(), g.CountX)
	cz := axisCell(g.MinZ, g.MaxZ, p.Z(), g.CountZ)
	return g.CellIndex(cx, cz)
}

func axisCell(lo, hi, v float32, count int) int {
	c := int(math.Floor(float64(inverseLerp(lo, hi, v) * float32(count))))
	if c > count-1 {
		c = count - 1
	}
	if c < 0 {
		c = 0
	}
	return c
}

// inverseLerp maps v into [0,1] relative to [a,b], returning 0 for an
// empty interval.
func inverseLerp(a, b, v float32) float32 {
	if a == b {
		return 0
	}
	t := (v - a) / (b - a)
	return mgl32.Clamp(t, 0, 1)
}

// CellBounds returns the world-space AABB of a cell. Cells stretch to
// cover the extents exactly, so their width is (MaxX-MinX)/CountX rather
// than CellSizeX. The height spans the dataset's Y range.
func (g *Grid) CellBounds(index int) [2]mgl32.Vec3 {
	cx, cz := g.CellCoord(index)
	w := (g.MaxX - g.MinX) / float32(g.CountX)
	d := (g.MaxZ - g.MinZ) / float32(g.CountZ)
	minX := g.MinX + float32(cx)*w
	minZ := g.MinZ + float32(cz)*d
	return [2]mgl32.Vec3{
		{minX, g.MinY, minZ},
		{minX + w, g.MaxY, minZ + d},
	}
}

// Bounds returns the AABB of the whole dataset.
func (g *Grid) Bounds() [2]mgl32.Vec3 {
	return [2]mgl32.Vec3{
		{g.MinX, g.MinY, g.MinZ},
		{g.MaxX, g.MaxY, g.MaxZ},
	}
}

// CellPositions returns the slice of Sorted owned by a cell.
func (g *Grid) CellPositions(index int) []mgl32.Vec3 {
	c := g.Cells[index]
	return g.Sorted[c.Offset : c.Offset+c.Count]
}
