package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Frustum holds 6 planes in order Left, Right, Bottom, Top, Near, Far.
// Each plane is Ax + By + Cz + D = 0 with the normal pointing inside.
type Frustum [6]mgl32.Vec4

const (
	PlaneLeft = iota
	PlaneRight
	PlaneBottom
	PlaneTop
	PlaneNear
	PlaneFar
)

// ExtractFrustum extracts the 6 planes of the frustum from the view-projection matrix.
// The matrix is expected to use OpenGL clip depth (-w..w).
func ExtractFrustum(vp mgl32.Mat4) Frustum {
	var planes Frustum

	// Left plane: Row 3 + Row 0
	planes[PlaneLeft] = mgl32.Vec4{
		vp.At(3, 0) + vp.At(0, 0),
		vp.At(3, 1) + vp.At(0, 1),
		vp.At(3, 2) + vp.At(0, 2),
		vp.At(3, 3) + vp.At(0, 3),
	}
	// Right plane: Row 3 - Row 0
	planes[PlaneRight] = mgl32.Vec4{
		vp.At(3, 0) - vp.At(0, 0),
		vp.At(3, 1) - vp.At(0, 1),
		vp.At(3, 2) - vp.At(0, 2),
		vp.At(3, 3) - vp.At(0, 3),
	}
	// Bottom plane: Row 3 + Row 1
	planes[PlaneBottom] = mgl32.Vec4{
		vp.At(3, 0) + vp.At(1, 0),
		vp.At(3, 1) + vp.At(1, 1),
		vp.At(3, 2) + vp.At(1, 2),
		vp.At(3, 3) + vp.At(1, 3),
	}
	// Top plane: Row 3 - Row 1
	planes[PlaneTop] = mgl32.Vec4{
		vp.At(3, 0) - vp.At(1, 0),
		vp.At(3, 1) - vp.At(1, 1),
		vp.At(3, 2) - vp.At(1, 2),
		vp.At(3, 3) - vp.At(1, 3),
	}
	// Near plane: Row 3 + Row 2
	planes[PlaneNear] = mgl32.Vec4{
		vp.At(3, 0) + vp.At(2, 0),
		vp.At(3, 1) + vp.At(2, 1),
		vp.At(3, 2) + vp.At(2, 2),
		vp.At(3, 3) + vp.At(2, 3),
	}
	// Far plane: Row 3 - Row 2
	planes[PlaneFar] = mgl32.Vec4{
		vp.At(3, 0) - vp.At(2, 0),
		vp.At(3, 1) - vp.At(2, 1),
		vp.At(3, 2) - vp.At(2, 2),
		vp.At(3, 3) - vp.At(2, 3),
	}

	for i := range planes {
		length := float32(math.Sqrt(float64(planes[i][0]*planes[i][0] + planes[i][1]*planes[i][1] + planes[i][2]*planes[i][2])))
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}

	return planes
}

// IntersectsAABB reports whether the box is not fully outside any plane.
func (f *Frustum) IntersectsAABB(aabb [2]mgl32.Vec3) bool {
	for i := range f {
		plane := f[i]
		// Positive vertex: the corner furthest along the normal. If even
		// that one is behind the plane, the whole box is.
		var p mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if plane[axis] > 0 {
				p[axis] = aabb[1][axis]
			} else {
				p[axis] = aabb[0][axis]
			}
		}

		if plane[0]*p[0]+plane[1]*p[1]+plane[2]*p[2]+plane[3] < 0 {
			return false
		}
	}
	return true
}

// SelectVisibleCells appends to out the indices of all cells whose bounds
// intersect the frustum. Cells are visited in index order, so the result
// is ascending, which BatchDispatches depends on.
func SelectVisibleCells(g *Grid, f Frustum, out []int) []int {
	out = out[:0]
	for i := range g.Cells {
		if f.IntersectsAABB(g.CellBounds(i)) {
			out = append(out, i)
		}
	}
	return out
}
