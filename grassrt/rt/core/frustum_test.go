package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrustumCulling(t *testing.T) {
	// Camera at origin looking down -Z
	// Perspective: 90 deg FOV, Aspect 1.0, Near 1, Far 100
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0)
	view := mgl32.LookAtV(
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 0, -1},
		mgl32.Vec3{0, 1, 0},
	)
	planes := ExtractFrustum(proj.Mul4(view))

	tests := []struct {
		name     string
		aabbMin  mgl32.Vec3
		aabbMax  mgl32.Vec3
		expected bool
	}{
		{"Inside (center)", mgl32.Vec3{-1, -1, -10}, mgl32.Vec3{1, 1, -5}, true},
		{"Outside (Left)", mgl32.Vec3{-20, -1, -10}, mgl32.Vec3{-15, 1, -5}, false},
		{"Outside (Right)", mgl32.Vec3{15, -1, -10}, mgl32.Vec3{20, 1, -5}, false},
		{"Outside (Behind/Near)", mgl32.Vec3{-1, -1, 2}, mgl32.Vec3{1, 1, 5}, false},
		{"Outside (Far)", mgl32.Vec3{-1, -1, -200}, mgl32.Vec3{1, 1, -150}, false},
		{"Intersecting (Left Plane)", mgl32.Vec3{-15, -1, -10}, mgl32.Vec3{-5, 1, -5}, true},
		{"Encompassing (Huge box)", mgl32.Vec3{-1000, -1000, -1000}, mgl32.Vec3{1000, 1000, 1000}, true},
		{"Flat (zero height)", mgl32.Vec3{-2, 0, -20}, mgl32.Vec3{2, 0, -10}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			visible := planes.IntersectsAABB([2]mgl32.Vec3{tc.aabbMin, tc.aabbMax})
			if visible != tc.expected {
				center := tc.aabbMin.Add(tc.aabbMax).Mul(0.5)
				for i, p := range planes {
					t.Logf("  P%d: %v, Dist(Center)=%f", i, p, p.Dot(center.Vec4(1.0)))
				}
				t.Errorf("expected %v, got %v", tc.expected, visible)
			}
		})
	}
}

func TestFrustumOrtho(t *testing.T) {
	proj := mgl32.Ortho(-10, 10, -10, 10, 0, 20)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	planes := ExtractFrustum(proj.Mul4(view))

	assert.True(t, planes.IntersectsAABB([2]mgl32.Vec3{{-1, -1, -6}, {1, 1, -4}}))
	// Far is 20 => Z=-20.
	assert.False(t, planes.IntersectsAABB([2]mgl32.Vec3{{-1, -1, -26}, {1, 1, -24}}))
	// Behind the camera.
	assert.False(t, planes.IntersectsAABB([2]mgl32.Vec3{{-1, -1, 4}, {1, 1, 6}}))
}

func TestCameraWithFarDoesNotMutate(t *testing.T) {
	cam := NewCamera()
	cam.Far = 1000

	near := cam.WithFar(50)
	assert.Equal(t, float32(50), near.Far)
	assert.Equal(t, float32(1000), cam.Far)

	// A far plane in front of the near plane is ignored.
	assert.Equal(t, cam.Far, cam.WithFar(cam.Near/2).Far)
}

// corridorGrid returns a 1-cell wide strip of cells running from z=0 to
// z=-500 under a camera at the origin looking down -Z.
func corridorGrid(t *testing.T) *Grid {
	t.Helper()
	var positions []mgl32.Vec3
	for z := float32(0); z >= -500; z -= 2.5 {
		positions = append(positions, mgl32.Vec3{-5, 0, z}, mgl32.Vec3{5, 0, z})
	}
	g := buildGrid(t, positions, 10, 10)
	require.Equal(t, 1, g.CountX)
	require.Equal(t, 50, g.CountZ)
	return g
}

func TestSelectVisibleCellsDrawDistance(t *testing.T) {
	g := corridorGrid(t)

	cam := Camera{
		Position: mgl32.Vec3{0, 0, 0},
		Target:   mgl32.Vec3{0, 0, -1},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     mgl32.DegToRad(90),
		Aspect:   1,
		Near:     0.5,
		Far:      10000,
	}
	const drawDistance = 100

	visible := SelectVisibleCells(g, cam.CullingFrustum(drawDistance), nil)
	require.NotEmpty(t, visible)
	assert.Equal(t, float32(10000), cam.Far)

	set := make(map[int]bool)
	for i, idx := range visible {
		if i > 0 {
			assert.Greater(t, idx, visible[i-1], "visible cells must be ascending")
		}
		set[idx] = true
	}

	for i := range g.Cells {
		b := g.CellBounds(i)
		if b[1].Z() < -drawDistance-1 {
			assert.False(t, set[i], "cell %d (%v) lies beyond the draw distance", i, b)
		}
		// Fully inside all planes: in front of near, before far, narrower than the view cone.
		if b[1].Z() < -10 && b[0].Z() > -drawDistance+1 {
			assert.True(t, set[i], "cell %d (%v) is fully inside", i, b)
		}
	}
}

func TestSelectVisibleCellsEverythingBehind(t *testing.T) {
	g := corridorGrid(t)
	cam := Camera{
		Position: mgl32.Vec3{0, 0, 10},
		Target:   mgl32.Vec3{0, 0, 20},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     mgl32.DegToRad(60),
		Aspect:   1,
		Near:     0.5,
		Far:      1000,
	}
	assert.Empty(t, SelectVisibleCells(g, cam.CullingFrustum(1000), nil))
}
