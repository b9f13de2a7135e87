package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a Y-up perspective camera. Angles are in radians.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32
	Aspect   float32
	Near     float32
	Far      float32
}

func NewCamera() Camera {
	return Camera{
		Position: mgl32.Vec3{0, 10, 40},
		Target:   mgl32.Vec3{0, 0, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     mgl32.DegToRad(60),
		Aspect:   16.0 / 9.0,
		Near:     0.3,
		Far:      1000,
	}
}

func (c Camera) View() mgl32.Mat4 {
	up := c.Up
	if up.Len() == 0 {
		up = mgl32.Vec3{0, 1, 0}
	}
	return mgl32.LookAtV(c.Position, c.Target, up)
}

func (c Camera) Projection() mgl32.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(c.FovY, aspect, c.Near, c.Far)
}

func (c Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

// WithFar returns a copy of the camera with the far plane replaced. The
// receiver is a value, so the caller's camera keeps its own far plane.
func (c Camera) WithFar(far float32) Camera {
	if far > c.Near {
		c.Far = far
	}
	return c
}

// CullingFrustum returns the frustum used for cell culling: the camera's
// frustum with drawDistance substituted for the far plane.
func (c Camera) CullingFrustum(drawDistance float32) Frustum {
	return ExtractFrustum(c.WithFar(drawDistance).ViewProjection())
}
