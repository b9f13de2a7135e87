package grass

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestOrbitCameraModuleDefaults(t *testing.T) {
	app := NewAppBuilder().
		UseModule(TimeModule{}, NewOrbitCameraModule(DefaultConfig().Camera)).
		Build()

	orbit := Resource[OrbitCamera](app)
	assert.InDelta(t, mgl32.DegToRad(60), orbit.Camera.FovY, 1e-6)
	assert.Equal(t, float32(0.3), orbit.Camera.Near)
	assert.Equal(t, float32(1000), orbit.Camera.Far)
	assert.Equal(t, mgl32.Vec3{60, 12, 0}, orbit.Camera.Position)
	assert.Equal(t, mgl32.Vec3{}, orbit.Camera.Target)
}

func TestOrbitCameraAdvances(t *testing.T) {
	orbit := &OrbitCamera{Radius: 10, Height: 2, Speed: math.Pi / 2}

	orbitCameraSystem(&Time{Dt: time.Second}, orbit)
	assert.InDelta(t, math.Pi/2, orbit.Angle, 1e-6)
	assert.InDelta(t, 0, orbit.Camera.Position.X(), 1e-5)
	assert.InDelta(t, 10, orbit.Camera.Position.Z(), 1e-5)
	assert.Equal(t, float32(2), orbit.Camera.Position.Y())

	orbit.Paused = true
	orbitCameraSystem(&Time{Dt: time.Second}, orbit)
	assert.InDelta(t, math.Pi/2, orbit.Angle, 1e-6)

	orbit.Paused = false
	for range 3 {
		orbitCameraSystem(&Time{Dt: time.Second}, orbit)
	}
	assert.Less(t, orbit.Angle, float32(2*math.Pi), "angle wraps")
	assert.InDelta(t, 0, orbit.Angle, 1e-5)
}

func TestFrameLimitSystem(t *testing.T) {
	app := NewAppBuilder().
		UseStates(StateRunning, StateExit).
		UseModule(TimeModule{}, LifecycleModule{MaxFrames: 2}).
		Build()

	assert.False(t, app.Step())
	assert.Equal(t, StateRunning, app.State())
	assert.True(t, app.Step())
	assert.Equal(t, StateExit, app.State())
}

func TestInputEdges(t *testing.T) {
	var in Input
	in.update(KeyB, true)
	assert.True(t, in.Pressed[KeyB])
	assert.True(t, in.JustPressed[KeyB])

	in.update(KeyB, true)
	assert.False(t, in.JustPressed[KeyB])

	in.update(KeyB, false)
	assert.False(t, in.Pressed[KeyB])
	assert.True(t, in.JustReleased[KeyB])
}
