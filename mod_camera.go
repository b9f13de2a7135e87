package grass

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/grass/grassrt/rt/core"
)

// OrbitCamera circles Target at Radius and Height, Speed radians per second.
type OrbitCamera struct {
	Camera core.Camera
	Target mgl32.Vec3
	Radius float32
	Height float32
	Speed  float32
	Angle  float32
	Paused bool
}

type OrbitCameraModule struct {
	FovY   float32 // degrees
	Near   float32
	Far    float32
	Target mgl32.Vec3
	Radius float32
	Height float32
	Speed  float32
}

func NewOrbitCameraModule(cfg CameraConfig) OrbitCameraModule {
	return OrbitCameraModule{
		FovY:   cfg.FovY,
		Near:   cfg.Near,
		Far:    cfg.Far,
		Radius: cfg.OrbitRadius,
		Height: cfg.OrbitHeight,
		Speed:  cfg.OrbitSpeed,
	}
}

func (mod OrbitCameraModule) Install(app *App, cmd *Commands) {
	cam := core.NewCamera()
	if mod.FovY > 0 {
		cam.FovY = mgl32.DegToRad(mod.FovY)
	}
	if mod.Near > 0 {
		cam.Near = mod.Near
	}
	if mod.Far > cam.Near {
		cam.Far = mod.Far
	}

	orbit := &OrbitCamera{
		Camera: cam,
		Target: mod.Target,
		Radius: mod.Radius,
		Height: mod.Height,
		Speed:  mod.Speed,
	}
	orbit.apply()
	cmd.AddResources(orbit)

	app.UseSystem(
		System(orbitCameraSystem).
			InStage(Update).
			RunAlways(),
	)
}

func (o *OrbitCamera) apply() {
	sin, cos := math.Sincos(float64(o.Angle))
	o.Camera.Position = mgl32.Vec3{
		o.Target.X() + o.Radius*float32(cos),
		o.Target.Y() + o.Height,
		o.Target.Z() + o.Radius*float32(sin),
	}
	o.Camera.Target = o.Target
}

func orbitCameraSystem(time *Time, orbit *OrbitCamera) {
	if !orbit.Paused {
		orbit.Angle = float32(math.Mod(float64(orbit.Angle+orbit.Speed*time.Seconds()), 2*math.Pi))
	}
	orbit.apply()
}
