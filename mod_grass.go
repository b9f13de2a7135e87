package grass

import (
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	app_rt "github.com/gekko3d/grass/grassrt/rt/app"
	"github.com/gekko3d/grass/grassrt/rt/core"
)

// GrassModule installs the grass renderer. Headless mode culls on the CPU
// through core.SoftwareBackend and needs no window; otherwise WindowModule
// must be installed first.
type GrassModule struct {
	Settings core.Settings
	Headless bool
	Mesh     AssetId
	// StatsInterval is how often debug stats are logged. Zero means 1s.
	StatsInterval time.Duration
}

var _ core.PositionSink = (*GrassState)(nil)

type GrassState struct {
	Renderer  *core.Renderer
	RtApp     *app_rt.App
	Software  *core.SoftwareBackend
	Profiler  *app_rt.Profiler
	LastStats core.FrameStats

	statsInterval time.Duration
	sinceStats    time.Duration

	meshId      AssetId
	meshVersion uint
}

func (s *GrassState) FPS() float64 {
	if s == nil || s.RtApp == nil {
		return 0
	}
	return s.RtApp.FPS
}

func (s *GrassState) ProfilerStats() string {
	if s == nil || s.Profiler == nil {
		return ""
	}
	return s.Profiler.GetStatsString()
}

// Aspect is the surface aspect ratio, or 16:9 when headless.
func (s *GrassState) Aspect() float32 {
	if s.RtApp != nil {
		return s.RtApp.Aspect()
	}
	return 16.0 / 9.0
}

// SetInstancePositions and SetMaterialTransform make the state a
// core.PositionSink for producers.
func (s *GrassState) SetInstancePositions(positions []mgl32.Vec3) {
	s.Renderer.SetInstancePositions(positions)
}

func (s *GrassState) SetMaterialTransform(pivot mgl32.Vec3, boundSize mgl32.Vec2) {
	s.Renderer.SetMaterialTransform(pivot, boundSize)
}

func (mod GrassModule) Install(app *App, cmd *Commands) {
	state := &GrassState{
		Profiler:      app_rt.NewProfiler(),
		statsInterval: mod.StatsInterval,
	}
	if state.statsInterval <= 0 {
		state.statsInterval = time.Second
	}

	var mesh *core.Mesh
	if mod.Mesh != "" {
		server := Resource[AssetServer](app)
		if server == nil {
			panic("GrassModule: Mesh is set but AssetServerModule is not installed")
		}
		m, err := server.Mesh(mod.Mesh)
		if err != nil {
			panic(err)
		}
		mesh = m
		state.meshId = mod.Mesh
		state.meshVersion, _ = server.MeshVersion(mod.Mesh)
	}

	settings := mod.Settings
	if settings == (core.Settings{}) {
		settings = core.DefaultSettings()
	}

	var backend core.Backend
	if mod.Headless {
		state.Software = core.NewSoftwareBackend()
		backend = state.Software
	} else {
		ws := Resource[WindowState](app)
		if ws == nil {
			panic("GrassModule: WindowModule must be installed before GrassModule")
		}
		rt := app_rt.NewApp(ws.windowGlfw, mesh)
		rt.Profiler = state.Profiler
		if err := rt.Init(); err != nil {
			panic(err)
		}
		ws.windowGlfw.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
			rt.Resize(width, height)
		})
		state.RtApp = rt
		backend = rt
	}

	renderer, err := core.NewRenderer(backend,
		core.WithSettings(settings),
		core.WithLogger(namedLogger(app, "renderer")),
		core.WithProfiler(state.Profiler),
		core.WithMesh(mesh),
	)
	if err != nil {
		panic(err)
	}
	state.Renderer = renderer
	cmd.AddResources(state)

	app.UseSystem(
		System(grassRenderSystem).
			InStage(Render).
			RunAlways(),
	)
	if state.meshId != "" {
		app.UseSystem(
			System(grassMeshSystem).
				InStage(PreRender).
				RunAlways(),
		)
	}
	if !mod.Headless && Resource[Input](app) != nil {
		app.UseSystem(
			System(grassControlSystem).
				InStage(Update).
				RunAlways(),
		)
	}
	if app.stateful {
		app.UseSystem(
			System(grassShutdownSystem).
				InStage(Render).
				InState(OnEnter(StateExit)),
		)
	}
}

func grassRenderSystem(state *GrassState, orbit *OrbitCamera, t *Time, cmd *Commands) {
	cam := orbit.Camera
	cam.Aspect = state.Aspect()

	state.Profiler.BeginScope("Frame")
	state.LastStats = state.Renderer.Frame(cam)
	state.Profiler.EndScope("Frame")

	state.sinceStats += t.Dt
	if state.sinceStats >= state.statsInterval {
		state.sinceStats = 0
		logger := cmd.Logger()
		if logger.DebugEnabled() {
			logger.Debugf("grass: %d/%d cells visible, %d dispatches, %.1f fps\n%s",
				state.LastStats.VisibleCells, state.LastStats.Cells, state.LastStats.Dispatches,
				state.FPS(), state.ProfilerStats())
		}
	}
	state.Profiler.Reset()
}

// grassMeshSystem pushes asset server updates of the blade mesh into the
// renderer.
func grassMeshSystem(state *GrassState, server *AssetServer, cmd *Commands) {
	version, ok := server.MeshVersion(state.meshId)
	if !ok || version == state.meshVersion {
		return
	}
	state.meshVersion = version

	mesh, err := server.Mesh(state.meshId)
	if err == nil {
		err = state.Renderer.SetMesh(mesh)
	}
	if err != nil {
		cmd.Logger().Errorf("grass: mesh %s version %d: %v", state.meshId, version, err)
		return
	}
	cmd.Logger().Debugf("grass: mesh %s updated to version %d", state.meshId, version)
}

func grassShutdownSystem(state *GrassState) {
	state.Renderer.Release()
	if state.RtApp != nil {
		state.RtApp.Shutdown()
	}
}
