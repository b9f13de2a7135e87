package grass

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	KeyB int = iota
	KeyP
	KeyEscape
	KeyUp
	KeyDown
	KeyF3
	keyCount
)

var keyToGlfw = map[int]glfw.Key{
	KeyB:      glfw.KeyB,
	KeyP:      glfw.KeyP,
	KeyEscape: glfw.KeyEscape,
	KeyUp:     glfw.KeyUp,
	KeyDown:   glfw.KeyDown,
	KeyF3:     glfw.KeyF3,
}

type InputModule struct{}

type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool
}

func (mod InputModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Input{})
	app.UseSystem(
		System(inputSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
}

func inputSystem(s *WindowState, input *Input) {
	glfw.PollEvents()

	for key, glfwKey := range keyToGlfw {
		input.update(key, s.windowGlfw.GetKey(glfwKey) == glfw.Press)
	}
}

func (input *Input) update(key int, down bool) {
	input.JustPressed[key] = down && !input.Pressed[key]
	input.JustReleased[key] = !down && input.Pressed[key]
	input.Pressed[key] = down
}

// grassControlSystem maps keys onto renderer settings:
// Up/Down scale the draw distance, B toggles batched dispatch, P pauses the
// orbit, F3 toggles debug logging and Escape closes the window.
func grassControlSystem(input *Input, grass *GrassState, orbit *OrbitCamera, ws *WindowState, cmd *Commands) {
	r := grass.Renderer
	if input.Pressed[KeyUp] {
		r.SetDrawDistance(r.Settings().DrawDistance * 1.02)
	}
	if input.Pressed[KeyDown] {
		r.SetDrawDistance(r.Settings().DrawDistance / 1.02)
	}
	if input.JustPressed[KeyB] {
		r.SetBatchDispatch(!r.Settings().BatchDispatch)
		cmd.Logger().Infof("batch dispatch: %v", r.Settings().BatchDispatch)
	}
	if input.JustPressed[KeyP] {
		orbit.Paused = !orbit.Paused
	}
	if input.JustPressed[KeyF3] {
		l := cmd.Logger()
		l.SetDebug(!l.DebugEnabled())
	}
	if input.JustPressed[KeyEscape] {
		ws.windowGlfw.SetShouldClose(true)
	}
}
