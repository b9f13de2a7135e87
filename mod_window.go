package grass

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
)

type WindowState struct {
	windowGlfw   *glfw.Window
	WindowWidth  int
	WindowHeight int
	windowTitle  string
}

func (s *WindowState) Window() *glfw.Window {
	return s.windowGlfw
}

// WindowModule creates the single GLFW window shared by the renderer and
// input. glfw.Init must have been called on the main thread.
type WindowModule struct {
	Width  int
	Height int
	Title  string
}

func NewWindowModule(cfg WindowConfig) WindowModule {
	m := WindowModule{Width: cfg.Width, Height: cfg.Height, Title: cfg.Title}
	if m.Width <= 0 {
		m.Width = 1280
	}
	if m.Height <= 0 {
		m.Height = 720
	}
	if m.Title == "" {
		m.Title = "Grass"
	}
	return m
}

func (m WindowModule) Install(app *App, cmd *Commands) {
	if Resource[WindowState](app) != nil {
		return
	}

	ws, err := createWindowState(m.Width, m.Height, m.Title)
	if err != nil {
		panic(err)
	}
	cmd.AddResources(ws)
	app.UseSystem(
		System(windowCloseSystem).
			InStage(PreUpdate).
			InState(OnExecute(StateRunning)),
	)
	app.UseSystem(
		System(windowDestroySystem).
			InStage(Finale).
			InState(OnEnter(StateExit)),
	)
}

func createWindowState(width, height int, title string) (*WindowState, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // WebGPU owns the surface
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	return &WindowState{
		windowGlfw:   win,
		WindowWidth:  width,
		WindowHeight: height,
		windowTitle:  title,
	}, nil
}

func windowCloseSystem(s *WindowState, cmd *Commands) {
	s.WindowWidth, s.WindowHeight = s.windowGlfw.GetFramebufferSize()
	if s.windowGlfw.ShouldClose() {
		cmd.ChangeState(StateExit)
	}
}

// windowDestroySystem runs after the renderer has released its surface.
func windowDestroySystem(s *WindowState) {
	if s.windowGlfw != nil {
		s.windowGlfw.Destroy()
		s.windowGlfw = nil
	}
}
