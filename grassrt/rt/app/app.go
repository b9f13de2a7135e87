package app

import (
	"fmt"

	"github.com/gekko3d/grass/grassrt/rt/core"
	"github.com/gekko3d/grass/grassrt/rt/gpu"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// App owns the window surface and the WebGPU device and implements
// core.Backend on top of a GrassBufferManager.
type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	DepthTexture *wgpu.Texture
	DepthView    *wgpu.TextureView

	BufferManager *gpu.GrassBufferManager
	Profiler      *Profiler
	Mesh          *core.Mesh
	ClearColor    wgpu.Color

	LastRenderTime float64
	FrameCount     int
	FPS            float64
	FPSTime        float64
}

var (
	_ core.Backend     = (*App)(nil)
	_ core.MeshBackend = (*App)(nil)
)

func NewApp(window *glfw.Window, mesh *core.Mesh) *App {
	if mesh == nil {
		mesh = core.BladeMesh()
	}
	return &App{
		Window:     window,
		Profiler:   NewProfiler(),
		Mesh:       mesh,
		ClearColor: wgpu.Color{R: 0.45, G: 0.62, B: 0.85, A: 1},
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)

	surface := a.Instance.CreateSurface(GetSurfaceDescriptor(a.Window))
	a.Surface = surface

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return err
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return err
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	format := caps.Formats[0]

	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, a.Device, a.Config)

	if err := a.setupDepth(width, height); err != nil {
		return err
	}

	a.BufferManager = gpu.NewGrassBufferManager(a.Device)
	if err := a.BufferManager.InitPipelines(format, a.Mesh); err != nil {
		return err
	}

	a.LastRenderTime = glfw.GetTime()
	return nil
}

func (a *App) setupDepth(w, h int) error {
	if w == 0 || h == 0 {
		return nil
	}
	if a.DepthView != nil {
		a.DepthView.Release()
		a.DepthView = nil
	}
	if a.DepthTexture != nil {
		a.DepthTexture.Release()
		a.DepthTexture = nil
	}

	var err error
	a.DepthTexture, err = a.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Grass Depth",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        gpu.DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("failed to create depth texture: %w", err)
	}
	a.DepthView, err = a.DepthTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("failed to create depth view: %w", err)
	}
	return nil
}

func (a *App) Resize(w, h int) {
	if w > 0 && h > 0 {
		a.Config.Width = uint32(w)
		a.Config.Height = uint32(h)
		a.Surface.Configure(a.Adapter, a.Device, a.Config)
		if err := a.setupDepth(w, h); err != nil {
			fmt.Printf("ERROR: resize depth: %v\n", err)
		}
	}
}

// Aspect returns the surface aspect ratio.
func (a *App) Aspect() float32 {
	if a.Config == nil || a.Config.Height == 0 {
		return 1
	}
	return float32(a.Config.Width) / float32(a.Config.Height)
}

func (a *App) Ready() bool {
	return a.BufferManager != nil && a.BufferManager.Ready()
}

func (a *App) Upload(grid *core.Grid, args core.IndirectArgs) error {
	if a.BufferManager == nil {
		return gpu.ErrNotInitialized
	}
	return a.BufferManager.Upload(grid, args)
}

// SetMesh swaps the blade vertex and index buffers.
func (a *App) SetMesh(mesh *core.Mesh) error {
	if a.BufferManager == nil {
		return gpu.ErrNotInitialized
	}
	if err := a.BufferManager.SetMesh(mesh); err != nil {
		return err
	}
	a.Mesh = mesh
	return nil
}

// Execute records the cull pass, the indirect draw and presents. A plan
// with SkipDraw still clears and presents the frame.
func (a *App) Execute(plan *core.FramePlan) error {
	if a.BufferManager == nil || a.DepthView == nil {
		return gpu.ErrNotInitialized
	}

	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("GetCurrentTexture failed: %w", err)
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("CreateView failed: %w", err)
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("CreateCommandEncoder failed: %w", err)
	}
	defer encoder.Release()

	a.Profiler.BeginScope("Encode")
	if err := a.BufferManager.EncodeCull(encoder, plan); err != nil {
		a.Profiler.EndScope("Encode")
		return err
	}

	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: a.ClearColor,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            a.DepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	if !plan.SkipDraw {
		a.BufferManager.EncodeDraw(rPass)
	}
	if err := rPass.End(); err != nil {
		a.Profiler.EndScope("Encode")
		return fmt.Errorf("render pass End failed: %w", err)
	}
	a.Profiler.EndScope("Encode")

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("encoder Finish failed: %w", err)
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()

	now := glfw.GetTime()
	if a.LastRenderTime > 0 {
		a.FrameCount++
		a.FPSTime += now - a.LastRenderTime
		if a.FPSTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.FPSTime
			a.FrameCount = 0
			a.FPSTime = 0
		}
	}
	a.LastRenderTime = now
	return nil
}

// Release drops the instance buffers. The device and pipelines stay alive
// so the next upload can rebind; Shutdown frees everything.
func (a *App) Release() {
	if a.BufferManager != nil {
		a.BufferManager.ReleaseInstances()
	}
}

func (a *App) Shutdown() {
	if a.BufferManager != nil {
		a.BufferManager.Release()
		a.BufferManager = nil
	}
	if a.DepthView != nil {
		a.DepthView.Release()
		a.DepthView = nil
	}
	if a.DepthTexture != nil {
		a.DepthTexture.Release()
		a.DepthTexture = nil
	}
	if a.Device != nil {
		a.Device.Release()
		a.Device = nil
	}
	if a.Surface != nil {
		a.Surface.Release()
		a.Surface = nil
	}
}

func GetSurfaceDescriptor(w *glfw.Window) *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w)
}
