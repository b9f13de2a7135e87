package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/maphash"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

var (
	ErrNoBackend       = errors.New("grass: no backend")
	ErrInvalidSettings = errors.New("grass: invalid settings")
)

// RebuildPolicy decides which changes to the instance set rebuild the grid
// and the GPU buffers.
type RebuildPolicy int

const (
	// RebuildOnContent rebuilds when the count or the position data changes.
	RebuildOnContent RebuildPolicy = iota
	// RebuildOnCount rebuilds only when the instance count changes. Moving
	// instances without changing their number keeps the old buffers.
	RebuildOnCount
)

func (p RebuildPolicy) String() string {
	switch p {
	case RebuildOnContent:
		return "content"
	case RebuildOnCount:
		return "count"
	}
	return fmt.Sprintf("RebuildPolicy(%d)", int(p))
}

func ParseRebuildPolicy(s string) (RebuildPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "content":
		return RebuildOnContent, nil
	case "count":
		return RebuildOnCount, nil
	}
	return 0, fmt.Errorf("%w: unknown rebuild policy %q", ErrInvalidSettings, s)
}

type Settings struct {
	CellSizeX     float32
	CellSizeZ     float32
	DrawDistance  float32
	BatchDispatch bool
	Policy        RebuildPolicy
}

func DefaultSettings() Settings {
	return Settings{
		CellSizeX:     10,
		CellSizeZ:     10,
		DrawDistance:  125,
		BatchDispatch: true,
		Policy:        RebuildOnContent,
	}
}

func (s Settings) Validate() error {
	if s.CellSizeX <= 0 || s.CellSizeZ <= 0 {
		return fmt.Errorf("%w: cell size must be positive, got %vx%v", ErrInvalidSettings, s.CellSizeX, s.CellSizeZ)
	}
	if s.DrawDistance <= 0 {
		return fmt.Errorf("%w: draw distance must be positive, got %v", ErrInvalidSettings, s.DrawDistance)
	}
	if s.Policy != RebuildOnContent && s.Policy != RebuildOnCount {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, s.Policy)
	}
	return nil
}

// Logger is the subset of the engine logger used by the renderer.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Profiler receives CPU timings and per-frame counters.
type Profiler interface {
	BeginScope(name string)
	EndScope(name string)
	SetCount(name string, count int)
}

type nopProfiler struct{}

func (nopProfiler) BeginScope(string)    {}
func (nopProfiler) EndScope(string)      {}
func (nopProfiler) SetCount(string, int) {}

// PositionSink is what instance producers push their output into.
type PositionSink interface {
	SetInstancePositions(positions []mgl32.Vec3)
	SetMaterialTransform(pivot mgl32.Vec3, boundSize mgl32.Vec2)
}

// MaterialParams are the draw material's uniforms for in-shader remapping.
type MaterialParams struct {
	PivotPosWS mgl32.Vec3
	BoundSize  mgl32.Vec2
}

// FramePlan is everything a backend needs to record one frame, in
// submission order: reset the survivor counter, dispatch Ranges, copy the
// counter into the indirect args, draw.
type FramePlan struct {
	Frame           uint64
	ViewProj        mgl32.Mat4
	CameraPos       mgl32.Vec3
	MaxDrawDistance float32
	Ranges          []DispatchRange
	Material        MaterialParams
	Bounds          [2]mgl32.Vec3
	// SkipDraw is set when there is nothing to draw: no instances, or the
	// whole field is outside the frustum. Backends still present the frame.
	SkipDraw bool
}

// Backend owns the device-side buffers and executes frame plans.
type Backend interface {
	// Ready reports whether the positions, survivor and args buffers are all bound.
	Ready() bool
	// Upload replaces all instance buffers as one unit. On error the
	// previously bound buffers must be left untouched.
	Upload(grid *Grid, args IndirectArgs) error
	Execute(plan *FramePlan) error
	Release()
}

// MeshBackend is implemented by backends that keep their own copy of the
// blade mesh.
type MeshBackend interface {
	SetMesh(mesh *Mesh) error
}

type FrameStats struct {
	Frame        uint64
	Instances    int
	Cells        int
	VisibleCells int
	Dispatches   int
	Rebuilt      bool
	Skipped      bool
	Err          error
}

// Renderer runs the CPU half of the pipeline: grid rebuilds, cell culling
// and dispatch batching. It is driven from a single goroutine, once per frame.
type Renderer struct {
	settings Settings
	backend  Backend
	logger   Logger
	profiler Profiler
	mesh     *Mesh

	positions   []mgl32.Vec3
	pendingHash uint64
	hashSeed    maphash.Seed
	material    MaterialParams

	grid       *Grid
	generation uuid.UUID
	countCache int
	hashCache  uint64

	// Input of the last failed rebuild. It is not retried until the input
	// changes or the renderer is released.
	failed      bool
	failedCount int
	failedHash  uint64

	frame   uint64
	visible []int
	ranges  []DispatchRange
	plan    FramePlan
}

type RendererOption func(*Renderer)

func WithSettings(s Settings) RendererOption {
	return func(r *Renderer) {
		r.settings = s
	}
}

func WithLogger(l Logger) RendererOption {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithProfiler(p Profiler) RendererOption {
	return func(r *Renderer) {
		if p != nil {
			r.profiler = p
		}
	}
}

// WithMesh replaces the default blade triangle.
func WithMesh(m *Mesh) RendererOption {
	return func(r *Renderer) {
		if m != nil && len(m.Indices) > 0 {
			r.mesh = m
		}
	}
}

func NewRenderer(backend Backend, opts ...RendererOption) (*Renderer, error) {
	r := &Renderer{
		settings:   DefaultSettings(),
		backend:    backend,
		logger:     nopLogger{},
		profiler:   nopProfiler{},
		mesh:       BladeMesh(),
		hashSeed:   maphash.MakeSeed(),
		countCache: -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if backend == nil {
		return nil, ErrNoBackend
	}
	if err := r.settings.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) Settings() Settings { return r.settings }
func (r *Renderer) Mesh() *Mesh        { return r.mesh }
func (r *Renderer) Grid() *Grid        { return r.grid }

// Generation identifies the currently uploaded grid. It is the zero UUID
// until the first successful upload.
func (r *Renderer) Generation() uuid.UUID { return r.generation }

// SetDrawDistance changes the culling radius from the next frame on.
func (r *Renderer) SetDrawDistance(d float32) {
	if d > 0 {
		r.settings.DrawDistance = d
	}
}

// SetMesh replaces the blade mesh and forces a rebuild on the next frame,
// so the indirect args pick up the new index count.
func (r *Renderer) SetMesh(m *Mesh) error {
	if m == nil || len(m.Indices) == 0 {
		return fmt.Errorf("%w: empty mesh", ErrInvalidSettings)
	}
	if mb, ok := r.backend.(MeshBackend); ok {
		if err := mb.SetMesh(m); err != nil {
			return fmt.Errorf("set mesh: %w", err)
		}
	}
	r.mesh = m
	r.countCache = -1
	r.failed = false
	return nil
}

func (r *Renderer) SetBatchDispatch(enabled bool) {
	r.settings.BatchDispatch = enabled
}

// SetInstancePositions replaces the whole instance set. The renderer keeps
// the slice until the next call; callers must not modify it afterwards.
func (r *Renderer) SetInstancePositions(positions []mgl32.Vec3) {
	r.positions = positions
	if r.settings.Policy == RebuildOnContent {
		r.pendingHash = hashPositions(r.hashSeed, positions)
	}
}

func (r *Renderer) SetMaterialTransform(pivot mgl32.Vec3, boundSize mgl32.Vec2) {
	r.material = MaterialParams{PivotPosWS: pivot, BoundSize: boundSize}
}

func hashPositions(seed maphash.Seed, positions []mgl32.Vec3) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	var buf [12]byte
	for _, p := range positions {
		binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(p[0]))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(p[1]))
		binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(p[2]))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// NeedsRebuild reports whether the next frame must rebuild the grid.
func (r *Renderer) NeedsRebuild() bool {
	if r.failed && r.sameAsFailed() {
		return false
	}
	if r.grid == nil || !r.backend.Ready() {
		return true
	}
	if len(r.positions) != r.countCache {
		return true
	}
	return r.settings.Policy == RebuildOnContent && r.pendingHash != r.hashCache
}

func (r *Renderer) sameAsFailed() bool {
	if len(r.positions) != r.failedCount {
		return false
	}
	return r.settings.Policy != RebuildOnContent || r.pendingHash == r.failedHash
}

func (r *Renderer) rebuild() error {
	r.profiler.BeginScope("Grid Rebuild")
	grid, err := BuildGrid(r.positions, r.settings.CellSizeX, r.settings.CellSizeZ)
	r.profiler.EndScope("Grid Rebuild")
	if err != nil {
		return fmt.Errorf("build grid for %d instances: %w", len(r.positions), err)
	}

	args := NewIndirectArgs(r.mesh, grid.Len())
	if err := r.backend.Upload(grid, args); err != nil {
		return fmt.Errorf("upload %d instances: %w", grid.Len(), err)
	}

	r.grid = grid
	r.generation = uuid.New()
	r.countCache = len(r.positions)
	r.hashCache = r.pendingHash
	r.logger.Infof("grass grid rebuilt: %d instances, %dx%d cells, generation %s",
		grid.Len(), grid.CountX, grid.CountZ, r.generation)
	return nil
}

// Plan culls the committed grid against the camera and batches the visible
// cells. The returned plan is reused by the next call.
func (r *Renderer) Plan(cam Camera) *FramePlan {
	p := &r.plan
	p.Frame = r.frame
	p.ViewProj = cam.ViewProjection()
	p.CameraPos = cam.Position
	p.MaxDrawDistance = r.settings.DrawDistance
	p.Material = r.material
	p.Ranges = p.Ranges[:0]
	p.SkipDraw = false
	r.visible = r.visible[:0]

	if r.grid == nil || r.grid.Len() == 0 {
		p.Bounds = [2]mgl32.Vec3{}
		p.SkipDraw = true
		return p
	}
	p.Bounds = r.grid.Bounds()

	frustum := cam.CullingFrustum(r.settings.DrawDistance)
	if !frustum.IntersectsAABB(p.Bounds) {
		p.SkipDraw = true
		return p
	}

	r.profiler.BeginScope("Cell Culling")
	r.visible = SelectVisibleCells(r.grid, frustum, r.visible)
	r.profiler.EndScope("Cell Culling")

	r.profiler.BeginScope("Batching")
	if r.settings.BatchDispatch {
		r.ranges = BatchDispatches(r.visible, r.grid, r.ranges)
	} else {
		r.ranges = SplitDispatches(r.visible, r.grid, r.ranges)
	}
	r.profiler.EndScope("Batching")

	p.Ranges = r.ranges
	return p
}

// VisibleCells returns the cells selected by the last Plan.
func (r *Renderer) VisibleCells() []int {
	return r.visible
}

// Frame runs one full frame. Failures are logged and reported in the
// stats; they never stop the next frame from being attempted. After a
// failed rebuild the previous buffers stay bound but nothing is drawn
// until the input changes and a rebuild succeeds.
func (r *Renderer) Frame(cam Camera) FrameStats {
	r.frame++
	stats := FrameStats{Frame: r.frame}

	if r.NeedsRebuild() {
		if err := r.rebuild(); err != nil {
			r.logger.Errorf("grass frame %d: %v", r.frame, err)
			stats.Err = err
			r.failed = true
			r.failedCount = len(r.positions)
			r.failedHash = r.pendingHash
		} else {
			r.failed = false
			stats.Rebuilt = true
		}
	}

	if r.grid == nil || !r.backend.Ready() {
		stats.Skipped = true
		return stats
	}

	plan := r.Plan(cam)
	if r.failed {
		plan.Ranges = plan.Ranges[:0]
		plan.SkipDraw = true
		r.visible = r.visible[:0]
	}
	stats.Instances = r.grid.Len()
	stats.Cells = r.grid.NumCells()
	stats.VisibleCells = len(r.visible)
	stats.Dispatches = len(plan.Ranges)

	r.profiler.SetCount("instances", stats.Instances)
	r.profiler.SetCount("cells.visible", stats.VisibleCells)
	r.profiler.SetCount("dispatches", stats.Dispatches)

	if err := r.backend.Execute(plan); err != nil {
		r.logger.Errorf("grass frame %d: execute: %v", r.frame, err)
		stats.Err = err
		stats.Skipped = true
		return stats
	}
	if plan.SkipDraw {
		stats.Skipped = true
	}
	return stats
}

// Release frees all backend resources.
func (r *Renderer) Release() {
	r.backend.Release()
	r.grid = nil
	r.countCache = -1
	r.failed = false
}
