package core

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrCapacityExceeded = errors.New("grass: instance buffer capacity exceeded")

// Clip-space tolerances of the per-instance test. Blades extend above their
// root, so the vertical one is wider.
const (
	ClipToleranceX = 1.1
	ClipToleranceY = 1.5
)

// InstanceVisible is the per-instance test run by the culling kernel.
func InstanceVisible(vp mgl32.Mat4, p mgl32.Vec3, maxDrawDistance float32) bool {
	cs := vp.Mul4x1(p.Vec4(1))
	w := cs.W()
	return abs32(cs.Z()) <= w &&
		abs32(cs.Y()) <= w*ClipToleranceY &&
		abs32(cs.X()) <= w*ClipToleranceX &&
		w <= maxDrawDistance
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// SoftwareBackend executes frame plans on the CPU with the same buffer
// discipline as the GPU backend. It is used for headless runs and as the
// readback harness in tests.
type SoftwareBackend struct {
	// MaxInstances limits uploads; zero means unlimited.
	MaxInstances int

	positions []mgl32.Vec3
	survivors []uint32
	counter   uint32
	args      IndirectArgs
	bound     bool
	material  MaterialParams

	uploads    int
	draws      int
	dispatches int
	drawn      uint64
}

var _ Backend = (*SoftwareBackend)(nil)

func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{}
}

func (s *SoftwareBackend) Ready() bool {
	return s.bound
}

func (s *SoftwareBackend) Upload(grid *Grid, args IndirectArgs) error {
	if s.MaxInstances > 0 && grid.Len() > s.MaxInstances {
		return fmt.Errorf("%w: %d > %d", ErrCapacityExceeded, grid.Len(), s.MaxInstances)
	}

	positions := make([]mgl32.Vec3, grid.Len())
	copy(positions, grid.Sorted)
	survivors := make([]uint32, grid.Len())

	s.positions = positions
	s.survivors = survivors
	s.counter = 0
	s.args = args
	s.bound = true
	s.uploads++
	return nil
}

func (s *SoftwareBackend) Execute(plan *FramePlan) error {
	if !s.bound {
		return fmt.Errorf("software backend: execute before upload")
	}
	s.material = plan.Material

	s.counter = 0
	if !plan.SkipDraw {
		for _, r := range plan.Ranges {
			s.dispatch(plan, r)
		}
	}
	s.args.InstanceCount = s.counter

	if !plan.SkipDraw {
		s.draws++
		s.drawn += uint64(s.args.InstanceCount)
	}
	return nil
}

// dispatch covers the whole workgroup grid and lets the out-of-range
// invocations return early, exactly like the kernel.
func (s *SoftwareBackend) dispatch(plan *FramePlan, r DispatchRange) {
	s.dispatches++
	invocations := int(r.Workgroups(CullWorkgroupSize)) * CullWorkgroupSize
	for i := 0; i < invocations; i++ {
		if i >= r.JobLength {
			return
		}
		idx := r.StartOffset + i
		if idx >= len(s.positions) || int(s.counter) >= len(s.survivors) {
			return
		}
		if InstanceVisible(plan.ViewProj, s.positions[idx], plan.MaxDrawDistance) {
			s.survivors[s.counter] = uint32(idx)
			s.counter++
		}
	}
}

func (s *SoftwareBackend) Release() {
	s.positions = nil
	s.survivors = nil
	s.counter = 0
	s.bound = false
}

// Args returns the indirect arguments as of the last executed frame.
func (s *SoftwareBackend) Args() IndirectArgs { return s.args }

// Survivors returns the indices appended during the last executed frame.
func (s *SoftwareBackend) Survivors() []uint32 { return s.survivors[:s.counter] }

func (s *SoftwareBackend) Positions() []mgl32.Vec3  { return s.positions }
func (s *SoftwareBackend) Material() MaterialParams { return s.material }
func (s *SoftwareBackend) Uploads() int             { return s.uploads }
func (s *SoftwareBackend) Draws() int               { return s.draws }
func (s *SoftwareBackend) Dispatches() int          { return s.dispatches }

// DrawnInstances is the sum of InstanceCount over all issued draws.
func (s *SoftwareBackend) DrawnInstances() uint64 { return s.drawn }
