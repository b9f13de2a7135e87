package gpu

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/gekko3d/grass/grassrt/rt/core"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// FrameDataSize is the size of the FrameData uniform shared by the cull
	// and draw shaders.
	FrameDataSize = 128

	// DispatchParamsStride is the distance between per-dispatch uniform
	// records. It matches minUniformBufferOffsetAlignment.
	DispatchParamsStride = 256
	DispatchParamsSize   = 16

	// DefaultMaxInstances keeps the packed position buffer under the default
	// 128 MiB storage binding limit.
	DefaultMaxInstances = (128 << 20) / 12

	minStorageSize      = 16
	initialParamsSlots  = 64
	positionStrideBytes = 12
)

var ErrNotInitialized = errors.New("gpu: grass pipelines not initialized")

type GrassBufferManager struct {
	Device       *wgpu.Device
	MaxInstances int

	FrameBuf  *wgpu.Buffer
	VertexBuf *wgpu.Buffer
	IndexBuf  *wgpu.Buffer

	// Per-dispatch {startOffset, jobLength}, selected with dynamic offsets.
	ParamsBuf       *wgpu.Buffer
	ParamsSlots     int
	ParamsBindGroup *wgpu.BindGroup

	// Instance buffers, replaced together by Upload.
	PositionsBuf  *wgpu.Buffer
	SurvivorsBuf  *wgpu.Buffer
	CounterBuf    *wgpu.Buffer
	ArgsBuf       *wgpu.Buffer
	InstanceCount int

	CullPipeline   *wgpu.ComputePipeline
	CullLayout0    *wgpu.BindGroupLayout
	CullLayout1    *wgpu.BindGroupLayout
	CullBindGroup0 *wgpu.BindGroup

	DrawPipeline   *wgpu.RenderPipeline
	DrawLayout0    *wgpu.BindGroupLayout
	DrawBindGroup0 *wgpu.BindGroup
}

func NewGrassBufferManager(device *wgpu.Device) *GrassBufferManager {
	return &GrassBufferManager{
		Device:       device,
		MaxInstances: DefaultMaxInstances,
	}
}

// Ready reports whether the instance buffers and their bind groups are bound.
func (m *GrassBufferManager) Ready() bool {
	return m.PositionsBuf != nil && m.SurvivorsBuf != nil && m.CounterBuf != nil &&
		m.ArgsBuf != nil && m.CullBindGroup0 != nil && m.DrawBindGroup0 != nil
}

// ReleaseInstances drops the instance buffers but keeps pipelines and the mesh.
func (m *GrassBufferManager) ReleaseInstances() {
	releaseBindGroup(&m.CullBindGroup0)
	releaseBindGroup(&m.DrawBindGroup0)
	releaseBuffer(&m.PositionsBuf)
	releaseBuffer(&m.SurvivorsBuf)
	releaseBuffer(&m.CounterBuf)
	releaseBuffer(&m.ArgsBuf)
	m.InstanceCount = 0
}

func (m *GrassBufferManager) Release() {
	m.ReleaseInstances()
	releaseBindGroup(&m.ParamsBindGroup)
	releaseBuffer(&m.ParamsBuf)
	m.ParamsSlots = 0
	releaseBuffer(&m.FrameBuf)
	releaseBuffer(&m.VertexBuf)
	releaseBuffer(&m.IndexBuf)
	if m.CullPipeline != nil {
		m.CullPipeline.Release()
		m.CullPipeline = nil
	}
	if m.DrawPipeline != nil {
		m.DrawPipeline.Release()
		m.DrawPipeline = nil
	}
}

func releaseBuffer(buf **wgpu.Buffer) {
	if *buf != nil {
		(*buf).Release()
		*buf = nil
	}
}

func releaseBindGroup(bg **wgpu.BindGroup) {
	if *bg != nil {
		(*bg).Release()
		*bg = nil
	}
}

// storageSize pads storage bindings so an empty field still binds.
func storageSize(n int) uint64 {
	if n < minStorageSize {
		return minStorageSize
	}
	return uint64((n + 3) &^ 3)
}

// packPositions flattens positions into xyz float triples.
func packPositions(positions []mgl32.Vec3) []byte {
	buf := make([]byte, storageSize(len(positions)*positionStrideBytes))
	for i, p := range positions {
		off := i * positionStrideBytes
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(p[0]))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(p[1]))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(p[2]))
	}
	return buf
}

// frameBytes lays out FrameData:
//
//	view_proj: mat4x4<f32>     0
//	camera_pos: vec4<f32>     64
//	pivot_pos: vec4<f32>      80
//	bound_size: vec4<f32>     96
//	max_draw_distance: f32   112
//	instance_count: u32      116
func frameBytes(plan *core.FramePlan, instanceCount int) []byte {
	buf := make([]byte, FrameDataSize)
	putF := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	for i, v := range plan.ViewProj {
		putF(i*4, v)
	}
	putF(64, plan.CameraPos[0])
	putF(68, plan.CameraPos[1])
	putF(72, plan.CameraPos[2])
	putF(80, plan.Material.PivotPosWS[0])
	putF(84, plan.Material.PivotPosWS[1])
	putF(88, plan.Material.PivotPosWS[2])
	putF(96, plan.Material.BoundSize[0])
	putF(100, plan.Material.BoundSize[1])
	putF(112, plan.MaxDrawDistance)
	binary.LittleEndian.PutUint32(buf[116:], uint32(instanceCount))
	return buf
}

// paramsBytes writes one DispatchParams record per range at DispatchParamsStride.
func paramsBytes(ranges []core.DispatchRange) []byte {
	buf := make([]byte, len(ranges)*DispatchParamsStride)
	for i, r := range ranges {
		off := i * DispatchParamsStride
		binary.LittleEndian.PutUint32(buf[off:], uint32(r.StartOffset))
		binary.LittleEndian.PutUint32(buf[off+4:], uint32(r.JobLength))
	}
	return buf
}

// meshBytes returns the vertex and index data of a mesh.
func meshBytes(mesh *core.Mesh) ([]byte, []byte) {
	vb := make([]byte, len(mesh.Vertices)*positionStrideBytes)
	for i, v := range mesh.Vertices {
		off := i * positionStrideBytes
		binary.LittleEndian.PutUint32(vb[off:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(vb[off+4:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(vb[off+8:], math.Float32bits(v[2]))
	}
	ib := make([]byte, storageSize(len(mesh.Indices)*4))
	for i, idx := range mesh.Indices {
		binary.LittleEndian.PutUint32(ib[i*4:], idx)
	}
	return vb, ib
}
