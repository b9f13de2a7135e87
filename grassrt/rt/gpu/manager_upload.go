package gpu

import (
	"fmt"

	"github.com/gekko3d/grass/grassrt/rt/core"

	"github.com/cogentcore/webgpu/wgpu"
)

// Upload replaces the positions, survivor, counter and args buffers as one
// unit. Everything is created before anything is swapped, so a failure
// leaves the previously bound set in place.
func (m *GrassBufferManager) Upload(grid *core.Grid, args core.IndirectArgs) error {
	if m.CullPipeline == nil || m.DrawPipeline == nil {
		return ErrNotInitialized
	}
	n := grid.Len()
	if m.MaxInstances > 0 && n > m.MaxInstances {
		return fmt.Errorf("%w: %d > %d", core.ErrCapacityExceeded, n, m.MaxInstances)
	}

	var created []*wgpu.Buffer
	fail := func(err error) error {
		for _, b := range created {
			b.Release()
		}
		return err
	}

	positions, err := m.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "GrassPositions",
		Contents: packPositions(grid.Sorted),
		Usage:    wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to create positions buffer: %w", err))
	}
	created = append(created, positions)

	survivors, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "GrassSurvivors",
		Size:  storageSize(n * 4),
		Usage: wgpu.BufferUsageStorage,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to create survivor buffer: %w", err))
	}
	created = append(created, survivors)

	counter, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "GrassSurvivorCounter",
		Size:  4,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to create counter buffer: %w", err))
	}
	created = append(created, counter)

	argsBuf, err := m.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "GrassIndirectArgs",
		Contents: args.Bytes(),
		Usage:    wgpu.BufferUsageIndirect | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to create indirect args buffer: %w", err))
	}
	created = append(created, argsBuf)

	cullBG, err := m.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "GrassCullBG0",
		Layout: m.CullLayout0,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: m.FrameBuf, Size: FrameDataSize},
			{Binding: 1, Buffer: positions, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: survivors, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: counter, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fail(fmt.Errorf("failed to create cull bind group: %w", err))
	}

	drawBG, err := m.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "GrassDrawBG0",
		Layout: m.DrawLayout0,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: m.FrameBuf, Size: FrameDataSize},
			{Binding: 1, Buffer: positions, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: survivors, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		cullBG.Release()
		return fail(fmt.Errorf("failed to create draw bind group: %w", err))
	}

	m.ReleaseInstances()
	m.PositionsBuf = positions
	m.SurvivorsBuf = survivors
	m.CounterBuf = counter
	m.ArgsBuf = argsBuf
	m.CullBindGroup0 = cullBG
	m.DrawBindGroup0 = drawBG
	m.InstanceCount = n
	return nil
}
