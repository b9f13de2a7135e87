package gpu

import (
	"fmt"

	"github.com/gekko3d/grass/grassrt/rt/core"

	"github.com/cogentcore/webgpu/wgpu"
)

var zeroCounter = make([]byte, 4)

// EncodeCull records the culling half of a frame: reset the survivor
// counter, run one kernel dispatch per range and copy the counter into the
// InstanceCount field of the indirect args. Nothing is read back.
func (m *GrassBufferManager) EncodeCull(encoder *wgpu.CommandEncoder, plan *core.FramePlan) error {
	if !m.Ready() {
		return ErrNotInitialized
	}
	queue := m.Device.GetQueue()

	if err := queue.WriteBuffer(m.FrameBuf, 0, frameBytes(plan, m.InstanceCount)); err != nil {
		return fmt.Errorf("write frame data: %w", err)
	}
	if err := queue.WriteBuffer(m.CounterBuf, 0, zeroCounter); err != nil {
		return fmt.Errorf("reset survivor counter: %w", err)
	}

	if !plan.SkipDraw && len(plan.Ranges) > 0 {
		if err := m.ensureParams(len(plan.Ranges)); err != nil {
			return err
		}
		if err := queue.WriteBuffer(m.ParamsBuf, 0, paramsBytes(plan.Ranges)); err != nil {
			return fmt.Errorf("write dispatch params: %w", err)
		}

		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(m.CullPipeline)
		pass.SetBindGroup(0, m.CullBindGroup0, nil)
		for i, r := range plan.Ranges {
			pass.SetBindGroup(1, m.ParamsBindGroup, []uint32{uint32(i * DispatchParamsStride)})
			pass.DispatchWorkgroups(r.Workgroups(core.CullWorkgroupSize), 1, 1)
		}
		if err := pass.End(); err != nil {
			return fmt.Errorf("cull pass End failed: %w", err)
		}
	}

	encoder.CopyBufferToBuffer(m.CounterBuf, 0, m.ArgsBuf, core.InstanceCountOffset, 4)
	return nil
}

// EncodeDraw issues the single indirect draw of all survivors.
func (m *GrassBufferManager) EncodeDraw(pass *wgpu.RenderPassEncoder) {
	if !m.Ready() || m.VertexBuf == nil || m.IndexBuf == nil {
		return
	}
	pass.SetPipeline(m.DrawPipeline)
	pass.SetBindGroup(0, m.DrawBindGroup0, nil)
	pass.SetVertexBuffer(0, m.VertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(m.IndexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexedIndirect(m.ArgsBuf, 0)
}
