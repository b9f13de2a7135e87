package gpu

import (
	"fmt"

	"github.com/gekko3d/grass/grassrt/rt/core"
	"github.com/gekko3d/grass/grassrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

const DepthFormat = wgpu.TextureFormatDepth24Plus

// InitPipelines creates the cull and draw pipelines, the frame uniform and
// the mesh buffers. Instance buffers are created later by Upload.
func (m *GrassBufferManager) InitPipelines(colorFormat wgpu.TextureFormat, mesh *core.Mesh) error {
	var err error

	m.FrameBuf, err = m.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "GrassFrameData",
		Size:  FrameDataSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create frame uniform: %w", err)
	}

	if err := m.initCullPipeline(); err != nil {
		return err
	}
	if err := m.initDrawPipeline(colorFormat); err != nil {
		return err
	}
	if err := m.ensureParams(initialParamsSlots); err != nil {
		return err
	}
	return m.SetMesh(mesh)
}

func (m *GrassBufferManager) initCullPipeline() error {
	module, err := m.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "GrassCullShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.CullWGSL},
	})
	if err != nil {
		return fmt.Errorf("failed to create cull shader module: %w", err)
	}
	defer module.Release()

	m.CullLayout0, err = m.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "GrassCullBGL0",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: FrameDataSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeStorage,
					MinBindingSize: 4,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create cull layout 0: %w", err)
	}

	m.CullLayout1, err = m.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "GrassCullBGL1",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					MinBindingSize:   DispatchParamsSize,
					HasDynamicOffset: true,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create cull layout 1: %w", err)
	}

	layout, err := m.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "GrassCullLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{m.CullLayout0, m.CullLayout1},
	})
	if err != nil {
		return fmt.Errorf("failed to create cull pipeline layout: %w", err)
	}
	defer layout.Release()

	m.CullPipeline, err = m.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "GrassCullPipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "cull_main",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create cull pipeline: %w", err)
	}
	return nil
}

func (m *GrassBufferManager) initDrawPipeline(colorFormat wgpu.TextureFormat) error {
	module, err := m.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "GrassDrawShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.GrassWGSL},
	})
	if err != nil {
		return fmt.Errorf("failed to create grass shader module: %w", err)
	}
	defer module.Release()

	m.DrawLayout0, err = m.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "GrassDrawBGL0",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: FrameDataSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageVertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create draw layout: %w", err)
	}

	layout, err := m.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "GrassDrawLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{m.DrawLayout0},
	})
	if err != nil {
		return fmt.Errorf("failed to create draw pipeline layout: %w", err)
	}
	defer layout.Release()

	m.DrawPipeline, err = m.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "GrassDrawPipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: positionStrideBytes,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{
							Format:         wgpu.VertexFormatFloat32x3,
							Offset:         0,
							ShaderLocation: 0,
						},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    colorFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create grass pipeline: %w", err)
	}
	return nil
}

// SetMesh replaces the blade mesh. The indirect args of the next upload
// must be built from the same mesh.
func (m *GrassBufferManager) SetMesh(mesh *core.Mesh) error {
	vb, ib := meshBytes(mesh)
	vertexBuf, err := m.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "GrassBladeVertices",
		Contents: vb,
		Usage:    wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create blade vertex buffer: %w", err)
	}
	indexBuf, err := m.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "GrassBladeIndices",
		Contents: ib,
		Usage:    wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vertexBuf.Release()
		return fmt.Errorf("failed to create blade index buffer: %w", err)
	}

	releaseBuffer(&m.VertexBuf)
	releaseBuffer(&m.IndexBuf)
	m.VertexBuf = vertexBuf
	m.IndexBuf = indexBuf
	return nil
}

// ensureParams grows the dispatch params buffer to hold at least n records.
func (m *GrassBufferManager) ensureParams(n int) error {
	if m.ParamsBuf != nil && m.ParamsSlots >= n {
		return nil
	}
	slots := max(n, initialParamsSlots)
	if m.ParamsSlots > 0 {
		slots = max(slots, m.ParamsSlots*2)
	}

	buf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "GrassDispatchParams",
		Size:  uint64(slots * DispatchParamsStride),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create dispatch params buffer (%d slots): %w", slots, err)
	}
	bg, err := m.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "GrassCullBG1",
		Layout: m.CullLayout1,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Offset: 0, Size: DispatchParamsSize},
		},
	})
	if err != nil {
		buf.Release()
		return fmt.Errorf("failed to create dispatch params bind group: %w", err)
	}

	releaseBindGroup(&m.ParamsBindGroup)
	releaseBuffer(&m.ParamsBuf)
	m.ParamsBuf = buf
	m.ParamsBindGroup = bg
	m.ParamsSlots = slots
	return nil
}
