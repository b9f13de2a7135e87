package core

import (
	"encoding/binary"
)

// IndirectArgsSize is the byte size of a drawIndexedIndirect argument record.
const IndirectArgsSize = 20

// InstanceCountOffset is the byte offset of InstanceCount inside the record.
const InstanceCountOffset = 4

// IndirectArgs mirrors the drawIndexedIndirect argument layout.
type IndirectArgs struct {
	IndexCountPerInstance uint32
	InstanceCount         uint32
	StartIndexLocation    uint32
	BaseVertexLocation    int32
	StartInstanceLocation uint32
}

// NewIndirectArgs fills the fixed fields from the mesh. InstanceCount starts
// at the full instance count and is overwritten every frame on the device.
func NewIndirectArgs(mesh *Mesh, instanceCount int) IndirectArgs {
	return IndirectArgs{
		IndexCountPerInstance: uint32(len(mesh.Indices)),
		InstanceCount:         uint32(instanceCount),
		StartIndexLocation:    0,
		BaseVertexLocation:    0,
		StartInstanceLocation: 0,
	}
}

func (a IndirectArgs) Bytes() []byte {
	buf := make([]byte, IndirectArgsSize)
	binary.LittleEndian.PutUint32(buf[0:], a.IndexCountPerInstance)
	binary.LittleEndian.PutUint32(buf[4:], a.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:], a.StartIndexLocation)
	binary.LittleEndian.PutUint32(buf[12:], uint32(a.BaseVertexLocation))
	binary.LittleEndian.PutUint32(buf[16:], a.StartInstanceLocation)
	return buf
}

// Mesh is an indexed triangle list drawn once per surviving instance.
type Mesh struct {
	Vertices [][3]float32
	Indices  []uint32
}

// BladeMesh returns the default single-triangle blade.
func BladeMesh() *Mesh {
	return &Mesh{
		Vertices: [][3]float32{
			{-0.25, 0, 0},
			{+0.25, 0, 0},
			{0, 1, 0},
		},
		Indices: []uint32{2, 1, 0},
	}
}
