package grass

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gekko3d/grass/grassrt/rt/core"
)

type AssetId string

type MeshAsset struct {
	version  uint
	vertices [][3]float32
	indices  []uint32
}

// AssetServer stores blade meshes by id. The default blade triangle is
// always present under BladeMeshId.
type AssetServer struct {
	meshes      map[AssetId]MeshAsset
	BladeMeshId AssetId
}

type AssetServerModule struct{}

func NewAssetServer() *AssetServer {
	server := &AssetServer{
		meshes: make(map[AssetId]MeshAsset),
	}
	blade := core.BladeMesh()
	server.BladeMeshId = server.LoadMesh(blade.Vertices, blade.Indices)
	return server
}

// LoadMesh registers an indexed triangle list and returns its id.
func (server *AssetServer) LoadMesh(vertices [][3]float32, indices []uint32) AssetId {
	id := makeAssetId()

	server.meshes[id] = MeshAsset{
		version:  0,
		vertices: vertices,
		indices:  indices,
	}

	return id
}

// UpdateMesh replaces the geometry of an existing mesh and bumps its version.
func (server *AssetServer) UpdateMesh(id AssetId, vertices [][3]float32, indices []uint32) error {
	asset, ok := server.meshes[id]
	if !ok {
		return fmt.Errorf("mesh %s not found", id)
	}
	asset.version++
	asset.vertices = vertices
	asset.indices = indices
	server.meshes[id] = asset
	return nil
}

func (server *AssetServer) MeshVersion(id AssetId) (uint, bool) {
	asset, ok := server.meshes[id]
	return asset.version, ok
}

// Mesh validates the asset and returns it as a core mesh.
func (server *AssetServer) Mesh(id AssetId) (*core.Mesh, error) {
	asset, ok := server.meshes[id]
	if !ok {
		return nil, fmt.Errorf("mesh %s not found", id)
	}
	if len(asset.indices) == 0 || len(asset.indices)%3 != 0 {
		return nil, fmt.Errorf("mesh %s: index count %d is not a positive multiple of 3", id, len(asset.indices))
	}
	for _, idx := range asset.indices {
		if int(idx) >= len(asset.vertices) {
			return nil, fmt.Errorf("mesh %s: index %d out of range (%d vertices)", id, idx, len(asset.vertices))
		}
	}
	return &core.Mesh{Vertices: asset.vertices, Indices: asset.indices}, nil
}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	app.addResources(NewAssetServer())
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
