package shaders

import (
	_ "embed"
)

//go:embed cull.wgsl
var CullWGSL string

//go:embed grass.wgsl
var GrassWGSL string
