package gltfmodel

const GLTF_VERSION string = "2.0"

const (
	TEXTURE_FORMAT_R    = 0
	TEXTURE_FORMAT_RG   = 2
	TEXTURE_FORMAT_RGB  = 4
	TEXTURE_FORMAT_RGBA = 6
)

const (
	TEXTURE_COMPRESSED_ZLIB = 1
)

// Transparency 透明模式
type Transparency uint16

const (
	TRANSPARENCY_OPAQUE Transparency = 0
	TRANSPARENCY_BINARY Transparency = 1
	TRANSPARENCY_BLEND  Transparency = 2
)

// Interpolation 法线插值模式
type Interpolation uint16

const (
	INTERPOLATION_FLAT   Interpolation = 0
	INTERPOLATION_SMOOTH Interpolation = 1
)
