package gltfmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	"github.com/qmuntal/gltf"
)

type texCacheKey struct {
	image    uint32
	repeated bool
}

// GltfModel 持有一个已加载的glTF资产, 提供网格构建入口
type GltfModel struct {
	Log    ConversionLog
	Reader ResourceReader

	doc      *gltf.Document
	source   string
	texCache map[texCacheKey]*Texture
	mtlCache map[uint32]*Material
}

// NewModel wraps an already parsed document. source is the asset's file
// location ("" when unknown) and anchors relative buffer and image URIs.
// Only glTF 2.0 assets are accepted; the version is checked here, once.
func NewModel(doc *gltf.Document, source string) (*GltfModel, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	if doc.Asset.Version != GLTF_VERSION {
		return nil, fmt.Errorf("%w: only glTF %s assets supported, got %q",
			ErrInvalidDocument, GLTF_VERSION, doc.Asset.Version)
	}
	base := ""
	if source != "" {
		base = filepath.Dir(source)
	}
	return &GltfModel{
		Log:      stdLog{},
		Reader:   NewResourceReader(base),
		doc:      doc,
		source:   source,
		texCache: make(map[texCacheKey]*Texture),
		mtlCache: make(map[uint32]*Material),
	}, nil
}

// LoadModel 从文件加载glTF资产
func LoadModel(p string) (*GltfModel, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("could not read glTF model at %s: %w", p, err)
	}
	doc := &gltf.Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("could not read glTF model at %s: %w", p, err)
	}
	if err := checkAlphaModes(data); err != nil {
		return nil, fmt.Errorf("could not read glTF model at %s: %w", p, err)
	}
	return NewModel(doc, p)
}

// checkAlphaModes re-reads the raw material list: the typed document maps any
// unknown alphaMode string to its zero value, which would let a misspelled
// mode import silently as opaque.
func checkAlphaModes(data []byte) error {
	var raw struct {
		Materials []struct {
			AlphaMode *string `json:"alphaMode"`
		} `json:"materials"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i, mt := range raw.Materials {
		if mt.AlphaMode == nil {
			continue
		}
		switch *mt.AlphaMode {
		case "OPAQUE", "MASK", "BLEND":
		default:
			return fmt.Errorf("%w: material %d alphaMode %q", ErrInvalidDocument, i, *mt.AlphaMode)
		}
	}
	return nil
}

func (m *GltfModel) Name() string {
	if m.source != "" {
		return filepath.Base(m.source)
	}
	return "glTF document"
}

// BuildMeshes collects the meshes of every node in the active scene. It never
// fails outward: any error short of the construction-time version check is
// logged and yields an empty result for this asset, so one bad asset cannot
// abort a batch conversion.
func (m *GltfModel) BuildMeshes() []*Mesh {
	result, err := m.buildSceneMeshes()
	if err != nil {
		m.Log.Errorf("could not build meshes from glTF asset %s: %v", m.Name(), err)
		return nil
	}
	return result
}

func (m *GltfModel) buildSceneMeshes() (result []*Mesh, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrInvalidDocument, r)
		}
	}()

	if len(m.doc.Scenes) == 0 {
		return nil, nil
	}
	sceneIdx := 0
	if m.doc.Scene != nil {
		sceneIdx = int(*m.doc.Scene)
	}
	if sceneIdx >= len(m.doc.Scenes) {
		return nil, fmt.Errorf("%w: scene index %d out of range", ErrInvalidDocument, sceneIdx)
	}

	// glTF requires the node graph to be a tree, but a malformed asset may
	// revisit a node or contain a cycle; the visited set keeps the
	// recursion bounded.
	visited := make(map[uint32]bool)
	for _, n := range m.doc.Scenes[sceneIdx].Nodes {
		meshes, err := m.buildMeshesForNode(n, visited)
		if err != nil {
			return nil, err
		}
		result = append(result, meshes...)
	}
	return result, nil
}

func (m *GltfModel) buildMeshesForNode(idx uint32, visited map[uint32]bool) ([]*Mesh, error) {
	if visited[idx] {
		m.Log.Errorf("node %d visited twice in glTF asset %s", idx, m.Name())
		return nil, nil
	}
	visited[idx] = true

	if int(idx) >= len(m.doc.Nodes) {
		m.Log.Errorf("node index %d out of range in glTF asset %s", idx, m.Name())
		return nil, nil
	}
	node := m.doc.Nodes[idx]

	var result []*Mesh

	// node transforms are intentionally not applied; meshes come out in
	// node-local coordinates

	if node.Mesh != nil && int(*node.Mesh) < len(m.doc.Meshes) {
		for _, primitive := range m.doc.Meshes[*node.Mesh].Primitives {
			mesh, err := m.buildPrimitive(primitive)
			if err != nil {
				if errors.Is(err, ErrUnsupported) || errors.Is(err, ErrInvalidGeometry) {
					m.Log.Errorf("skipped primitive in glTF asset %s: %v", m.Name(), err)
					continue
				}
				return nil, err
			}
			result = append(result, mesh)
		}
	}

	for _, child := range node.Children {
		meshes, err := m.buildMeshesForNode(child, visited)
		if err != nil {
			return nil, err
		}
		result = append(result, meshes...)
	}
	return result, nil
}

// buildPrimitive assembles one glTF primitive into a triangle mesh paired
// with its converted material.
func (m *GltfModel) buildPrimitive(primitive *gltf.Primitive) (*Mesh, error) {
	// glTF 2.0: "If material is undefined, then a default material MUST be used."
	material := DefaultMaterial()
	if primitive.Material != nil {
		mt, err := m.convertMaterial(*primitive.Material)
		if err != nil {
			return nil, err
		}
		material = mt
	}

	if primitive.Mode != gltf.PrimitiveTriangles {
		return nil, fmt.Errorf("%w: mode %v", ErrUnsupported, primitive.Mode)
	}

	posIdx, ok := primitive.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("%w: primitive without POSITION", ErrUnsupported)
	}
	positions, err := m.readVec3Accessor(posIdx)
	if err != nil {
		return nil, err
	}

	var colors [][3]byte
	if idx, ok := primitive.Attributes["COLOR_0"]; ok {
		colorsXYZ, err := m.readVec3Accessor(idx)
		if err != nil {
			return nil, err
		}
		colors = make([][3]byte, 0, len(colorsXYZ))
		for _, c := range colorsXYZ {
			// undo the handedness flip on the third component; color
			// triples are not coordinates
			colors = append(colors, displayColor(c[0], c[1], -c[2]))
		}
	}

	var normals []vec3.T
	if idx, ok := primitive.Attributes["NORMAL"]; ok {
		if normals, err = m.readVec3Accessor(idx); err != nil {
			return nil, err
		}
	}

	var texCoords []vec2.T
	if idx, ok := primitive.Attributes["TEXCOORD_0"]; ok {
		if texCoords, err = m.readVec2Accessor(idx); err != nil {
			return nil, err
		}
	}

	if colors != nil && len(colors) != len(positions) {
		return nil, fmt.Errorf("%w: COLOR_0 count %d, POSITION count %d", ErrUnsupported, len(colors), len(positions))
	}
	if normals != nil && len(normals) != len(positions) {
		return nil, fmt.Errorf("%w: NORMAL count %d, POSITION count %d", ErrUnsupported, len(normals), len(positions))
	}
	if texCoords != nil && len(texCoords) != len(positions) {
		return nil, fmt.Errorf("%w: TEXCOORD_0 count %d, POSITION count %d", ErrUnsupported, len(texCoords), len(positions))
	}

	geom := &TriangleGeometry{}

	if primitive.Indices == nil {
		if len(positions)%3 != 0 {
			return nil, fmt.Errorf("%w: position count %d not divisible by 3", ErrInvalidGeometry, len(positions))
		}
		for i := 0; i+2 < len(positions); i += 3 {
			m.appendTriangle(geom, positions, colors, normals, texCoords, [3]uint32{uint32(i), uint32(i + 1), uint32(i + 2)})
		}
	} else {
		indices, err := m.readIndexAccessor(*primitive.Indices)
		if err != nil {
			return nil, err
		}
		if len(indices)%3 != 0 {
			return nil, fmt.Errorf("%w: index count %d not divisible by 3", ErrInvalidGeometry, len(indices))
		}
		for i := 0; i+2 < len(indices); i += 3 {
			m.appendTriangle(geom, positions, colors, normals, texCoords, [3]uint32{indices[i], indices[i+1], indices[i+2]})
		}
	}

	return &Mesh{Geometry: geom, Material: material}, nil
}

// appendTriangle validates one candidate triangle and appends it with its
// attributes. Invalid candidates are logged and dropped without affecting
// their siblings.
func (m *GltfModel) appendTriangle(geom *TriangleGeometry, positions []vec3.T,
	colors [][3]byte, normals []vec3.T, texCoords []vec2.T, tri [3]uint32) {

	for _, ix := range tri {
		if int(ix) >= len(positions) {
			m.Log.Warnf("invalid geometry in glTF asset %s: index %d out of range", m.Name(), ix)
			return
		}
	}
	pts := [3]vec3.T{positions[tri[0]], positions[tri[1]], positions[tri[2]]}
	if err := validateTriangle(pts); err != nil {
		m.Log.Warnf("invalid geometry in glTF asset %s: %v", m.Name(), err)
		return
	}

	geom.Vertices = append(geom.Vertices, pts[0], pts[1], pts[2])
	if colors != nil {
		geom.Colors = append(geom.Colors, colors[tri[0]], colors[tri[1]], colors[tri[2]])
	}
	if normals != nil {
		geom.Normals = append(geom.Normals, normals[tri[0]], normals[tri[1]], normals[tri[2]])
	}
	if texCoords != nil {
		geom.TexCoords = append(geom.TexCoords, texCoords[tri[0]], texCoords[tri[1]], texCoords[tri[2]])
	}
}

/* accessor and buffer resolution */

func (m *GltfModel) accessor(idx uint32) (*gltf.Accessor, []byte, error) {
	if int(idx) >= len(m.doc.Accessors) {
		return nil, nil, fmt.Errorf("%w: accessor index %d out of range", ErrInvalidDocument, idx)
	}
	acc := m.doc.Accessors[idx]
	if acc.BufferView == nil {
		return nil, nil, fmt.Errorf("%w: accessor without bufferView", ErrUnsupported)
	}
	if int(*acc.BufferView) >= len(m.doc.BufferViews) {
		return nil, nil, fmt.Errorf("%w: bufferView index %d out of range", ErrInvalidDocument, *acc.BufferView)
	}
	data, err := m.readBufferView(m.doc.BufferViews[*acc.BufferView])
	if err != nil {
		return nil, nil, err
	}
	return acc, data, nil
}

func (m *GltfModel) readVec3Accessor(idx uint32) ([]vec3.T, error) {
	acc, data, err := m.accessor(idx)
	if err != nil {
		return nil, err
	}
	return decodeVec3(data, acc)
}

func (m *GltfModel) readVec2Accessor(idx uint32) ([]vec2.T, error) {
	acc, data, err := m.accessor(idx)
	if err != nil {
		return nil, err
	}
	return decodeVec2(data, acc)
}

func (m *GltfModel) readIndexAccessor(idx uint32) ([]uint32, error) {
	acc, data, err := m.accessor(idx)
	if err != nil {
		return nil, err
	}
	return decodeIndices(data, acc)
}

// readBufferView resolves the byte range of a buffer view. Buffer bytes come
// from the parsed document when already present, from an embedded base64 data
// URI, or from the external resource reader.
func (m *GltfModel) readBufferView(view *gltf.BufferView) ([]byte, error) {
	if view.ByteStride != 0 {
		return nil, fmt.Errorf("%w: bufferView byteStride", ErrUnsupported)
	}
	if int(view.Buffer) >= len(m.doc.Buffers) {
		return nil, fmt.Errorf("%w: buffer index %d out of range", ErrInvalidDocument, view.Buffer)
	}
	buffer := m.doc.Buffers[view.Buffer]

	if len(buffer.Data) == 0 {
		if buffer.URI == "" {
			return nil, fmt.Errorf("%w: no uri present in buffer", ErrInvalidDocument)
		}
		var data []byte
		var err error
		if isDataURI(buffer.URI) {
			data, err = decodeBufferDataURI(buffer.URI)
		} else {
			data, err = m.Reader.ReadResource(buffer.URI)
		}
		if err != nil {
			return nil, err
		}
		buffer.Data = data
	}

	off := int(view.ByteOffset)
	end := off + int(view.ByteLength)
	if end > len(buffer.Data) {
		return nil, fmt.Errorf("%w: bufferView range [%d,%d) exceeds buffer size %d",
			ErrInvalidDocument, off, end, len(buffer.Data))
	}
	return buffer.Data[off:end], nil
}

/* material conversion */

func (m *GltfModel) convertMaterial(idx uint32) (*Material, error) {
	if mtl, ok := m.mtlCache[idx]; ok {
		return mtl, nil
	}
	if int(idx) >= len(m.doc.Materials) {
		return nil, fmt.Errorf("%w: material index %d out of range", ErrInvalidDocument, idx)
	}
	mt := m.doc.Materials[idx]

	if mt.EmissiveTexture != nil {
		m.Log.Warnf("unsupported emissive texture option present in glTF asset %s", m.Name())
	}
	if mt.OcclusionTexture != nil && mt.OcclusionTexture.StrengthOrDefault() != 1 {
		m.Log.Warnf("unsupported occlusion strength option present in glTF asset %s", m.Name())
	}

	color := [3]byte{255, 255, 255}
	var layer *TextureLayer

	if mt.PBRMetallicRoughness != nil {
		pbr := mt.PBRMetallicRoughness

		if pbr.BaseColorFactor != nil {
			c := *pbr.BaseColorFactor
			color = displayColor(c[0], c[1], c[2])
		}

		baseColorTexture, err := m.readTextureInfo(pbr.BaseColorTexture)
		if err != nil {
			return nil, err
		}
		mrTexture, err := m.readTextureInfo(pbr.MetallicRoughnessTexture)
		if err != nil {
			return nil, err
		}
		oTexture, err := m.readOcclusionTexture(mt.OcclusionTexture)
		if err != nil {
			return nil, err
		}

		ormTexture := mrTexture
		if ormTexture == nil {
			ormTexture = oTexture
		}
		if mrTexture != nil && oTexture != nil && mrTexture != oTexture {
			m.Log.Warnf("separate occlusion texture is ignored for glTF asset %s", m.Name())
		}

		normalTexture, err := m.readNormalTexture(mt.NormalTexture)
		if err != nil {
			return nil, err
		}

		if baseColorTexture != nil {
			layer = &TextureLayer{
				BaseColor: baseColorTexture,
				Normal:    normalTexture,
				ORM:       ormTexture,
				Colorable: true,
			}
		}
	}

	var transparency Transparency
	switch mt.AlphaMode {
	case gltf.AlphaOpaque:
		transparency = TRANSPARENCY_OPAQUE
	case gltf.AlphaMask:
		transparency = TRANSPARENCY_BINARY
	case gltf.AlphaBlend:
		transparency = TRANSPARENCY_BLEND
	default:
		return nil, fmt.Errorf("%w: alphaMode %v", ErrInvalidDocument, mt.AlphaMode)
	}

	mtl := &Material{
		Color:            color,
		Transparency:     transparency,
		DoubleSided:      mt.DoubleSided,
		Interpolation:    INTERPOLATION_FLAT,
		CastShadow:       true,
		AmbientOcclusion: true,
		Layer:            layer,
	}
	m.mtlCache[idx] = mtl
	return mtl, nil
}

func (m *GltfModel) readTextureInfo(ti *gltf.TextureInfo) (*Texture, error) {
	if ti == nil {
		return nil, nil
	}
	if ti.TexCoord != 0 {
		return nil, fmt.Errorf("%w: texCoord set %d", ErrUnsupported, ti.TexCoord)
	}
	return m.readTexture(ti.Index)
}

func (m *GltfModel) readNormalTexture(nt *gltf.NormalTexture) (*Texture, error) {
	if nt == nil || nt.Index == nil {
		return nil, nil
	}
	if nt.TexCoord != 0 {
		return nil, fmt.Errorf("%w: texCoord set %d", ErrUnsupported, nt.TexCoord)
	}
	if nt.ScaleOrDefault() != 1 {
		return nil, fmt.Errorf("%w: normal texture scale %v", ErrUnsupported, nt.ScaleOrDefault())
	}
	return m.readTexture(*nt.Index)
}

func (m *GltfModel) readOcclusionTexture(ot *gltf.OcclusionTexture) (*Texture, error) {
	if ot == nil || ot.Index == nil {
		return nil, nil
	}
	if ot.TexCoord != 0 {
		return nil, fmt.Errorf("%w: texCoord set %d", ErrUnsupported, ot.TexCoord)
	}
	return m.readTexture(*ot.Index)
}

func (m *GltfModel) readTexture(texIdx uint32) (*Texture, error) {
	if int(texIdx) >= len(m.doc.Textures) {
		return nil, fmt.Errorf("%w: texture index %d out of range", ErrInvalidDocument, texIdx)
	}
	texture := m.doc.Textures[texIdx]

	repeated := true
	if texture.Sampler != nil {
		if int(*texture.Sampler) >= len(m.doc.Samplers) {
			return nil, fmt.Errorf("%w: sampler index %d out of range", ErrInvalidDocument, *texture.Sampler)
		}
		sampler := m.doc.Samplers[*texture.Sampler]
		if sampler.WrapS != sampler.WrapT {
			return nil, fmt.Errorf("%w: non uniform wrap mode", ErrUnsupported)
		}
		switch sampler.WrapS {
		case gltf.WrapRepeat:
			repeated = true
		case gltf.WrapClampToEdge:
			repeated = false
		default:
			return nil, fmt.Errorf("%w: wrap mode %v", ErrUnsupported, sampler.WrapS)
		}
	}

	if texture.Source == nil {
		return nil, fmt.Errorf("%w: texture without source", ErrUnsupported)
	}
	if int(*texture.Source) >= len(m.doc.Images) {
		return nil, fmt.Errorf("%w: image index %d out of range", ErrInvalidDocument, *texture.Source)
	}
	return m.readImage(*texture.Source, repeated)
}

// readImage resolves an image into a cached texture. The cache key is the
// (image, wrap) pair: the same image resolved with a different wrap mode
// yields a distinct texture.
func (m *GltfModel) readImage(imgIdx uint32, repeated bool) (*Texture, error) {
	key := texCacheKey{image: imgIdx, repeated: repeated}
	if tex, ok := m.texCache[key]; ok {
		return tex, nil
	}

	img := m.doc.Images[imgIdx]
	hasURI := img.URI != ""
	hasView := img.BufferView != nil
	if hasURI == hasView {
		return nil, fmt.Errorf("%w: image must use either uri or bufferView", ErrInvalidDocument)
	}
	if hasView && img.MimeType == "" {
		return nil, fmt.Errorf("%w: image with bufferView requires mimeType", ErrInvalidDocument)
	}

	var mime, name string
	var data []byte
	var err error

	switch {
	case hasView:
		if int(*img.BufferView) >= len(m.doc.BufferViews) {
			return nil, fmt.Errorf("%w: bufferView index %d out of range", ErrInvalidDocument, *img.BufferView)
		}
		mime = img.MimeType
		name = img.Name
		data, err = m.readBufferView(m.doc.BufferViews[*img.BufferView])
	case isDataURI(img.URI):
		name = img.Name
		mime, data, err = decodeDataURI(img.URI)
	default:
		mime = img.MimeType
		name = path.Base(img.URI)
		data, err = m.Reader.ReadResource(img.URI)
	}
	if err != nil {
		return nil, err
	}

	decoded, err := DecodeImageBytes(mime, data)
	if err != nil {
		return nil, err
	}
	tex := CreateTextureFromImage(decoded, name, repeated)
	tex.Id = int32(imgIdx)
	m.texCache[key] = tex
	return tex, nil
}

// displayColor converts a unit float triple into display color bytes.
func displayColor(r, g, b float32) [3]byte {
	return [3]byte{unitByte(r), unitByte(g), unitByte(b)}
}

func unitByte(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v * 255)
}
