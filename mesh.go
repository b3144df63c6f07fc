package gltfmodel

import (
	"fmt"
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// TriangleGeometry 展开后的三角形网格: 顶点按三角形顺序排列,
// 可选属性与顶点一一对应
type TriangleGeometry struct {
	Vertices  []vec3.T  `json:"vertices"`
	Normals   []vec3.T  `json:"normals,omitempty"`
	Colors    [][3]byte `json:"colors,omitempty"`
	TexCoords []vec2.T  `json:"texCoords,omitempty"`
}

// Mesh 一个图元的导入结果
type Mesh struct {
	Geometry *TriangleGeometry `json:"geometry"`
	Material *Material         `json:"material"`
}

func (g *TriangleGeometry) TriangleCount() int {
	return len(g.Vertices) / 3
}

// Triangle returns the i-th triangle's corner positions.
func (g *TriangleGeometry) Triangle(i int) [3]vec3.T {
	return [3]vec3.T{g.Vertices[i*3], g.Vertices[i*3+1], g.Vertices[i*3+2]}
}

func (g *TriangleGeometry) GetBoundbox() *[6]float64 {
	minX := math.MaxFloat64
	minY := math.MaxFloat64
	minZ := math.MaxFloat64
	maxX := -math.MaxFloat64
	maxY := -math.MaxFloat64
	maxZ := -math.MaxFloat64
	for i := range g.Vertices {
		minX = math.Min(minX, float64(g.Vertices[i][0]))
		minY = math.Min(minY, float64(g.Vertices[i][1]))
		minZ = math.Min(minZ, float64(g.Vertices[i][2]))

		maxX = math.Max(maxX, float64(g.Vertices[i][0]))
		maxY = math.Max(maxY, float64(g.Vertices[i][1]))
		maxZ = math.Max(maxZ, float64(g.Vertices[i][2]))
	}
	return &[6]float64{minX, minY, minZ, maxX, maxY, maxZ}
}

func (g *TriangleGeometry) ComputeBBox() dvec3.Box {
	if len(g.Vertices) == 0 {
		return dvec3.Box{}
	}
	bx := g.GetBoundbox()
	return dvec3.Box{
		Min: dvec3.T{bx[0], bx[1], bx[2]},
		Max: dvec3.T{bx[3], bx[4], bx[5]},
	}
}

// ComputeNormals fills the normal array with per-face normals when the asset
// did not supply any.
func (g *TriangleGeometry) ComputeNormals() {
	normals := make([]vec3.T, len(g.Vertices))
	for i := 0; i+2 < len(g.Vertices); i += 3 {
		pt1 := g.Vertices[i]
		pt2 := g.Vertices[i+1]
		pt3 := g.Vertices[i+2]

		sub1 := vec3.Sub(&pt3, &pt2)
		sub2 := vec3.Sub(&pt1, &pt2)

		cro := vec3.Cross(&sub1, &sub2)
		l := cro.Length()
		if l == 0 {
			continue
		}
		n := *cro.Scale(1 / l)

		normals[i] = n
		normals[i+1] = n
		normals[i+2] = n
	}
	g.Normals = normals
}

// validateTriangle rejects degenerate candidates: non-finite coordinates,
// repeated corners, collinear or zero-area triangles.
func validateTriangle(pts [3]vec3.T) error {
	for _, p := range pts {
		for _, v := range p {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: non finite vertex", ErrInvalidGeometry)
			}
		}
	}
	sub1 := vec3.Sub(&pts[2], &pts[1])
	sub2 := vec3.Sub(&pts[0], &pts[1])
	cro := vec3.Cross(&sub1, &sub2)
	l := float64(cro.Length())
	if l == 0 || math.IsNaN(l) {
		return fmt.Errorf("%w: degenerate triangle", ErrInvalidGeometry)
	}
	return nil
}
