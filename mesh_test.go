package gltfmodel

import (
	"errors"
	"math"
	"testing"

	"github.com/flywave/go3d/vec3"
)

// TestValidateTriangle 三角形有效性判定
func TestValidateTriangle(t *testing.T) {
	valid := [3]vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	if err := validateTriangle(valid); err != nil {
		t.Errorf("valid triangle rejected: %v", err)
	}

	cases := []struct {
		name string
		pts  [3]vec3.T
	}{
		{"identical corners", [3]vec3.T{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}}},
		{"two identical corners", [3]vec3.T{{0, 0, 0}, {0, 0, 0}, {0, 1, 0}}},
		{"collinear", [3]vec3.T{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}},
		{"nan coordinate", [3]vec3.T{{float32(math.NaN()), 0, 0}, {1, 0, 0}, {0, 1, 0}}},
		{"inf coordinate", [3]vec3.T{{float32(math.Inf(1)), 0, 0}, {1, 0, 0}, {0, 1, 0}}},
	}
	for _, c := range cases {
		if err := validateTriangle(c.pts); !errors.Is(err, ErrInvalidGeometry) {
			t.Errorf("%s: error = %v, want ErrInvalidGeometry", c.name, err)
		}
	}
}

// TestComputeNormals 逆时针三角形的面法线
func TestComputeNormals(t *testing.T) {
	geom := &TriangleGeometry{
		Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	}
	geom.ComputeNormals()
	if len(geom.Normals) != 3 {
		t.Fatalf("normal count = %d, want 3", len(geom.Normals))
	}
	want := vec3.T{0, 0, 1}
	for i, n := range geom.Normals {
		if n != want {
			t.Errorf("normal %d = %v, want %v", i, n, want)
		}
	}
}

// TestTriangleAccessors 三角形数量与按序取角点
func TestTriangleAccessors(t *testing.T) {
	geom := &TriangleGeometry{
		Vertices: []vec3.T{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{2, 0, 0}, {3, 0, 0}, {2, 1, 0},
		},
	}
	if geom.TriangleCount() != 2 {
		t.Fatalf("triangle count = %d, want 2", geom.TriangleCount())
	}
	tri := geom.Triangle(1)
	if tri[0] != (vec3.T{2, 0, 0}) || tri[2] != (vec3.T{2, 1, 0}) {
		t.Errorf("triangle(1) = %v", tri)
	}
}

// TestComputeBBox 包围盒计算
func TestComputeBBox(t *testing.T) {
	geom := &TriangleGeometry{
		Vertices: []vec3.T{{-1, 0, 2}, {1, 0, 0}, {0, 3, -2}},
	}
	box := geom.ComputeBBox()
	if box.Min[0] != -1 || box.Min[1] != 0 || box.Min[2] != -2 {
		t.Errorf("box min = %v", box.Min)
	}
	if box.Max[0] != 1 || box.Max[1] != 3 || box.Max[2] != 2 {
		t.Errorf("box max = %v", box.Max)
	}

	if empty := (&TriangleGeometry{}).ComputeBBox(); empty.Min != empty.Max {
		t.Errorf("empty geometry box = %v, want zero box", empty)
	}
}
