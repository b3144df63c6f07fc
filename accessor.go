package gltfmodel

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	"github.com/qmuntal/gltf"
)

func componentSize(c gltf.ComponentType) (int, error) {
	switch c {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1, nil
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2, nil
	case gltf.ComponentUint, gltf.ComponentFloat:
		return 4, nil
	}
	return 0, fmt.Errorf("%w: component type %v", ErrUnsupported, c)
}

// componentReader walks a tightly packed little-endian buffer view.
type componentReader struct {
	data []byte
	off  int
}

// read decodes one component as float64. The float64 carrier is wide enough
// to hold every component type exactly, including full-range unsigned int.
func (r *componentReader) read(c gltf.ComponentType) (float64, error) {
	sz, err := componentSize(c)
	if err != nil {
		return 0, err
	}
	if r.off+sz > len(r.data) {
		return 0, fmt.Errorf("%w: accessor data out of range", ErrInvalidDocument)
	}
	b := r.data[r.off:]
	r.off += sz
	switch c {
	case gltf.ComponentByte:
		return float64(int8(b[0])), nil
	case gltf.ComponentUbyte:
		return float64(b[0]), nil
	case gltf.ComponentShort:
		return float64(int16(binary.LittleEndian.Uint16(b))), nil
	case gltf.ComponentUshort:
		return float64(binary.LittleEndian.Uint16(b)), nil
	case gltf.ComponentUint:
		return float64(binary.LittleEndian.Uint32(b)), nil
	default:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	}
}

// checkAccessor rejects the accessor options this importer cannot read.
func checkAccessor(acc *gltf.Accessor) error {
	if acc.Sparse != nil {
		return fmt.Errorf("%w: sparse accessor", ErrUnsupported)
	}
	if acc.ByteOffset != 0 {
		return fmt.Errorf("%w: accessor byteOffset", ErrUnsupported)
	}
	if acc.Normalized {
		return fmt.Errorf("%w: normalized accessor", ErrUnsupported)
	}
	return nil
}

func decodeScalarFloats(data []byte, acc *gltf.Accessor) ([]float32, error) {
	if err := checkAccessor(acc); err != nil {
		return nil, err
	}
	if acc.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("%w: accessor type %v, want SCALAR", ErrInvalidDocument, acc.Type)
	}
	rd := &componentReader{data: data}
	result := make([]float32, 0, acc.Count)
	for i := 0; i < int(acc.Count); i++ {
		v, err := rd.read(acc.ComponentType)
		if err != nil {
			return nil, err
		}
		result = append(result, float32(v))
	}
	return result, nil
}

func decodeIndices(data []byte, acc *gltf.Accessor) ([]uint32, error) {
	if err := checkAccessor(acc); err != nil {
		return nil, err
	}
	if acc.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("%w: accessor type %v, want SCALAR", ErrInvalidDocument, acc.Type)
	}
	rd := &componentReader{data: data}
	result := make([]uint32, 0, acc.Count)
	for i := 0; i < int(acc.Count); i++ {
		v, err := rd.read(acc.ComponentType)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: negative index", ErrInvalidDocument)
		}
		result = append(result, uint32(v))
	}
	return result, nil
}

func decodeVec2(data []byte, acc *gltf.Accessor) ([]vec2.T, error) {
	if err := checkAccessor(acc); err != nil {
		return nil, err
	}
	if acc.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("%w: accessor type %v, want VEC2", ErrInvalidDocument, acc.Type)
	}
	rd := &componentReader{data: data}
	result := make([]vec2.T, 0, acc.Count)
	for i := 0; i < int(acc.Count); i++ {
		x, err := rd.read(acc.ComponentType)
		if err != nil {
			return nil, err
		}
		y, err := rd.read(acc.ComponentType)
		if err != nil {
			return nil, err
		}
		result = append(result, vec2.T{float32(x), float32(y)})
	}
	return result, nil
}

// decodeVec3 negates the third component of every element, converting the
// asset's right-handed coordinates into the pipeline's convention. Applies to
// positions and normals alike.
func decodeVec3(data []byte, acc *gltf.Accessor) ([]vec3.T, error) {
	if err := checkAccessor(acc); err != nil {
		return nil, err
	}
	if acc.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("%w: accessor type %v, want VEC3", ErrInvalidDocument, acc.Type)
	}
	rd := &componentReader{data: data}
	result := make([]vec3.T, 0, acc.Count)
	for i := 0; i < int(acc.Count); i++ {
		x, err := rd.read(acc.ComponentType)
		if err != nil {
			return nil, err
		}
		y, err := rd.read(acc.ComponentType)
		if err != nil {
			return nil, err
		}
		z, err := rd.read(acc.ComponentType)
		if err != nil {
			return nil, err
		}
		result = append(result, vec3.T{float32(x), float32(y), float32(-z)})
	}
	return result, nil
}
