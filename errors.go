package gltfmodel

import "errors"

var (
	ErrInvalidDocument = errors.New("invalid gltf document")
	ErrUnsupported     = errors.New("unsupported gltf feature")
	ErrInvalidGeometry = errors.New("invalid geometry")
)
