package gltfmodel

// TextureLayer 单层贴图: 底色贴图加可选的法线与ORM贴图
type TextureLayer struct {
	BaseColor *Texture `json:"baseColor"`
	Normal    *Texture `json:"normal,omitempty"`
	ORM       *Texture `json:"orm,omitempty"`
	Colorable bool     `json:"colorable"`
}

// Material 导入结果使用的材质
type Material struct {
	Color            [3]byte       `json:"color"`
	Transparency     Transparency  `json:"transparency"`
	DoubleSided      bool          `json:"doubleSided"`
	Interpolation    Interpolation `json:"interpolation"`
	CastShadow       bool          `json:"castShadow"`
	AmbientOcclusion bool          `json:"ambientOcclusion"`
	Layer            *TextureLayer `json:"layer,omitempty"`
}

// DefaultMaterial 缺省材质: 不透明白色, 无贴图
func DefaultMaterial() *Material {
	return &Material{
		Color:            [3]byte{255, 255, 255},
		Transparency:     TRANSPARENCY_OPAQUE,
		Interpolation:    INTERPOLATION_FLAT,
		CastShadow:       true,
		AmbientOcclusion: true,
	}
}

func (m *Material) HasTexture() bool {
	return m.Layer != nil && m.Layer.BaseColor != nil
}

func (m *Material) GetTexture() *Texture {
	if m.Layer == nil {
		return nil
	}
	return m.Layer.BaseColor
}

func (m *Material) GetColor() [3]byte {
	return m.Color
}
