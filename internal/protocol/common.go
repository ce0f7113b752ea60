package protocol

import (
	"math"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// Vector and matrix shapes are carried as flat float lists, as on the wire.
type (
	Vec3 []float64
	Vec4 []float64
	Mat3 []float64
	Mat4 []float64
	RGB  []float64
	RGBA []float64
)

// IdentityMat3 is the default texture transform.
func IdentityMat3() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

type AttributeSemantic string

const (
	SemanticPosition AttributeSemantic = "POSITION"
	SemanticNormal   AttributeSemantic = "NORMAL"
	SemanticTangent  AttributeSemantic = "TANGENT"
	SemanticTexture  AttributeSemantic = "TEXTURE"
	SemanticColor    AttributeSemantic = "COLOR"
)

type Format string

const (
	FormatU8      Format = "U8"
	FormatU16     Format = "U16"
	FormatU32     Format = "U32"
	FormatU8Vec4  Format = "U8VEC4"
	FormatU16Vec2 Format = "U16VEC2"
	FormatVec2    Format = "VEC2"
	FormatVec3    Format = "VEC3"
	FormatVec4    Format = "VEC4"
	FormatMat3    Format = "MAT3"
	FormatMat4    Format = "MAT4"
)

type PrimitiveType string

const (
	PrimitivePoints        PrimitiveType = "POINTS"
	PrimitiveLines         PrimitiveType = "LINES"
	PrimitiveLineLoop      PrimitiveType = "LINE_LOOP"
	PrimitiveLineStrip     PrimitiveType = "LINE_STRIP"
	PrimitiveTriangles     PrimitiveType = "TRIANGLES"
	PrimitiveTriangleStrip PrimitiveType = "TRIANGLE_STRIP"
)

type SamplerMode string

const (
	SamplerClampToEdge    SamplerMode = "CLAMP_TO_EDGE"
	SamplerMirroredRepeat SamplerMode = "MIRRORED_REPEAT"
	SamplerRepeat         SamplerMode = "REPEAT"
)

type SelectionRange struct {
	_                struct{} `cbor:",toarray"`
	KeyFromInclusive int64
	KeyToExclusive   int64
}

type Selection struct {
	Name      string           `cbor:"name"`
	Rows      []int64          `cbor:"rows,omitempty"`
	RowRanges []SelectionRange `cbor:"row_ranges,omitempty"`
}

type MethodArg struct {
	Name       string `cbor:"name"`
	Doc        string `cbor:"doc,omitempty"`
	EditorHint string `cbor:"editor_hint,omitempty"`
}

type BoundingBox struct {
	Min Vec3 `cbor:"min"`
	Max Vec3 `cbor:"max"`
}

type TextRepresentation struct {
	Txt    string  `cbor:"txt"`
	Font   string  `cbor:"font,omitempty"`
	Height float64 `cbor:"height,omitempty"`
	Width  float64 `cbor:"width,omitempty"`
}

// NewTextRepresentation returns a text representation carrying protocol defaults.
func NewTextRepresentation() *TextRepresentation {
	return &TextRepresentation{Font: "Arial", Height: 0.25, Width: -1}
}

type WebRepresentation struct {
	Source string  `cbor:"source"`
	Height float64 `cbor:"height,omitempty"`
	Width  float64 `cbor:"width,omitempty"`
}

func NewWebRepresentation() *WebRepresentation {
	return &WebRepresentation{Height: 0.5, Width: 0.5}
}

type InstanceSource struct {
	View   BufferViewID `cbor:"view"`
	Stride int64        `cbor:"stride"`
	BB     *BoundingBox `cbor:"bb,omitempty"`
}

type RenderRepresentation struct {
	Mesh      GeometryID      `cbor:"mesh"`
	Instances *InstanceSource `cbor:"instances,omitempty"`
}

type TextureRef struct {
	Texture          TextureID `cbor:"texture"`
	Transform        Mat3      `cbor:"transform,omitempty"`
	TextureCoordSlot int64     `cbor:"texture_coord_slot,omitempty"`
}

type PBRInfo struct {
	BaseColor         RGBA        `cbor:"base_color,omitempty"`
	BaseColorTexture  *TextureRef `cbor:"base_color_texture,omitempty"`
	Metallic          *float64    `cbor:"metallic,omitempty"`
	Roughness         *float64    `cbor:"roughness,omitempty"`
	MetalRoughTexture *TextureRef `cbor:"metal_rough_texture,omitempty"`
}

// DefaultPBRInfo is opaque white, fully metallic and rough.
func DefaultPBRInfo() *PBRInfo {
	one := 1.0
	rough := 1.0
	return &PBRInfo{
		BaseColor: RGBA{1, 1, 1, 1},
		Metallic:  &one,
		Roughness: &rough,
	}
}

type PointLight struct {
	Range float64 `cbor:"range"`
}

type SpotLight struct {
	Range             float64 `cbor:"range"`
	InnerConeAngleRad float64 `cbor:"inner_cone_angle_rad"`
	OuterConeAngleRad float64 `cbor:"outer_cone_angle_rad"`
}

// NewSpotLight has an unbounded range and a quarter-pi outer cone.
func NewSpotLight() *SpotLight {
	return &SpotLight{Range: -1, OuterConeAngleRad: math.Pi / 4}
}

type DirectionalLight struct {
	Range float64 `cbor:"range"`
}

type Attribute struct {
	View         BufferViewID      `cbor:"view"`
	Semantic     AttributeSemantic `cbor:"semantic"`
	Channel      *int64            `cbor:"channel,omitempty"`
	Offset       int64             `cbor:"offset,omitempty"`
	Stride       int64             `cbor:"stride,omitempty"`
	Format       Format            `cbor:"format"`
	MinimumValue []float64         `cbor:"minimum_value,omitempty"`
	MaximumValue []float64         `cbor:"maximum_value,omitempty"`
	Normalized   bool              `cbor:"normalized,omitempty"`
}

type Index struct {
	View   BufferViewID `cbor:"view"`
	Count  int64        `cbor:"count"`
	Offset int64        `cbor:"offset,omitempty"`
	Stride int64        `cbor:"stride,omitempty"`
	Format Format       `cbor:"format"`
}

type GeometryPatch struct {
	Attributes  []Attribute   `cbor:"attributes"`
	VertexCount int64         `cbor:"vertex_count"`
	Indices     *Index        `cbor:"indices,omitempty"`
	Type        PrimitiveType `cbor:"type"`
	Material    MaterialID    `cbor:"material"`
}

// InvokeContext names the delegate a method or signal targets. Nil means the document.
type InvokeContext struct {
	Entity *EntityID `cbor:"entity,omitempty"`
	Table  *TableID  `cbor:"table,omitempty"`
	Plot   *PlotID   `cbor:"plot,omitempty"`
}

// Key returns the state key of the single populated target.
func (c InvokeContext) Key() (ID, error) {
	if err := c.Validate(); err != nil {
		return ID{}, err
	}
	switch {
	case c.Entity != nil:
		return c.Entity.Key(), nil
	case c.Table != nil:
		return c.Table.Key(), nil
	default:
		return c.Plot.Key(), nil
	}
}

type ColumnType string

const (
	ColumnText    ColumnType = "TEXT"
	ColumnReal    ColumnType = "REAL"
	ColumnInteger ColumnType = "INTEGER"
)

type TableColumnInfo struct {
	Name string     `cbor:"name"`
	Type ColumnType `cbor:"type"`
}

// TableInitData is the reply to a table subscription and the payload of a table reset.
type TableInitData struct {
	Columns    []TableColumnInfo `cbor:"columns"`
	Keys       []int64           `cbor:"keys"`
	Data       [][]any           `cbor:"data"`
	Selections []Selection       `cbor:"selections,omitempty"`
}

type MethodException struct {
	Code    int64           `cbor:"code"`
	Message string          `cbor:"message,omitempty"`
	Data    cbor.RawMessage `cbor:"data,omitempty"`
}

func (e *MethodException) Error() string {
	if e.Message == "" {
		return "method exception code=" + strconv.FormatInt(e.Code, 10)
	}
	return "method exception code=" + strconv.FormatInt(e.Code, 10) + ": " + e.Message
}

// Standard exception codes used by NOODLES servers.
const (
	ExceptionParseError     int64 = -32700
	ExceptionInvalidRequest int64 = -32600
	ExceptionMethodNotFound int64 = -32601
	ExceptionInvalidParams  int64 = -32602
	ExceptionInternalError  int64 = -32603
)
