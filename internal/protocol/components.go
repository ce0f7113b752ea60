package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

type Method struct {
	ID        MethodID    `cbor:"id"`
	Name      string      `cbor:"name"`
	Doc       string      `cbor:"doc,omitempty"`
	ReturnDoc string      `cbor:"return_doc,omitempty"`
	ArgDoc    []MethodArg `cbor:"arg_doc,omitempty"`
}

type Signal struct {
	ID     SignalID    `cbor:"id"`
	Name   string      `cbor:"name"`
	Doc    string      `cbor:"doc,omitempty"`
	ArgDoc []MethodArg `cbor:"arg_doc,omitempty"`
}

type Entity struct {
	ID          EntityID              `cbor:"id"`
	Name        string                `cbor:"name,omitempty"`
	Parent      *EntityID             `cbor:"parent,omitempty"`
	Transform   Mat4                  `cbor:"transform,omitempty"`
	NullRep     cbor.RawMessage       `cbor:"null_rep,omitempty"`
	TextRep     *TextRepresentation   `cbor:"text_rep,omitempty"`
	WebRep      *WebRepresentation    `cbor:"web_rep,omitempty"`
	RenderRep   *RenderRepresentation `cbor:"render_rep,omitempty"`
	Lights      []LightID             `cbor:"lights,omitempty"`
	Tables      []TableID             `cbor:"tables,omitempty"`
	Plots       []PlotID              `cbor:"plots,omitempty"`
	Tags        []string              `cbor:"tags,omitempty"`
	MethodsList []MethodID            `cbor:"methods_list,omitempty"`
	SignalsList []SignalID            `cbor:"signals_list,omitempty"`
	Influence   *BoundingBox          `cbor:"influence,omitempty"`
}

type Plot struct {
	ID          PlotID     `cbor:"id"`
	Name        string     `cbor:"name,omitempty"`
	Table       *TableID   `cbor:"table,omitempty"`
	SimplePlot  string     `cbor:"simple_plot,omitempty"`
	URLPlot     string     `cbor:"url_plot,omitempty"`
	MethodsList []MethodID `cbor:"methods_list,omitempty"`
	SignalsList []SignalID `cbor:"signals_list,omitempty"`
}

type Buffer struct {
	ID          BufferID `cbor:"id"`
	Name        string   `cbor:"name,omitempty"`
	Size        int64    `cbor:"size,omitempty"`
	InlineBytes []byte   `cbor:"inline_bytes,omitempty"`
	URIBytes    string   `cbor:"uri_bytes,omitempty"`
}

// Buffer view types.
const (
	ViewUnknown  = "UNK"
	ViewGeometry = "GEOMETRY"
	ViewImage    = "IMAGE"
)

type BufferView struct {
	ID           BufferViewID `cbor:"id"`
	Name         string       `cbor:"name,omitempty"`
	SourceBuffer BufferID     `cbor:"source_buffer"`
	Type         string       `cbor:"type,omitempty"`
	Offset       int64        `cbor:"offset"`
	Length       int64        `cbor:"length"`
}

type Material struct {
	ID                     MaterialID  `cbor:"id"`
	Name                   string      `cbor:"name,omitempty"`
	PBRInfo                *PBRInfo    `cbor:"pbr_info,omitempty"`
	NormalTexture          *TextureRef `cbor:"normal_texture,omitempty"`
	OcclusionTexture       *TextureRef `cbor:"occlusion_texture,omitempty"`
	OcclusionTextureFactor float64     `cbor:"occlusion_texture_factor,omitempty"`
	EmissiveTexture        *TextureRef `cbor:"emissive_texture,omitempty"`
	EmissiveFactor         Vec3        `cbor:"emissive_factor,omitempty"`
	UseAlpha               bool        `cbor:"use_alpha,omitempty"`
	AlphaCutoff            float64     `cbor:"alpha_cutoff,omitempty"`
	DoubleSided            bool        `cbor:"double_sided,omitempty"`
}

// NewMaterial returns a material carrying protocol defaults.
func NewMaterial() Material {
	return Material{
		PBRInfo:                DefaultPBRInfo(),
		OcclusionTextureFactor: 1,
		EmissiveFactor:         Vec3{1, 1, 1},
		AlphaCutoff:            0.5,
	}
}

type Image struct {
	ID           ImageID   `cbor:"id"`
	Name         string    `cbor:"name,omitempty"`
	BufferSource *BufferID `cbor:"buffer_source,omitempty"`
	URISource    string    `cbor:"uri_source,omitempty"`
}

type Texture struct {
	ID      TextureID  `cbor:"id"`
	Name    string     `cbor:"name,omitempty"`
	Image   ImageID    `cbor:"image"`
	Sampler *SamplerID `cbor:"sampler,omitempty"`
}

// Sampler filters.
const (
	FilterNearest            = "NEAREST"
	FilterLinear             = "LINEAR"
	FilterLinearMipmapLinear = "LINEAR_MIPMAP_LINEAR"
)

type Sampler struct {
	ID        SamplerID   `cbor:"id"`
	Name      string      `cbor:"name,omitempty"`
	MagFilter string      `cbor:"mag_filter,omitempty"`
	MinFilter string      `cbor:"min_filter,omitempty"`
	WrapS     SamplerMode `cbor:"wrap_s,omitempty"`
	WrapT     SamplerMode `cbor:"wrap_t,omitempty"`
}

// NewSampler returns a sampler carrying protocol defaults.
func NewSampler() Sampler {
	return Sampler{
		MagFilter: FilterLinear,
		MinFilter: FilterLinearMipmapLinear,
		WrapS:     SamplerRepeat,
		WrapT:     SamplerRepeat,
	}
}

type Light struct {
	ID          LightID           `cbor:"id"`
	Name        string            `cbor:"name,omitempty"`
	Color       RGB               `cbor:"color,omitempty"`
	Intensity   float64           `cbor:"intensity,omitempty"`
	Point       *PointLight       `cbor:"point,omitempty"`
	Spot        *SpotLight        `cbor:"spot,omitempty"`
	Directional *DirectionalLight `cbor:"directional,omitempty"`
}

// NewLight returns a white light of unit intensity.
func NewLight() Light {
	return Light{Color: RGB{1, 1, 1}, Intensity: 1}
}

type Geometry struct {
	ID      GeometryID      `cbor:"id"`
	Name    string          `cbor:"name,omitempty"`
	Patches []GeometryPatch `cbor:"patches"`
}

type Table struct {
	ID          TableID    `cbor:"id"`
	Name        string     `cbor:"name,omitempty"`
	Meta        string     `cbor:"meta,omitempty"`
	MethodsList []MethodID `cbor:"methods_list,omitempty"`
	SignalsList []SignalID `cbor:"signals_list,omitempty"`
}

type DocumentUpdate struct {
	MethodsList []MethodID `cbor:"methods_list,omitempty"`
	SignalsList []SignalID `cbor:"signals_list,omitempty"`
}

type componentRef struct {
	ID []uint64 `cbor:"id"`
}

// DecodeKey reads the id field of a create, update or delete body and qualifies it
// with kind.
func DecodeKey(kind Kind, body []byte) (ID, error) {
	var ref componentRef
	if err := Unmarshal(body, &ref); err != nil {
		return ID{}, err
	}
	if ref.ID == nil {
		return ID{}, ErrMissingID
	}
	if len(ref.ID) != 2 || ref.ID[0] > uint64(NullSlot) || ref.ID[1] > uint64(NullSlot) {
		return ID{}, fmt.Errorf("%w: %v", ErrInvalidID, ref.ID)
	}
	return ID{Kind: kind, Slot: uint32(ref.ID[0]), Gen: uint32(ref.ID[1])}, nil
}

// Invoke is a server signal invocation.
type Invoke struct {
	ID         SignalID          `cbor:"id"`
	Context    *InvokeContext    `cbor:"context,omitempty"`
	SignalData []cbor.RawMessage `cbor:"signal_data"`
}

// Reply answers one client method invocation.
type Reply struct {
	InvokeID        string           `cbor:"invoke_id"`
	Result          cbor.RawMessage  `cbor:"result,omitempty"`
	MethodException *MethodException `cbor:"method_exception,omitempty"`
}

// Decode decodes the reply result into out.
func (r Reply) Decode(out any) error {
	if len(r.Result) == 0 {
		return nil
	}
	return Unmarshal(r.Result, out)
}

// ReplyFunc receives the reply to an invocation.
type ReplyFunc func(Reply)

// Intro is the first client message.
type Intro struct {
	ClientName string `cbor:"client_name"`
}

// InvokeMethod is the client message asking the server to run a method.
type InvokeMethod struct {
	Method   MethodID       `cbor:"method"`
	Context  *InvokeContext `cbor:"context,omitempty"`
	InvokeID string         `cbor:"invoke_id"`
	Args     []any          `cbor:"args"`
}
