package protocol

import (
	"fmt"
)

// Kind identifies the component family an identifier belongs to.
type Kind uint8

const (
	KindNone Kind = iota
	KindMethod
	KindSignal
	KindEntity
	KindPlot
	KindBuffer
	KindBufferView
	KindMaterial
	KindImage
	KindTexture
	KindSampler
	KindLight
	KindGeometry
	KindTable
	KindDocument
)

var kindNames = map[Kind]string{
	KindNone:       "ID",
	KindMethod:     "MethodID",
	KindSignal:     "SignalID",
	KindEntity:     "EntityID",
	KindPlot:       "PlotID",
	KindBuffer:     "BufferID",
	KindBufferView: "BufferViewID",
	KindMaterial:   "MaterialID",
	KindImage:      "ImageID",
	KindTexture:    "TextureID",
	KindSampler:    "SamplerID",
	KindLight:      "LightID",
	KindGeometry:   "GeometryID",
	KindTable:      "TableID",
	KindDocument:   "Document",
}

var kindSpecifiers = map[Kind]string{
	KindMethod:     "methods",
	KindSignal:     "signals",
	KindEntity:     "entities",
	KindPlot:       "plots",
	KindBuffer:     "buffers",
	KindBufferView: "bufferviews",
	KindMaterial:   "materials",
	KindImage:      "images",
	KindTexture:    "textures",
	KindSampler:    "samplers",
	KindLight:      "lights",
	KindGeometry:   "geometries",
	KindTable:      "tables",
	KindDocument:   "document",
}

// Kinds lists every delegate-backed kind in message-table order.
func Kinds() []Kind {
	return []Kind{
		KindMethod,
		KindSignal,
		KindEntity,
		KindPlot,
		KindBuffer,
		KindBufferView,
		KindMaterial,
		KindImage,
		KindTexture,
		KindSampler,
		KindLight,
		KindGeometry,
		KindTable,
		KindDocument,
	}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Specifier returns the plural state-map name used by NOODLES tooling ("methods", "tables").
func (k Kind) Specifier() string {
	return kindSpecifiers[k]
}

// KindFromSpecifier resolves a specifier such as "tables" back to its kind.
func KindFromSpecifier(spec string) (Kind, bool) {
	for k, s := range kindSpecifiers {
		if s == spec {
			return k, true
		}
	}
	return KindNone, false
}

// NullSlot marks the reserved null identifier.
const NullSlot = ^uint32(0)

// ID is the kind-qualified key used to index client state.
type ID struct {
	Kind Kind
	Slot uint32
	Gen  uint32
}

func (id ID) String() string {
	return fmt.Sprintf("%s|%d/%d|", id.Kind, id.Slot, id.Gen)
}

// Compact drops the kind prefix.
func (id ID) Compact() string {
	return fmt.Sprintf("|%d/%d|", id.Slot, id.Gen)
}

func (id ID) IsNull() bool {
	return id.Slot == NullSlot && id.Gen == NullSlot
}

type kindTag interface {
	kind() Kind
}

type (
	methodTag     struct{}
	signalTag     struct{}
	entityTag     struct{}
	plotTag       struct{}
	bufferTag     struct{}
	bufferViewTag struct{}
	materialTag   struct{}
	imageTag      struct{}
	textureTag    struct{}
	samplerTag    struct{}
	lightTag      struct{}
	geometryTag   struct{}
	tableTag      struct{}
)

func (methodTag) kind() Kind     { return KindMethod }
func (signalTag) kind() Kind     { return KindSignal }
func (entityTag) kind() Kind     { return KindEntity }
func (plotTag) kind() Kind       { return KindPlot }
func (bufferTag) kind() Kind     { return KindBuffer }
func (bufferViewTag) kind() Kind { return KindBufferView }
func (materialTag) kind() Kind   { return KindMaterial }
func (imageTag) kind() Kind      { return KindImage }
func (textureTag) kind() Kind    { return KindTexture }
func (samplerTag) kind() Kind    { return KindSampler }
func (lightTag) kind() Kind      { return KindLight }
func (geometryTag) kind() Kind   { return KindGeometry }
func (tableTag) kind() Kind      { return KindTable }

// IDOf is a typed identifier. On the wire it is the two element array [slot, gen].
type IDOf[T kindTag] struct {
	Slot uint32
	Gen  uint32
}

type (
	MethodID     = IDOf[methodTag]
	SignalID     = IDOf[signalTag]
	EntityID     = IDOf[entityTag]
	PlotID       = IDOf[plotTag]
	BufferID     = IDOf[bufferTag]
	BufferViewID = IDOf[bufferViewTag]
	MaterialID   = IDOf[materialTag]
	ImageID      = IDOf[imageTag]
	TextureID    = IDOf[textureTag]
	SamplerID    = IDOf[samplerTag]
	LightID      = IDOf[lightTag]
	GeometryID   = IDOf[geometryTag]
	TableID      = IDOf[tableTag]
)

func (id IDOf[T]) Kind() Kind {
	var tag T
	return tag.kind()
}

// Key returns the kind-qualified state key.
func (id IDOf[T]) Key() ID {
	return ID{Kind: id.Kind(), Slot: id.Slot, Gen: id.Gen}
}

func (id IDOf[T]) String() string {
	return id.Key().String()
}

func (id IDOf[T]) Compact() string {
	return id.Key().Compact()
}

func (id IDOf[T]) IsNull() bool {
	return id.Key().IsNull()
}

func (id IDOf[T]) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal([2]uint32{id.Slot, id.Gen})
}

func (id *IDOf[T]) UnmarshalCBOR(data []byte) error {
	var pair []uint64
	if err := decMode.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: want [slot, gen], got %d elements", ErrInvalidID, len(pair))
	}
	if pair[0] > uint64(NullSlot) || pair[1] > uint64(NullSlot) {
		return fmt.Errorf("%w: slot/gen out of range", ErrInvalidID)
	}
	id.Slot = uint32(pair[0])
	id.Gen = uint32(pair[1])
	return nil
}

// FromKey loads slot and gen from a kind-qualified key. It reports false and leaves
// id untouched when the key belongs to another kind.
func (id *IDOf[T]) FromKey(key ID) bool {
	if id.Kind() != key.Kind {
		return false
	}
	id.Slot = key.Slot
	id.Gen = key.Gen
	return true
}

// Keys converts a list of typed identifiers to state keys.
func Keys[T kindTag](ids []IDOf[T]) []ID {
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Key())
	}
	return out
}
