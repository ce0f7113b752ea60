package schema

import (
	"fmt"

	"github.com/danmuck/penne/internal/protocol"
	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog/log"
)

// Client message ids.
const (
	MsgIntro  uint32 = 0
	MsgInvoke uint32 = 1
)

// Action is what a server message does to client state.
type Action string

const (
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionReset       Action = "reset"
	ActionInvoke      Action = "invoke"
	ActionReply       Action = "reply"
	ActionInitialized Action = "initialized"
)

// HandleInfo says which delegate kind a server message targets and how.
type HandleInfo struct {
	Kind   protocol.Kind
	Action Action
}

func (h HandleInfo) String() string {
	return fmt.Sprintf("%s %s", h.Kind, h.Action)
}

// Server message ids.
const (
	MsgMethodCreate uint32 = iota
	MsgMethodDelete
	MsgSignalCreate
	MsgSignalDelete
	MsgEntityCreate
	MsgEntityUpdate
	MsgEntityDelete
	MsgPlotCreate
	MsgPlotUpdate
	MsgPlotDelete
	MsgBufferCreate
	MsgBufferDelete
	MsgBufferViewCreate
	MsgBufferViewDelete
	MsgMaterialCreate
	MsgMaterialUpdate
	MsgMaterialDelete
	MsgImageCreate
	MsgImageDelete
	MsgTextureCreate
	MsgTextureDelete
	MsgSamplerCreate
	MsgSamplerDelete
	MsgLightCreate
	MsgLightUpdate
	MsgLightDelete
	MsgGeometryCreate
	MsgGeometryDelete
	MsgTableCreate
	MsgTableUpdate
	MsgTableDelete
	MsgDocumentUpdate
	MsgDocumentReset
	MsgSignalInvoke
	MsgMethodReply
	MsgDocumentInitialized
)

var serverMessages = map[uint32]HandleInfo{
	MsgMethodCreate:        {protocol.KindMethod, ActionCreate},
	MsgMethodDelete:        {protocol.KindMethod, ActionDelete},
	MsgSignalCreate:        {protocol.KindSignal, ActionCreate},
	MsgSignalDelete:        {protocol.KindSignal, ActionDelete},
	MsgEntityCreate:        {protocol.KindEntity, ActionCreate},
	MsgEntityUpdate:        {protocol.KindEntity, ActionUpdate},
	MsgEntityDelete:        {protocol.KindEntity, ActionDelete},
	MsgPlotCreate:          {protocol.KindPlot, ActionCreate},
	MsgPlotUpdate:          {protocol.KindPlot, ActionUpdate},
	MsgPlotDelete:          {protocol.KindPlot, ActionDelete},
	MsgBufferCreate:        {protocol.KindBuffer, ActionCreate},
	MsgBufferDelete:        {protocol.KindBuffer, ActionDelete},
	MsgBufferViewCreate:    {protocol.KindBufferView, ActionCreate},
	MsgBufferViewDelete:    {protocol.KindBufferView, ActionDelete},
	MsgMaterialCreate:      {protocol.KindMaterial, ActionCreate},
	MsgMaterialUpdate:      {protocol.KindMaterial, ActionUpdate},
	MsgMaterialDelete:      {protocol.KindMaterial, ActionDelete},
	MsgImageCreate:         {protocol.KindImage, ActionCreate},
	MsgImageDelete:         {protocol.KindImage, ActionDelete},
	MsgTextureCreate:       {protocol.KindTexture, ActionCreate},
	MsgTextureDelete:       {protocol.KindTexture, ActionDelete},
	MsgSamplerCreate:       {protocol.KindSampler, ActionCreate},
	MsgSamplerDelete:       {protocol.KindSampler, ActionDelete},
	MsgLightCreate:         {protocol.KindLight, ActionCreate},
	MsgLightUpdate:         {protocol.KindLight, ActionUpdate},
	MsgLightDelete:         {protocol.KindLight, ActionDelete},
	MsgGeometryCreate:      {protocol.KindGeometry, ActionCreate},
	MsgGeometryDelete:      {protocol.KindGeometry, ActionDelete},
	MsgTableCreate:         {protocol.KindTable, ActionCreate},
	MsgTableUpdate:         {protocol.KindTable, ActionUpdate},
	MsgTableDelete:         {protocol.KindTable, ActionDelete},
	MsgDocumentUpdate:      {protocol.KindDocument, ActionUpdate},
	MsgDocumentReset:       {protocol.KindDocument, ActionReset},
	MsgSignalInvoke:        {protocol.KindSignal, ActionInvoke},
	MsgMethodReply:         {protocol.KindMethod, ActionReply},
	MsgDocumentInitialized: {protocol.KindDocument, ActionInitialized},
}

var clientMessages = map[uint32]string{
	MsgIntro:  "intro",
	MsgInvoke: "invoke",
}

// ServerMessages returns a copy of the server message table.
func ServerMessages() map[uint32]HandleInfo {
	out := make(map[uint32]HandleInfo, len(serverMessages))
	for id, info := range serverMessages {
		out[id] = info
	}
	return out
}

// ClientMessages returns a copy of the client message table.
func ClientMessages() map[uint32]string {
	out := make(map[uint32]string, len(clientMessages))
	for id, name := range clientMessages {
		out[id] = name
	}
	return out
}

// Lookup resolves a server message id.
func Lookup(id uint32) (HandleInfo, error) {
	info, ok := serverMessages[id]
	if !ok {
		return HandleInfo{}, ValidationError{MessageType: id, Reason: "unknown message_type"}
	}
	return info, nil
}

// MessageFor returns the server message id carrying action for kind.
func MessageFor(kind protocol.Kind, action Action) (uint32, bool) {
	for id, info := range serverMessages {
		if info.Kind == kind && info.Action == action {
			return id, true
		}
	}
	return 0, false
}

type ValidationError struct {
	MessageType uint32
	Field       string
	Reason      string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: message_type=%d: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message_type=%d field=%s: %s", e.MessageType, e.Field, e.Reason)
}

var requirements = map[uint32][]string{
	MsgMethodCreate:     {"id", "name"},
	MsgMethodDelete:     {"id"},
	MsgSignalCreate:     {"id", "name"},
	MsgSignalDelete:     {"id"},
	MsgEntityCreate:     {"id"},
	MsgEntityUpdate:     {"id"},
	MsgEntityDelete:     {"id"},
	MsgPlotCreate:       {"id"},
	MsgPlotUpdate:       {"id"},
	MsgPlotDelete:       {"id"},
	MsgBufferCreate:     {"id"},
	MsgBufferDelete:     {"id"},
	MsgBufferViewCreate: {"id", "source_buffer", "offset", "length"},
	MsgBufferViewDelete: {"id"},
	MsgMaterialCreate:   {"id"},
	MsgMaterialUpdate:   {"id"},
	MsgMaterialDelete:   {"id"},
	MsgImageCreate:      {"id"},
	MsgImageDelete:      {"id"},
	MsgTextureCreate:    {"id", "image"},
	MsgTextureDelete:    {"id"},
	MsgSamplerCreate:    {"id"},
	MsgSamplerDelete:    {"id"},
	MsgLightCreate:      {"id"},
	MsgLightUpdate:      {"id"},
	MsgLightDelete:      {"id"},
	MsgGeometryCreate:   {"id", "patches"},
	MsgGeometryDelete:   {"id"},
	MsgTableCreate:      {"id"},
	MsgTableUpdate:      {"id"},
	MsgTableDelete:      {"id"},
	MsgSignalInvoke:     {"id"},
	MsgMethodReply:      {"invoke_id"},
}

// Validate enforces required top-level fields for a server message body.
// Unknown fields are ignored.
func Validate(messageType uint32, body cbor.RawMessage) error {
	log.Trace().Msgf("schema.Validate message_type=%d bytes=%d", messageType, len(body))
	if _, ok := serverMessages[messageType]; !ok {
		log.Error().Msgf("schema.Validate unknown message_type=%d", messageType)
		return ValidationError{MessageType: messageType, Reason: "unknown message_type"}
	}
	reqs := requirements[messageType]
	if len(reqs) == 0 {
		return nil
	}
	fields, err := protocol.RawFields(body)
	if err != nil {
		log.Error().Msgf("schema.Validate body is not a map message_type=%d", messageType)
		return ValidationError{MessageType: messageType, Reason: "body is not a map"}
	}
	for _, name := range reqs {
		if _, found := fields[name]; !found {
			log.Error().Msgf("schema.Validate missing field message_type=%d field=%s", messageType, name)
			return ValidationError{MessageType: messageType, Field: name, Reason: "missing required field"}
		}
	}
	return nil
}
