package delegate

import (
	"github.com/danmuck/penne/internal/protocol"
)

// Document is the root delegate. It tracks the document-level methods and signals.
type Document struct {
	Base
	protocol.DocumentUpdate
}

func (d *Document) Key() protocol.ID { return protocol.ID{Kind: protocol.KindDocument} }
func (d *Document) Name() string     { return "Document" }
func (d *Document) Validate() error  { return nil }
func (d *Document) String() string   { return "Document" }

// Apply replaces the lists present in body.
func (d *Document) Apply(body []byte) error {
	if len(body) == 0 {
		return nil
	}
	return update(&d.Base, &d.DocumentUpdate, protocol.DocumentUpdate{}, body, nil)
}

func (d *Document) OnUpdate(body []byte) {
	InjectSignals(d.target(d), d.SignalsList)
}

// Reset clears client state except the document and empties both lists.
func (d *Document) Reset() {
	if d.host != nil {
		d.host.ResetState()
	}
	d.MethodsList = nil
	d.SignalsList = nil
	d.signals = make(map[string]SignalFunc)
}

func (d *Document) ShowMethods() string {
	return showMethods(d.host, "Document", d.MethodsList)
}
