package noodlestest

import (
	"sync"
	"time"

	"github.com/danmuck/penne/internal/protocol"
	"github.com/danmuck/penne/internal/protocol/frame"
	"github.com/danmuck/penne/internal/protocol/schema"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Conn is the server side of one client connection.
type Conn struct {
	ws      *websocket.Conn
	server  *Server
	writeMu sync.Mutex
}

// Send writes msgs as one frame.
func (c *Conn) Send(msgs ...frame.Message) error {
	data, err := frame.Encode(msgs...)
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

// SendRaw writes data as a binary message without framing it.
func (c *Conn) SendRaw(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// SendBody encodes body and sends it as a single message frame.
func (c *Conn) SendBody(id uint32, body any) error {
	data, err := frame.EncodeBody(id, body)
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

// Reply answers invokeID with result.
func (c *Conn) Reply(invokeID string, result any) error {
	raw, err := protocol.Marshal(result)
	if err != nil {
		return err
	}
	return c.SendBody(schema.MsgMethodReply, protocol.Reply{InvokeID: invokeID, Result: raw})
}

// ReplyException answers invokeID with a method exception.
func (c *Conn) ReplyException(invokeID string, code int64, message string) error {
	return c.SendBody(schema.MsgMethodReply, protocol.Reply{
		InvokeID:        invokeID,
		MethodException: &protocol.MethodException{Code: code, Message: message},
	})
}

// Signal invokes signal on the client. A nil context targets the document.
func (c *Conn) Signal(signal protocol.SignalID, ictx *protocol.InvokeContext, args ...any) error {
	data := make([]any, 0, len(args))
	data = append(data, args...)
	return c.SendBody(schema.MsgSignalInvoke, struct {
		ID         protocol.SignalID       `cbor:"id"`
		Context    *protocol.InvokeContext `cbor:"context,omitempty"`
		SignalData []any                   `cbor:"signal_data"`
	}{ID: signal, Context: ictx, SignalData: data})
}

// Close sends a normal close frame and drops the connection.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}

func (c *Conn) readIntro() bool {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return false
	}
	msgs, err := frame.Decode(data, frame.DefaultLimits())
	if err != nil || len(msgs) == 0 || msgs[0].ID != schema.MsgIntro {
		log.Warn().Msgf("noodlestest.Conn first message is not an intro err=%v", err)
		return false
	}
	var intro protocol.Intro
	if err := protocol.Unmarshal(msgs[0].Body, &intro); err != nil {
		return false
	}
	select {
	case c.server.Intros <- intro:
	default:
	}
	return true
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		msgs, err := frame.Decode(data, frame.DefaultLimits())
		if err != nil {
			log.Warn().Msgf("noodlestest.Conn bad frame err=%v", err)
			continue
		}
		for _, m := range msgs {
			if m.ID != schema.MsgInvoke {
				continue
			}
			var inv protocol.InvokeMethod
			if err := protocol.Unmarshal(m.Body, &inv); err != nil {
				log.Warn().Msgf("noodlestest.Conn bad invoke err=%v", err)
				continue
			}
			select {
			case c.server.Invokes <- inv:
			default:
				log.Warn().Msgf("noodlestest.Conn invoke buffer full invoke_id=%s", inv.InvokeID)
			}
			c.autoReply(inv)
		}
	}
}

func (c *Conn) autoReply(inv protocol.InvokeMethod) {
	fn := c.server.handler(inv.Method)
	if fn == nil {
		return
	}
	result, exc := fn(inv)
	var err error
	if exc != nil {
		err = c.ReplyException(inv.InvokeID, exc.Code, exc.Message)
	} else {
		err = c.Reply(inv.InvokeID, result)
	}
	if err != nil {
		log.Warn().Msgf("noodlestest.Conn auto reply invoke_id=%s err=%v", inv.InvokeID, err)
	}
}
