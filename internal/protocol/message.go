package protocol

import (
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Kind identifies a payload variant independently of its wire field number,
// used by the dispatcher to route without depending on protocol internals.
type Kind int

const (
	KindUnknown Kind = iota
	KindPing
	KindPong
	KindExecute
	KindExecuteResponse
	KindFileWrite
	KindFileWriteResponse
	KindFileRead
	KindFileReadResponse
	KindListDirectory
	KindListDirectoryResponse
	KindCreateDirectory
	KindFileDelete
	KindFileStat
	KindFileStatResponse
	KindSimpleResponse
	KindQuiesce
	KindQuiesceResponse
	KindThaw
	KindThawResponse
	KindSyncTime
	KindSyncTimeResponse
	KindTelemetry
	KindAgentReady
	KindError
	KindClipboardChanged
	KindGeneric // peripheral handlers specified only at the interface
)

// Payload is one variant of Message's oneof. fieldNumber is the top-level
// tag that identifies the variant on the wire; marshalBody/unmarshalBody
// encode only the variant's own fields as an embedded submessage.
type Payload interface {
	Kind() Kind
	fieldNumber() protowire.Number
	marshalBody() []byte
	unmarshalBody([]byte) error
}

// registry maps a wire field number to a constructor for the Go type that
// decodes it. Every concrete Payload type registers itself in an init().
var registry = map[protowire.Number]func() Payload{}

func register(num protowire.Number, ctor func() Payload) {
	registry[num] = ctor
}

// Timestamp is seconds+nanoseconds since the Unix epoch.
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	t := time.Now()
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// Time converts back to a time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanos)).UTC()
}

const (
	fieldMessageID protowire.Number = 1
	fieldTimestamp protowire.Number = 2

	tsFieldSeconds protowire.Number = 1
	tsFieldNanos   protowire.Number = 2
)

func (t Timestamp) marshal() []byte {
	var b []byte
	b = appendInt64(b, tsFieldSeconds, t.Seconds)
	b = appendInt32(b, tsFieldNanos, t.Nanos)
	return b
}

func unmarshalTimestamp(buf []byte) (Timestamp, error) {
	fields, err := scanFields(buf)
	if err != nil {
		return Timestamp{}, err
	}
	d := index(fields)
	return Timestamp{Seconds: d.i64(tsFieldSeconds), Nanos: d.i32(tsFieldNanos)}, nil
}

// Message is the full envelope exchanged over the framed transport.
type Message struct {
	MessageID string
	Timestamp Timestamp
	Payload   Payload
}

// NewMessage builds a Message with a fresh UUID message id and the current
// timestamp, the shape every agent-originated event uses. Responses are
// built with Reply instead.
func NewMessage(payload Payload) Message {
	return Message{
		MessageID: uuid.NewString(),
		Timestamp: Now(),
		Payload:   payload,
	}
}

// Reply builds a response Message carrying the same message id as req;
// every accepted request gets exactly one response paired this way.
func Reply(req Message, payload Payload) Message {
	return Message{
		MessageID: req.MessageID,
		Timestamp: Now(),
		Payload:   payload,
	}
}

// Encode serializes m to its binary wire form (the payload of one frame).
func (m Message) Encode() []byte {
	var b []byte
	b = appendString(b, fieldMessageID, m.MessageID)
	b = appendSubmessage(b, fieldTimestamp, m.Timestamp.marshal())
	if m.Payload != nil {
		b = appendSubmessage(b, m.Payload.fieldNumber(), m.Payload.marshalBody())
	}
	return b
}

// Decode parses buf into a Message. It returns *ErrUnknownVariant if the
// oneof field present does not match any registered payload kind.
func Decode(buf []byte) (Message, error) {
	fields, err := scanFields(buf)
	if err != nil {
		return Message{}, err
	}

	var msg Message
	for _, f := range fields {
		switch f.num {
		case fieldMessageID:
			msg.MessageID = string(f.data)
		case fieldTimestamp:
			ts, err := unmarshalTimestamp(f.data)
			if err != nil {
				return Message{}, err
			}
			msg.Timestamp = ts
		default:
			ctor, ok := registry[f.num]
			if !ok {
				return Message{}, &ErrUnknownVariant{FieldNumber: f.num}
			}
			payload := ctor()
			if err := payload.unmarshalBody(f.data); err != nil {
				return Message{}, err
			}
			msg.Payload = payload
		}
	}
	return msg, nil
}
