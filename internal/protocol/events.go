package protocol

import "google.golang.org/protobuf/encoding/protowire"

const (
	fieldTelemetry        protowire.Number = 60
	fieldAgentReady       protowire.Number = 61
	fieldError            protowire.Number = 62
	fieldClipboardChanged protowire.Number = 63
)

// Telemetry is the unsolicited periodic metrics report pushed by the
// telemetry pump.
type Telemetry struct {
	CPUPercent       float64
	MemoryUsedBytes  uint64
	MemoryTotalBytes uint64
	DiskUsedBytes    uint64
	DiskTotalBytes   uint64
	NetRxBytes       uint64
	NetTxBytes       uint64
	LoadAverage1     float64
	UptimeSecs       uint64
}

func (Telemetry) Kind() Kind                    { return KindTelemetry }
func (Telemetry) fieldNumber() protowire.Number { return fieldTelemetry }

func appendFixed64(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, v)
}

func (t Telemetry) marshalBody() []byte {
	var b []byte
	b = appendFixed64(b, 1, float64bits(t.CPUPercent))
	b = appendVarint(b, 2, t.MemoryUsedBytes)
	b = appendVarint(b, 3, t.MemoryTotalBytes)
	b = appendVarint(b, 4, t.DiskUsedBytes)
	b = appendVarint(b, 5, t.DiskTotalBytes)
	b = appendVarint(b, 6, t.NetRxBytes)
	b = appendVarint(b, 7, t.NetTxBytes)
	b = appendFixed64(b, 8, float64bits(t.LoadAverage1))
	b = appendVarint(b, 9, t.UptimeSecs)
	return b
}

func (t *Telemetry) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	if f, ok := d[1]; ok {
		t.CPUPercent = float64frombits(f.i64)
	}
	t.MemoryUsedBytes = d.u64(2)
	t.MemoryTotalBytes = d.u64(3)
	t.DiskUsedBytes = d.u64(4)
	t.DiskTotalBytes = d.u64(5)
	t.NetRxBytes = d.u64(6)
	t.NetTxBytes = d.u64(7)
	if f, ok := d[8]; ok {
		t.LoadAverage1 = float64frombits(f.i64)
	}
	t.UptimeSecs = d.u64(9)
	return nil
}

func init() { register(fieldTelemetry, func() Payload { return &Telemetry{} }) }

// AgentReady is emitted once, immediately after the transport is
// established and the dispatcher's receive loop starts.
type AgentReady struct {
	AgentVersion string
	Pid          uint32
}

func (AgentReady) Kind() Kind                    { return KindAgentReady }
func (AgentReady) fieldNumber() protowire.Number { return fieldAgentReady }

func (a AgentReady) marshalBody() []byte {
	var b []byte
	b = appendString(b, 1, a.AgentVersion)
	b = appendVarint(b, 2, uint64(a.Pid))
	return b
}

func (a *AgentReady) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	a.AgentVersion = d.str(1)
	a.Pid = d.u32(2)
	return nil
}

func init() { register(fieldAgentReady, func() Payload { return &AgentReady{} }) }

// Error is an unsolicited event for protocol failures that cannot be tied
// back to a request's message_id.
type Error struct {
	Message   string
	ErrorKind string
}

func (Error) Kind() Kind                    { return KindError }
func (Error) fieldNumber() protowire.Number { return fieldError }

func (e Error) marshalBody() []byte {
	var b []byte
	b = appendString(b, 1, e.Message)
	b = appendString(b, 2, e.ErrorKind)
	return b
}

func (e *Error) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	e.Message = d.str(1)
	e.ErrorKind = d.str(2)
	return nil
}

func init() { register(fieldError, func() Payload { return &Error{} }) }

// ClipboardChanged is emitted when the guest's clipboard contents change
// and the bridge is active.
type ClipboardChanged struct {
	MimeType string
	Data     []byte
}

func (ClipboardChanged) Kind() Kind                    { return KindClipboardChanged }
func (ClipboardChanged) fieldNumber() protowire.Number { return fieldClipboardChanged }

func (c ClipboardChanged) marshalBody() []byte {
	var b []byte
	b = appendString(b, 1, c.MimeType)
	b = appendBytes(b, 2, c.Data)
	return b
}

func (c *ClipboardChanged) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	c.MimeType = d.str(1)
	c.Data = d.bytes(2)
	return nil
}

func init() { register(fieldClipboardChanged, func() Payload { return &ClipboardChanged{} }) }
