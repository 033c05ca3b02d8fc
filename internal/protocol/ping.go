package protocol

import "google.golang.org/protobuf/encoding/protowire"

const (
	fieldPing protowire.Number = 10
	fieldPong protowire.Number = 35
)

// Ping requests a Pong, carrying the caller's sequence number. It
// runs no security checks.
type Ping struct {
	Sequence uint64
}

func (Ping) Kind() Kind                    { return KindPing }
func (Ping) fieldNumber() protowire.Number { return fieldPing }

func (p Ping) marshalBody() []byte {
	return appendVarint(nil, 1, p.Sequence)
}

func (p *Ping) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	p.Sequence = d.u64(1)
	return nil
}

func init() { register(fieldPing, func() Payload { return &Ping{} }) }

// Pong answers a Ping with the echoed sequence, the agent's own version,
// and the agent's uptime (seconds since the agent process started).
type Pong struct {
	Sequence       uint64
	AgentVersion   string
	HostUptimeSecs uint64
}

func (Pong) Kind() Kind                    { return KindPong }
func (Pong) fieldNumber() protowire.Number { return fieldPong }

func (p Pong) marshalBody() []byte {
	var b []byte
	b = appendVarint(b, 1, p.Sequence)
	b = appendString(b, 2, p.AgentVersion)
	b = appendVarint(b, 3, p.HostUptimeSecs)
	return b
}

func (p *Pong) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	p.Sequence = d.u64(1)
	p.AgentVersion = d.str(2)
	p.HostUptimeSecs = d.u64(3)
	return nil
}

func init() { register(fieldPong, func() Payload { return &Pong{} }) }
