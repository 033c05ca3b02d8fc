package protocol

import "google.golang.org/protobuf/encoding/protowire"

const (
	fieldQuiesce         protowire.Number = 21
	fieldThaw            protowire.Number = 22
	fieldQuiesceResponse protowire.Number = 46
	fieldThawResponse    protowire.Number = 47
)

// Quiesce requests the mount points listed be frozen for a consistent
// snapshot.
type Quiesce struct {
	MountPoints []string
	TimeoutSecs uint32
}

func (Quiesce) Kind() Kind                    { return KindQuiesce }
func (Quiesce) fieldNumber() protowire.Number { return fieldQuiesce }

func (q Quiesce) marshalBody() []byte {
	var b []byte
	b = appendStringSlice(b, 1, q.MountPoints)
	b = appendVarint(b, 2, uint64(q.TimeoutSecs))
	return b
}

func (q *Quiesce) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	q.MountPoints = stringSlice(fields, 1)
	q.TimeoutSecs = index(fields).u32(2)
	return nil
}

func init() { register(fieldQuiesce, func() Payload { return &Quiesce{} }) }

// QuiesceResponse carries the opaque token and the mounts actually frozen
//.
type QuiesceResponse struct {
	Success           bool
	Token             string
	FrozenMountPoints []string
	Error             string
}

func (QuiesceResponse) Kind() Kind                    { return KindQuiesceResponse }
func (QuiesceResponse) fieldNumber() protowire.Number { return fieldQuiesceResponse }

func (r QuiesceResponse) marshalBody() []byte {
	var b []byte
	b = appendBool(b, 1, r.Success)
	b = appendString(b, 2, r.Token)
	b = appendStringSlice(b, 3, r.FrozenMountPoints)
	b = appendString(b, 4, r.Error)
	return b
}

func (r *QuiesceResponse) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	r.Success = d.boolean(1)
	r.Token = d.str(2)
	r.FrozenMountPoints = stringSlice(fields, 3)
	r.Error = d.str(4)
	return nil
}

func init() { register(fieldQuiesceResponse, func() Payload { return &QuiesceResponse{} }) }

// Thaw requests the mounts held by Token be unfrozen.
type Thaw struct {
	Token string
}

func (Thaw) Kind() Kind                    { return KindThaw }
func (Thaw) fieldNumber() protowire.Number { return fieldThaw }

func (t Thaw) marshalBody() []byte {
	return appendString(nil, 1, t.Token)
}

func (t *Thaw) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	t.Token = index(fields).str(1)
	return nil
}

func init() { register(fieldThaw, func() Payload { return &Thaw{} }) }

// ThawResponse reports the outcome of a Thaw, aggregating any per-mount
// unfreeze failures into a single error string.
type ThawResponse struct {
	Success bool
	Error   string
}

func (ThawResponse) Kind() Kind                    { return KindThawResponse }
func (ThawResponse) fieldNumber() protowire.Number { return fieldThawResponse }

func (r ThawResponse) marshalBody() []byte {
	var b []byte
	b = appendBool(b, 1, r.Success)
	b = appendString(b, 2, r.Error)
	return b
}

func (r *ThawResponse) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	r.Success = d.boolean(1)
	r.Error = d.str(2)
	return nil
}

func init() { register(fieldThawResponse, func() Payload { return &ThawResponse{} }) }
