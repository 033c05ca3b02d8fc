package protocol

import "google.golang.org/protobuf/encoding/protowire"

const (
	fieldSyncTime         protowire.Number = 23
	fieldSyncTimeResponse protowire.Number = 48
)

// SyncTime requests either an explicit clock set (TargetTime != 0) or a
// resync against a time source.
type SyncTime struct {
	TargetTime int64 // Unix seconds; 0 means "resync" rather than explicit set
	Force      bool
}

func (SyncTime) Kind() Kind                    { return KindSyncTime }
func (SyncTime) fieldNumber() protowire.Number { return fieldSyncTime }

func (s SyncTime) marshalBody() []byte {
	var b []byte
	b = appendInt64(b, 1, s.TargetTime)
	b = appendBool(b, 2, s.Force)
	return b
}

func (s *SyncTime) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	s.TargetTime = d.i64(1)
	s.Force = d.boolean(2)
	return nil
}

func init() { register(fieldSyncTime, func() Payload { return &SyncTime{} }) }

// SyncTimeResponse reports the outcome and which mechanism succeeded
//.
type SyncTimeResponse struct {
	Success       bool
	OffsetSeconds float64
	CurrentTime   int64
	TimeSource    string
	Error         string
}

func (SyncTimeResponse) Kind() Kind                    { return KindSyncTimeResponse }
func (SyncTimeResponse) fieldNumber() protowire.Number { return fieldSyncTimeResponse }

func (r SyncTimeResponse) marshalBody() []byte {
	var b []byte
	b = appendBool(b, 1, r.Success)
	b = protowire.AppendTag(b, 2, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, float64bits(r.OffsetSeconds))
	b = appendInt64(b, 3, r.CurrentTime)
	b = appendString(b, 4, r.TimeSource)
	b = appendString(b, 5, r.Error)
	return b
}

func (r *SyncTimeResponse) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	r.Success = d.boolean(1)
	if f, ok := d[2]; ok {
		r.OffsetSeconds = float64frombits(f.i64)
	}
	r.CurrentTime = d.i64(3)
	r.TimeSource = d.str(4)
	r.Error = d.str(5)
	return nil
}

func init() { register(fieldSyncTimeResponse, func() Payload { return &SyncTimeResponse{} }) }
