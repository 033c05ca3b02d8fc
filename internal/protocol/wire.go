// Package protocol implements the agent's wire message schema: a
// structured record with a message id, a timestamp, and a tagged payload
// variant, encoded as field-tagged, length-delimited binary. It is built
// directly on google.golang.org/protobuf/encoding/protowire without a
// protoc-generated stage; no schema compiler runs in this build.
package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// rawField is one decoded top-level field of a length-delimited message: its
// number and raw, still-encoded value bytes (for length-delimited fields)
// or a parsed scalar. scanFields keeps this generic so each concrete
// payload type can pull out only the field numbers it understands and
// ignore the rest, matching protobuf's unknown-field tolerance.
type rawField struct {
	num  protowire.Number
	typ  protowire.Type
	data []byte // raw sub-message/bytes/string payload
	vint uint64 // raw varint value
	i64  uint64 // raw fixed64 value
	i32  uint32 // raw fixed32 value
}

// scanFields decodes buf into its top-level (number, value) pairs without
// interpreting them against any particular schema.
func scanFields(buf []byte) ([]rawField, error) {
	var out []rawField
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		buf = buf[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			out = append(out, rawField{num: num, typ: typ, vint: v})
			buf = buf[n:]
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(buf)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			out = append(out, rawField{num: num, typ: typ, i64: v})
			buf = buf[n:]
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(buf)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			out = append(out, rawField{num: num, typ: typ, i32: v})
			buf = buf[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			cp := make([]byte, len(v))
			copy(cp, v)
			out = append(out, rawField{num: num, typ: typ, data: cp})
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			buf = buf[n:]
		}
	}
	return out, nil
}

// decoded is the result of scanFields indexed by field number for easy
// single-field lookup; later occurrences win, matching protobuf semantics
// for singular scalar fields.
type decoded map[protowire.Number]rawField

func index(fields []rawField) decoded {
	m := make(decoded, len(fields))
	for _, f := range fields {
		m[f.num] = f
	}
	return m
}

func (d decoded) str(num protowire.Number) string {
	f, ok := d[num]
	if !ok {
		return ""
	}
	return string(f.data)
}

func (d decoded) bytes(num protowire.Number) []byte {
	f, ok := d[num]
	if !ok {
		return nil
	}
	return f.data
}

func (d decoded) u64(num protowire.Number) uint64 {
	return d[num].vint
}

func (d decoded) i64(num protowire.Number) int64 {
	return int64(d[num].vint)
}

func (d decoded) u32(num protowire.Number) uint32 {
	return uint32(d[num].vint)
}

func (d decoded) i32(num protowire.Number) int32 {
	return int32(d[num].vint)
}

func (d decoded) boolean(num protowire.Number) bool {
	return d[num].vint != 0
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	return appendVarint(b, num, uint64(v))
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	return appendVarint(b, num, uint64(uint32(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendSubmessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

// appendStringSlice encodes a repeated string field as one length-delimited
// entry per element, the standard protobuf repeated-scalar layout.
func appendStringSlice(b []byte, num protowire.Number, vals []string) []byte {
	for _, v := range vals {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

func stringSlice(fields []rawField, num protowire.Number) []string {
	var out []string
	for _, f := range fields {
		if f.num == num && f.typ == protowire.BytesType {
			out = append(out, string(f.data))
		}
	}
	return out
}

// appendStringMap encodes a map[string]string as repeated two-field entry
// submessages (key=1, value=2), the standard protobuf map-field encoding.
func appendStringMap(b []byte, num protowire.Number, m map[string]string) []byte {
	for k, v := range m {
		entry := appendString(nil, 1, k)
		entry = appendString(entry, 2, v)
		b = appendSubmessage(b, num, entry)
	}
	return b
}

func stringMap(fields []rawField, num protowire.Number) map[string]string {
	var out map[string]string
	for _, f := range fields {
		if f.num != num || f.typ != protowire.BytesType {
			continue
		}
		entryFields, err := scanFields(f.data)
		if err != nil {
			continue
		}
		e := index(entryFields)
		if out == nil {
			out = make(map[string]string)
		}
		out[e.str(1)] = e.str(2)
	}
	return out
}

// ErrUnknownVariant is returned when a decoded Message's oneof field number
// does not match any registered payload kind.
type ErrUnknownVariant struct {
	FieldNumber protowire.Number
}

func (e *ErrUnknownVariant) Error() string {
	return fmt.Sprintf("protocol: unknown payload variant (field %d)", e.FieldNumber)
}
