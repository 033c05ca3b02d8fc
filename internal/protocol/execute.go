package protocol

import "google.golang.org/protobuf/encoding/protowire"

const (
	fieldExecute         protowire.Number = 11
	fieldExecuteResponse protowire.Number = 36
)

// Execute requests a command run, with optional privilege drop.
type Execute struct {
	Command                    string
	Args                       []string
	Environment                map[string]string
	WorkingDirectory           string
	TimeoutSeconds             uint32
	MaxOutputBytes             uint32
	WaitForExit                bool
	RunAsUser                  string
	RunAsGroup                 string
	IncludeSupplementaryGroups bool
}

func (Execute) Kind() Kind                    { return KindExecute }
func (Execute) fieldNumber() protowire.Number { return fieldExecute }

func (e Execute) marshalBody() []byte {
	var b []byte
	b = appendString(b, 1, e.Command)
	b = appendStringSlice(b, 2, e.Args)
	b = appendStringMap(b, 3, e.Environment)
	b = appendString(b, 4, e.WorkingDirectory)
	b = appendVarint(b, 5, uint64(e.TimeoutSeconds))
	b = appendVarint(b, 6, uint64(e.MaxOutputBytes))
	b = appendBool(b, 7, e.WaitForExit)
	b = appendString(b, 8, e.RunAsUser)
	b = appendString(b, 9, e.RunAsGroup)
	b = appendBool(b, 10, e.IncludeSupplementaryGroups)
	return b
}

func (e *Execute) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	e.Command = d.str(1)
	e.Args = stringSlice(fields, 2)
	e.Environment = stringMap(fields, 3)
	e.WorkingDirectory = d.str(4)
	e.TimeoutSeconds = d.u32(5)
	e.MaxOutputBytes = d.u32(6)
	e.WaitForExit = d.boolean(7)
	e.RunAsUser = d.str(8)
	e.RunAsGroup = d.str(9)
	e.IncludeSupplementaryGroups = d.boolean(10)
	return nil
}

func init() { register(fieldExecute, func() Payload { return &Execute{} }) }

// ExecuteResponse is Execute's result.
type ExecuteResponse struct {
	ExitCode   int32
	Stdout     string
	Stderr     string
	Truncated  bool
	TimedOut   bool
	DurationMs uint64
	Error      string
}

func (ExecuteResponse) Kind() Kind                    { return KindExecuteResponse }
func (ExecuteResponse) fieldNumber() protowire.Number { return fieldExecuteResponse }

func (r ExecuteResponse) marshalBody() []byte {
	var b []byte
	b = appendInt32(b, 1, r.ExitCode)
	b = appendString(b, 2, r.Stdout)
	b = appendString(b, 3, r.Stderr)
	b = appendBool(b, 4, r.Truncated)
	b = appendBool(b, 5, r.TimedOut)
	b = appendVarint(b, 6, r.DurationMs)
	b = appendString(b, 7, r.Error)
	return b
}

func (r *ExecuteResponse) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	r.ExitCode = d.i32(1)
	r.Stdout = d.str(2)
	r.Stderr = d.str(3)
	r.Truncated = d.boolean(4)
	r.TimedOut = d.boolean(5)
	r.DurationMs = d.u64(6)
	r.Error = d.str(7)
	return nil
}

func init() { register(fieldExecuteResponse, func() Payload { return &ExecuteResponse{} }) }
