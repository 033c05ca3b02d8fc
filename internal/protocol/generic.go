package protocol

import "google.golang.org/protobuf/encoding/protowire"

// Operation names the peripheral handler operations. Each follows the
// uniform shape of a validated-field request and a
// {success, typed result, error} response, but their bodies are glue over
// a platform tool, so they share one flexible wire representation here
// instead of one hand-written message type apiece.
type Operation string

const (
	OpListProcesses         Operation = "list_processes"
	OpKillProcess           Operation = "kill_process"
	OpListServices          Operation = "list_services"
	OpServiceControl        Operation = "service_control"
	OpDisplayResize         Operation = "display_resize"
	OpClipboardGet          Operation = "clipboard_get"
	OpClipboardUpdate       Operation = "clipboard_update"
	OpConfigureNetwork      Operation = "configure_network"
	OpShutdown              Operation = "shutdown"
	OpResetPassword         Operation = "reset_password"
	OpGetHardwareInfo       Operation = "get_hardware_info"
	OpListInstalledSoftware Operation = "list_installed_software"
	OpAgentUpdate           Operation = "agent_update"
	OpGetCapabilities       Operation = "get_capabilities"
)

const fieldGeneric protowire.Number = 80

// Generic carries any of the peripheral request/response shapes: a scalar
// Fields map for simple key/value parameters and results, plus a Repeated
// slice for list-shaped results (process/service/software inventories).
// Handlers for these operations read and fill these string maps directly;
// there are no per-operation typed Go structs. See internal/handlers.
type Generic struct {
	Op       Operation
	Success  bool
	Error    string
	Fields   map[string]string
	Repeated []map[string]string
}

func (Generic) Kind() Kind                    { return KindGeneric }
func (Generic) fieldNumber() protowire.Number { return fieldGeneric }

func (g Generic) marshalBody() []byte {
	var b []byte
	b = appendString(b, 1, string(g.Op))
	b = appendBool(b, 2, g.Success)
	b = appendString(b, 3, g.Error)
	b = appendStringMap(b, 4, g.Fields)
	for _, row := range g.Repeated {
		entry := appendStringMap(nil, 1, row)
		b = appendSubmessage(b, 5, entry)
	}
	return b
}

func (g *Generic) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	g.Op = Operation(d.str(1))
	g.Success = d.boolean(2)
	g.Error = d.str(3)
	g.Fields = stringMap(fields, 4)
	for _, f := range fields {
		if f.num == 5 {
			rowFields, err := scanFields(f.data)
			if err != nil {
				return err
			}
			g.Repeated = append(g.Repeated, stringMap(rowFields, 1))
		}
	}
	return nil
}

func init() { register(fieldGeneric, func() Payload { return &Generic{} }) }
