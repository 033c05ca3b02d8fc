package handlers

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

func newTestUpdateHandler() *Update {
	log := logrus.NewEntry(logrus.New())
	return &Update{Audit: audit.New(log.Logger, false), Log: log}
}

type stubGeneric struct {
	op   protocol.Operation
	resp *protocol.Generic
}

func (s *stubGeneric) HandleGeneric(_ context.Context, _ protocol.Message, req *protocol.Generic) *protocol.Generic {
	if req.Op != s.op {
		return nil
	}
	return s.resp
}

func TestPeripheralDispatchesToMatchingHandler(t *testing.T) {
	p := NewPeripheral(
		&stubGeneric{op: protocol.OpListProcesses, resp: &protocol.Generic{Op: protocol.OpListProcesses, Success: true}},
		&stubGeneric{op: protocol.OpShutdown, resp: &protocol.Generic{Op: protocol.OpShutdown, Success: true}},
	)

	msg := protocol.Message{MessageID: "m1", Payload: &protocol.Generic{Op: protocol.OpShutdown}}
	resp := p.Handle(context.Background(), msg)

	generic, ok := resp.(*protocol.Generic)
	require.True(t, ok)
	assert.Equal(t, protocol.OpShutdown, generic.Op)
	assert.True(t, generic.Success)
}

func TestPeripheralUnsupportedOperation(t *testing.T) {
	p := NewPeripheral(&stubGeneric{op: protocol.OpListProcesses, resp: &protocol.Generic{Success: true}})

	msg := protocol.Message{MessageID: "m2", Payload: &protocol.Generic{Op: protocol.OpKillProcess}}
	resp := p.Handle(context.Background(), msg)

	generic, ok := resp.(*protocol.Generic)
	require.True(t, ok)
	assert.False(t, generic.Success)
	assert.Contains(t, generic.Error, "unsupported operation")
}

func TestPeripheralMalformedPayload(t *testing.T) {
	p := NewPeripheral()
	msg := protocol.Message{MessageID: "m3", Payload: &protocol.Ping{}}
	resp := p.Handle(context.Background(), msg)

	generic, ok := resp.(*protocol.Generic)
	require.True(t, ok)
	assert.Equal(t, "malformed peripheral request", generic.Error)
}

func TestUpdateHandlerReportsCurrentVersion(t *testing.T) {
	u := newTestUpdateHandler()

	msg := protocol.Message{MessageID: "m4", Payload: &protocol.Generic{
		Op:     protocol.OpAgentUpdate,
		Fields: map[string]string{"target_version": "0.0.1"},
	}}

	resp := u.HandleGeneric(context.Background(), msg, msg.Payload.(*protocol.Generic))
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "none", resp.Fields["action"])
}

func TestUpdateHandlerRejectsNewerTarget(t *testing.T) {
	u := newTestUpdateHandler()

	msg := protocol.Message{MessageID: "m5", Payload: &protocol.Generic{
		Op:     protocol.OpAgentUpdate,
		Fields: map[string]string{"target_version": "99.0.0"},
	}}

	resp := u.HandleGeneric(context.Background(), msg, msg.Payload.(*protocol.Generic))
	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "not yet implemented")
}

func TestUpdateHandlerIgnoresOtherOps(t *testing.T) {
	u := newTestUpdateHandler()
	msg := protocol.Message{MessageID: "m6", Payload: &protocol.Generic{Op: protocol.OpShutdown}}
	resp := u.HandleGeneric(context.Background(), msg, msg.Payload.(*protocol.Generic))
	assert.Nil(t, resp)
}
