package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundtripPing(t *testing.T) {
	original := NewMessage(&Ping{Sequence: 42})

	buf := original.Encode()
	decoded, err := Decode(buf)
	require.NoError(t, err)

	assert.Equal(t, original.MessageID, decoded.MessageID)
	assert.Equal(t, original.Timestamp, decoded.Timestamp)
	ping, ok := decoded.Payload.(*Ping)
	require.True(t, ok)
	assert.Equal(t, uint64(42), ping.Sequence)
}

func TestMessageRoundtripExecute(t *testing.T) {
	original := NewMessage(&Execute{
		Command:          "/bin/ls",
		Args:             []string{"-la", "/tmp"},
		Environment:      map[string]string{"HOME": "/root", "LANG": "C"},
		WorkingDirectory: "/tmp",
		TimeoutSeconds:   30,
		MaxOutputBytes:   1024,
		WaitForExit:      true,
		RunAsUser:        "nobody",
	})

	decoded, err := Decode(original.Encode())
	require.NoError(t, err)

	exec, ok := decoded.Payload.(*Execute)
	require.True(t, ok)
	assert.Equal(t, "/bin/ls", exec.Command)
	assert.ElementsMatch(t, []string{"-la", "/tmp"}, exec.Args)
	assert.Equal(t, "/root", exec.Environment["HOME"])
	assert.Equal(t, "C", exec.Environment["LANG"])
	assert.True(t, exec.WaitForExit)
	assert.Equal(t, "nobody", exec.RunAsUser)
}

func TestMessageRoundtripExecuteResponseNegativeExitCode(t *testing.T) {
	original := NewMessage(&ExecuteResponse{
		ExitCode:   -1,
		Stderr:     "permission denied",
		TimedOut:   false,
		DurationMs: 5,
	})

	decoded, err := Decode(original.Encode())
	require.NoError(t, err)

	resp, ok := decoded.Payload.(*ExecuteResponse)
	require.True(t, ok)
	assert.Equal(t, int32(-1), resp.ExitCode)
	assert.Equal(t, "permission denied", resp.Stderr)
}

func TestMessageRoundtripListDirectoryResponse(t *testing.T) {
	original := NewMessage(&ListDirectoryResponse{
		Success: true,
		Entries: []Entry{
			{Name: "a", AbsolutePath: "/tmp/a", SizeBytes: 10},
			{Name: "b", AbsolutePath: "/tmp/b", IsDirectory: true},
		},
		ContinuationToken: "b",
	})

	decoded, err := Decode(original.Encode())
	require.NoError(t, err)

	resp, ok := decoded.Payload.(*ListDirectoryResponse)
	require.True(t, ok)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "a", resp.Entries[0].Name)
	assert.True(t, resp.Entries[1].IsDirectory)
	assert.Equal(t, "b", resp.ContinuationToken)
}

func TestMessageRoundtripSyncTimeResponse(t *testing.T) {
	original := NewMessage(&SyncTimeResponse{
		Success:       true,
		OffsetSeconds: 12.5,
		CurrentTime:   1700000000,
		TimeSource:    "chronyc",
	})

	decoded, err := Decode(original.Encode())
	require.NoError(t, err)

	resp, ok := decoded.Payload.(*SyncTimeResponse)
	require.True(t, ok)
	assert.InDelta(t, 12.5, resp.OffsetSeconds, 0.0001)
	assert.Equal(t, "chronyc", resp.TimeSource)
}

func TestReplyPreservesMessageID(t *testing.T) {
	req := NewMessage(&Ping{Sequence: 1})
	resp := Reply(req, &Pong{Sequence: 1, AgentVersion: "1.0.0"})
	assert.Equal(t, req.MessageID, resp.MessageID)
}

func TestDecodeUnknownVariant(t *testing.T) {
	var b []byte
	b = appendString(b, fieldMessageID, "x")
	b = appendSubmessage(b, 200, []byte{})

	_, err := Decode(b)
	require.Error(t, err)
	var uv *ErrUnknownVariant
	assert.ErrorAs(t, err, &uv)
}
