package handlers

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/config"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
	"github.com/quantix-kvm/guest-agent/internal/security"
)

func newFileHandler(cfg *config.Config) *File {
	log := logrus.New()
	log.SetOutput(io.Discard)
	policy := security.NewPolicy(
		cfg.Security.CommandAllowlist,
		cfg.Security.CommandBlocklist,
		cfg.Security.AllowFileWritePaths,
		cfg.Security.DenyFileReadPaths,
	)
	gate := security.NewGate(policy, cfg.Security.MaxCommandsPerMin, cfg.Security.MaxFileOpsPerSec)
	return &File{Config: cfg, Gate: gate, Audit: audit.New(log, false)}
}

func fileMsg(payload protocol.Payload) protocol.Message {
	return protocol.Message{MessageID: "file-test", Timestamp: protocol.Now(), Payload: payload}
}

func TestFileWriteThenReadChunked(t *testing.T) {
	h := newFileHandler(config.Default())
	path := filepath.Join(t.TempDir(), "sub", "x")

	blockA := bytes.Repeat([]byte{'A'}, 1024)
	blockB := bytes.Repeat([]byte{'B'}, 1024)

	w1 := h.Write(context.Background(), fileMsg(&protocol.FileWrite{
		Path: path, Data: blockA, Offset: 0, ChunkNumber: 0, CreateParents: true,
	})).(*protocol.FileWriteResponse)
	require.Empty(t, w1.Error)
	assert.True(t, w1.Success)
	assert.Equal(t, uint64(1024), w1.BytesWritten)
	assert.Equal(t, uint32(0), w1.ChunkNumber)

	w2 := h.Write(context.Background(), fileMsg(&protocol.FileWrite{
		Path: path, Data: blockB, Offset: 1024, ChunkNumber: 1, EOF: true,
	})).(*protocol.FileWriteResponse)
	require.Empty(t, w2.Error)
	assert.Equal(t, uint32(1), w2.ChunkNumber)

	r := h.Read(context.Background(), fileMsg(&protocol.FileRead{
		Path: path, Offset: 0, Length: 2048,
	})).(*protocol.FileReadResponse)
	require.Empty(t, r.Error)
	assert.True(t, r.Success)
	require.Len(t, r.Data, 2048)
	assert.Equal(t, blockA, r.Data[:1024])
	assert.Equal(t, blockB, r.Data[1024:])
	assert.True(t, r.EOF)
	assert.Equal(t, uint64(2048), r.TotalSize)
}

func TestFileReadPathTraversalRejected(t *testing.T) {
	h := newFileHandler(config.Default())

	r := h.Read(context.Background(), fileMsg(&protocol.FileRead{
		Path: "/var/../etc/shadow",
	})).(*protocol.FileReadResponse)

	assert.False(t, r.Success)
	assert.Equal(t, "Invalid path: directory traversal detected", r.Error)
}

func TestFileWriteRelativePathRejected(t *testing.T) {
	h := newFileHandler(config.Default())

	w := h.Write(context.Background(), fileMsg(&protocol.FileWrite{
		Path: "relative/path", Data: []byte("x"),
	})).(*protocol.FileWriteResponse)

	assert.False(t, w.Success)
	assert.Contains(t, w.Error, "traversal")
}

func TestFileWriteDeniedByPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Security.AllowFileWritePaths = []string{"/nowhere/"}
	h := newFileHandler(cfg)

	w := h.Write(context.Background(), fileMsg(&protocol.FileWrite{
		Path: filepath.Join(t.TempDir(), "denied"), Data: []byte("x"),
	})).(*protocol.FileWriteResponse)

	assert.False(t, w.Success)
	assert.Contains(t, w.Error, "denied")
}

func TestFileReadDenyPrefix(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(secret, []byte("s"), 0o600))

	cfg := config.Default()
	cfg.Security.DenyFileReadPaths = []string{dir}
	h := newFileHandler(cfg)

	r := h.Read(context.Background(), fileMsg(&protocol.FileRead{Path: secret})).(*protocol.FileReadResponse)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "denied")
}

func TestFileWriteAppend(t *testing.T) {
	h := newFileHandler(config.Default())
	path := filepath.Join(t.TempDir(), "log")

	for _, chunk := range []string{"one\n", "two\n"} {
		w := h.Write(context.Background(), fileMsg(&protocol.FileWrite{
			Path: path, Data: []byte(chunk), Append: true,
		})).(*protocol.FileWriteResponse)
		require.Empty(t, w.Error)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
}

func TestFileReadByChunksReassembles(t *testing.T) {
	h := newFileHandler(config.Default())
	path := filepath.Join(t.TempDir(), "blob")

	content := make([]byte, 10_000)
	for i := range content {
		content[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, content, 0o644))

	var got []byte
	offset := uint64(0)
	for {
		r := h.Read(context.Background(), fileMsg(&protocol.FileRead{
			Path: path, Offset: offset, ChunkSize: 3000,
		})).(*protocol.FileReadResponse)
		require.Empty(t, r.Error)
		got = append(got, r.Data...)
		offset += uint64(len(r.Data))
		if r.EOF {
			break
		}
	}

	assert.Equal(t, content, got)
}

func TestFileReadPastEOF(t *testing.T) {
	h := newFileHandler(config.Default())
	path := filepath.Join(t.TempDir(), "short")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	r := h.Read(context.Background(), fileMsg(&protocol.FileRead{
		Path: path, Offset: 100,
	})).(*protocol.FileReadResponse)

	require.Empty(t, r.Error)
	assert.Empty(t, r.Data)
	assert.True(t, r.EOF)
}

func TestFileReadNotFound(t *testing.T) {
	h := newFileHandler(config.Default())

	r := h.Read(context.Background(), fileMsg(&protocol.FileRead{
		Path: filepath.Join(t.TempDir(), "missing"),
	})).(*protocol.FileReadResponse)

	assert.False(t, r.Success)
	assert.Equal(t, "File not found", r.Error)
}

func TestListDirectorySortedAndPaged(t *testing.T) {
	h := newFileHandler(config.Default())
	dir := t.TempDir()
	for _, name := range []string{"charlie", "alpha", "bravo", ".hidden"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	full := h.ListDirectory(context.Background(), fileMsg(&protocol.ListDirectory{
		Path: dir,
	})).(*protocol.ListDirectoryResponse)
	require.Empty(t, full.Error)
	require.Len(t, full.Entries, 3, "dot files are excluded by default")
	assert.Equal(t, "alpha", full.Entries[0].Name)
	assert.Equal(t, "bravo", full.Entries[1].Name)
	assert.Equal(t, "charlie", full.Entries[2].Name)
	assert.Empty(t, full.ContinuationToken)

	hidden := h.ListDirectory(context.Background(), fileMsg(&protocol.ListDirectory{
		Path: dir, IncludeHidden: true,
	})).(*protocol.ListDirectoryResponse)
	require.Len(t, hidden.Entries, 4)
	assert.Equal(t, ".hidden", hidden.Entries[0].Name)

	page1 := h.ListDirectory(context.Background(), fileMsg(&protocol.ListDirectory{
		Path: dir, MaxEntries: 2,
	})).(*protocol.ListDirectoryResponse)
	require.Len(t, page1.Entries, 2)
	assert.Equal(t, "bravo", page1.ContinuationToken)

	page2 := h.ListDirectory(context.Background(), fileMsg(&protocol.ListDirectory{
		Path: dir, MaxEntries: 2, ContinuationToken: page1.ContinuationToken,
	})).(*protocol.ListDirectoryResponse)
	require.Len(t, page2.Entries, 1)
	assert.Equal(t, "charlie", page2.Entries[0].Name)
	assert.Empty(t, page2.ContinuationToken)
}

func TestCreateDirectoryThenStat(t *testing.T) {
	h := newFileHandler(config.Default())
	path := filepath.Join(t.TempDir(), "a", "b", "c")

	cr := h.CreateDirectory(context.Background(), fileMsg(&protocol.CreateDirectory{
		Path: path, Parents: true,
	})).(*protocol.SimpleResponse)
	require.Empty(t, cr.Error)
	assert.True(t, cr.Success)

	st := h.Stat(context.Background(), fileMsg(&protocol.FileStat{Path: path})).(*protocol.FileStatResponse)
	require.Empty(t, st.Error)
	assert.True(t, st.Entry.IsDirectory)
}

func TestDeleteDirectoryRequiresRecursive(t *testing.T) {
	h := newFileHandler(config.Default())
	dir := filepath.Join(t.TempDir(), "d")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "inner"), 0o755))

	refused := h.Delete(context.Background(), fileMsg(&protocol.FileDelete{
		Path: dir,
	})).(*protocol.SimpleResponse)
	assert.False(t, refused.Success)
	assert.Contains(t, refused.Error, "recursive")

	ok := h.Delete(context.Background(), fileMsg(&protocol.FileDelete{
		Path: dir, Recursive: true,
	})).(*protocol.SimpleResponse)
	assert.True(t, ok.Success)
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStatReportsSize(t *testing.T) {
	h := newFileHandler(config.Default())
	path := filepath.Join(t.TempDir(), "sized")
	require.NoError(t, os.WriteFile(path, make([]byte, 512), 0o640))

	st := h.Stat(context.Background(), fileMsg(&protocol.FileStat{Path: path})).(*protocol.FileStatResponse)
	require.Empty(t, st.Error)
	assert.True(t, st.Success)
	assert.Equal(t, uint64(512), st.Entry.SizeBytes)
	assert.False(t, st.Entry.IsDirectory)
}
