package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/config"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
	"github.com/quantix-kvm/guest-agent/internal/security"
)

// File implements the chunked file I/O handler contracts: FileWrite,
// FileRead, ListDirectory, CreateDirectory, FileDelete, FileStat. Every
// operation shares the path-safety precondition and the security gate.
type File struct {
	Config *config.Config
	Gate   *security.Gate
	Audit  *audit.Logger
}

// Write implements dispatch.Handler for KindFileWrite.
func (h *File) Write(_ context.Context, msg protocol.Message) protocol.Payload {
	req, ok := msg.Payload.(*protocol.FileWrite)
	if !ok {
		return &protocol.FileWriteResponse{Error: "malformed file write request"}
	}

	if err := security.CheckPath(req.Path); err != nil {
		h.Audit.LogFileOp(msg.MessageID, "file_write", req.Path, false, nil)
		return &protocol.FileWriteResponse{ChunkNumber: req.ChunkNumber, Error: "Invalid path: directory traversal detected"}
	}
	if err := h.Gate.CheckFileWrite(req.Path); err != nil {
		h.Audit.LogFileOp(msg.MessageID, "file_write", req.Path, false, nil)
		return &protocol.FileWriteResponse{ChunkNumber: req.ChunkNumber, Error: err.Error()}
	}

	if req.CreateParents {
		if err := os.MkdirAll(filepath.Dir(req.Path), 0o755); err != nil {
			return &protocol.FileWriteResponse{ChunkNumber: req.ChunkNumber, Error: fmt.Sprintf("failed to create parent directories: %v", err)}
		}
	}

	var flags int
	switch {
	case req.Append:
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	case req.Offset > 0 || req.ChunkNumber > 0:
		flags = os.O_CREATE | os.O_WRONLY
	default:
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	f, err := os.OpenFile(req.Path, flags, 0o644)
	if err != nil {
		return &protocol.FileWriteResponse{ChunkNumber: req.ChunkNumber, Error: fmt.Sprintf("failed to open file: %v", err)}
	}
	defer f.Close()

	if !req.Append && req.Offset > 0 {
		if _, err := f.Seek(int64(req.Offset), 0); err != nil {
			return &protocol.FileWriteResponse{ChunkNumber: req.ChunkNumber, Error: fmt.Sprintf("failed to seek: %v", err)}
		}
	}

	n, err := f.Write(req.Data)
	if err != nil {
		return &protocol.FileWriteResponse{ChunkNumber: req.ChunkNumber, Error: fmt.Sprintf("failed to write: %v", err)}
	}

	_ = f.Sync()

	if req.Mode > 0 {
		_ = os.Chmod(req.Path, os.FileMode(req.Mode))
	}

	bytesWritten := uint64(n)
	h.Audit.LogFileOp(msg.MessageID, "file_write", req.Path, true, &bytesWritten)

	return &protocol.FileWriteResponse{Success: true, BytesWritten: bytesWritten, ChunkNumber: req.ChunkNumber}
}

// Read implements dispatch.Handler for KindFileRead.
func (h *File) Read(_ context.Context, msg protocol.Message) protocol.Payload {
	req, ok := msg.Payload.(*protocol.FileRead)
	if !ok {
		return &protocol.FileReadResponse{EOF: true, Error: "malformed file read request"}
	}

	if err := security.CheckPath(req.Path); err != nil {
		h.Audit.LogFileOp(msg.MessageID, "file_read", req.Path, false, nil)
		return &protocol.FileReadResponse{EOF: true, Error: "Invalid path: directory traversal detected"}
	}
	if err := h.Gate.CheckFileRead(req.Path); err != nil {
		h.Audit.LogFileOp(msg.MessageID, "file_read", req.Path, false, nil)
		return &protocol.FileReadResponse{EOF: true, Error: err.Error()}
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		return &protocol.FileReadResponse{EOF: true, Error: "File not found"}
	}
	totalSize := uint64(info.Size())
	mode := uint32(info.Mode().Perm())
	modifiedAt := info.ModTime().Unix()

	f, err := os.Open(req.Path)
	if err != nil {
		return &protocol.FileReadResponse{
			EOF: true, TotalSize: totalSize, Mode: mode, ModifiedAt: modifiedAt,
			Error: fmt.Sprintf("failed to open file: %v", err),
		}
	}
	defer f.Close()

	if req.Offset > 0 {
		if _, err := f.Seek(int64(req.Offset), 0); err != nil {
			return &protocol.FileReadResponse{
				EOF: true, TotalSize: totalSize, Mode: mode, ModifiedAt: modifiedAt,
				Error: fmt.Sprintf("failed to seek: %v", err),
			}
		}
	}

	chunkSize := int(req.ChunkSize)
	if chunkSize == 0 {
		chunkSize = h.Config.MaxChunkSize
	}
	toRead := chunkSize
	if req.Length > 0 && int(req.Length) < chunkSize {
		toRead = int(req.Length)
	}

	buf := make([]byte, toRead)
	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return &protocol.FileReadResponse{
			EOF: true, TotalSize: totalSize, Mode: mode, ModifiedAt: modifiedAt,
			Error: fmt.Sprintf("failed to read: %v", err),
		}
	}
	buf = buf[:n]

	eof := n < toRead || req.Offset+uint64(n) >= totalSize

	bytesRead := uint64(n)
	h.Audit.LogFileOp(msg.MessageID, "file_read", req.Path, true, &bytesRead)

	return &protocol.FileReadResponse{
		Success: true, Data: buf, EOF: eof,
		TotalSize: totalSize, Mode: mode, ModifiedAt: modifiedAt,
	}
}

// ListDirectory implements dispatch.Handler for KindListDirectory.
func (h *File) ListDirectory(_ context.Context, msg protocol.Message) protocol.Payload {
	req, ok := msg.Payload.(*protocol.ListDirectory)
	if !ok {
		return &protocol.ListDirectoryResponse{Error: "malformed list directory request"}
	}

	if err := security.CheckPath(req.Path); err != nil {
		h.Audit.LogFileOp(msg.MessageID, "list_directory", req.Path, false, nil)
		return &protocol.ListDirectoryResponse{Error: "Invalid path: directory traversal detected"}
	}
	if err := h.Gate.CheckFileRead(req.Path); err != nil {
		h.Audit.LogFileOp(msg.MessageID, "list_directory", req.Path, false, nil)
		return &protocol.ListDirectoryResponse{Error: err.Error()}
	}

	dirEntries, err := os.ReadDir(req.Path) // already sorted by name
	if err != nil {
		return &protocol.ListDirectoryResponse{Error: fmt.Sprintf("failed to read directory: %v", err)}
	}

	var entries []protocol.Entry
	var continuation string
	for _, de := range dirEntries {
		name := de.Name()
		if !req.IncludeHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if req.ContinuationToken != "" && name <= req.ContinuationToken {
			continue
		}

		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entryFromInfo(filepath.Join(req.Path, name), name, info))

		if req.MaxEntries > 0 && uint32(len(entries)) >= req.MaxEntries {
			continuation = name
			break
		}
	}

	h.Audit.LogFileOp(msg.MessageID, "list_directory", req.Path, true, nil)
	return &protocol.ListDirectoryResponse{Success: true, Entries: entries, ContinuationToken: continuation}
}

// CreateDirectory implements dispatch.Handler for KindCreateDirectory.
func (h *File) CreateDirectory(_ context.Context, msg protocol.Message) protocol.Payload {
	req, ok := msg.Payload.(*protocol.CreateDirectory)
	if !ok {
		return &protocol.SimpleResponse{Error: "malformed create directory request"}
	}

	if err := security.CheckPath(req.Path); err != nil {
		h.Audit.LogFileOp(msg.MessageID, "create_directory", req.Path, false, nil)
		return &protocol.SimpleResponse{Error: "Invalid path: directory traversal detected"}
	}
	if err := h.Gate.CheckFileWrite(req.Path); err != nil {
		h.Audit.LogFileOp(msg.MessageID, "create_directory", req.Path, false, nil)
		return &protocol.SimpleResponse{Error: err.Error()}
	}

	mode := os.FileMode(0o755)
	if req.Mode > 0 {
		mode = os.FileMode(req.Mode)
	}

	var err error
	if req.Parents {
		err = os.MkdirAll(req.Path, mode)
	} else {
		err = os.Mkdir(req.Path, mode)
	}
	if err != nil {
		return &protocol.SimpleResponse{Error: fmt.Sprintf("failed to create directory: %v", err)}
	}

	h.Audit.LogFileOp(msg.MessageID, "create_directory", req.Path, true, nil)
	return &protocol.SimpleResponse{Success: true}
}

// Delete implements dispatch.Handler for KindFileDelete.
func (h *File) Delete(_ context.Context, msg protocol.Message) protocol.Payload {
	req, ok := msg.Payload.(*protocol.FileDelete)
	if !ok {
		return &protocol.SimpleResponse{Error: "malformed file delete request"}
	}

	if err := security.CheckPath(req.Path); err != nil {
		h.Audit.LogFileOp(msg.MessageID, "file_delete", req.Path, false, nil)
		return &protocol.SimpleResponse{Error: "Invalid path: directory traversal detected"}
	}
	if err := h.Gate.CheckFileWrite(req.Path); err != nil {
		h.Audit.LogFileOp(msg.MessageID, "file_delete", req.Path, false, nil)
		return &protocol.SimpleResponse{Error: err.Error()}
	}

	info, err := os.Lstat(req.Path)
	if err != nil {
		return &protocol.SimpleResponse{Error: fmt.Sprintf("failed to stat path: %v", err)}
	}

	if info.IsDir() && !req.Recursive {
		return &protocol.SimpleResponse{Error: "refusing to delete directory without recursive=true"}
	}

	if req.Recursive {
		err = os.RemoveAll(req.Path)
	} else {
		err = os.Remove(req.Path)
	}
	if err != nil {
		return &protocol.SimpleResponse{Error: fmt.Sprintf("failed to delete: %v", err)}
	}

	h.Audit.LogFileOp(msg.MessageID, "file_delete", req.Path, true, nil)
	return &protocol.SimpleResponse{Success: true}
}

// Stat implements dispatch.Handler for KindFileStat.
func (h *File) Stat(_ context.Context, msg protocol.Message) protocol.Payload {
	req, ok := msg.Payload.(*protocol.FileStat)
	if !ok {
		return &protocol.FileStatResponse{Error: "malformed file stat request"}
	}

	if err := security.CheckPath(req.Path); err != nil {
		h.Audit.LogFileOp(msg.MessageID, "file_stat", req.Path, false, nil)
		return &protocol.FileStatResponse{Error: "Invalid path: directory traversal detected"}
	}
	if err := h.Gate.CheckFileRead(req.Path); err != nil {
		h.Audit.LogFileOp(msg.MessageID, "file_stat", req.Path, false, nil)
		return &protocol.FileStatResponse{Error: err.Error()}
	}

	info, err := os.Lstat(req.Path)
	if err != nil {
		return &protocol.FileStatResponse{Error: fmt.Sprintf("failed to stat path: %v", err)}
	}

	h.Audit.LogFileOp(msg.MessageID, "file_stat", req.Path, true, nil)
	return &protocol.FileStatResponse{Success: true, Entry: entryFromInfo(req.Path, info.Name(), info)}
}

// entryFromInfo builds the uniform Entry record for one filesystem
// object, resolving symlink targets and owner/group (platform-specific,
// see file_unix.go/file_windows.go).
func entryFromInfo(absPath, name string, info os.FileInfo) protocol.Entry {
	e := protocol.Entry{
		Name:         name,
		AbsolutePath: absPath,
		IsDirectory:  info.IsDir(),
		IsSymlink:    info.Mode()&os.ModeSymlink != 0,
		SizeBytes:    uint64(info.Size()),
		Mode:         uint32(info.Mode().Perm()),
		ModifiedAt:   info.ModTime().Unix(),
	}
	if e.IsSymlink {
		if target, err := os.Readlink(absPath); err == nil {
			e.SymlinkTarget = target
		}
	}
	e.Owner, e.Group = ownerGroup(info)
	return e
}
