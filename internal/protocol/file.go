package protocol

import "google.golang.org/protobuf/encoding/protowire"

const (
	fieldFileWrite             protowire.Number = 12
	fieldFileRead              protowire.Number = 13
	fieldListDirectory         protowire.Number = 14
	fieldCreateDirectory       protowire.Number = 15
	fieldFileDelete            protowire.Number = 16
	fieldFileStat              protowire.Number = 17
	fieldFileWriteResponse     protowire.Number = 37
	fieldFileReadResponse      protowire.Number = 38
	fieldListDirectoryResponse protowire.Number = 39
	fieldFileStatResponse      protowire.Number = 42
	fieldSimpleResponse        protowire.Number = 90 // shared by CreateDirectory/FileDelete
)

// FileWrite is a single chunk of a chunked file write.
type FileWrite struct {
	Path          string
	Data          []byte
	Offset        uint64
	Append        bool
	CreateParents bool
	ChunkNumber   uint32
	EOF           bool
	Mode          uint32
}

func (FileWrite) Kind() Kind                    { return KindFileWrite }
func (FileWrite) fieldNumber() protowire.Number { return fieldFileWrite }

func (f FileWrite) marshalBody() []byte {
	var b []byte
	b = appendString(b, 1, f.Path)
	b = appendBytes(b, 2, f.Data)
	b = appendVarint(b, 3, f.Offset)
	b = appendBool(b, 4, f.Append)
	b = appendBool(b, 5, f.CreateParents)
	b = appendVarint(b, 6, uint64(f.ChunkNumber))
	b = appendBool(b, 7, f.EOF)
	b = appendVarint(b, 8, uint64(f.Mode))
	return b
}

func (f *FileWrite) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	f.Path = d.str(1)
	f.Data = d.bytes(2)
	f.Offset = d.u64(3)
	f.Append = d.boolean(4)
	f.CreateParents = d.boolean(5)
	f.ChunkNumber = d.u32(6)
	f.EOF = d.boolean(7)
	f.Mode = d.u32(8)
	return nil
}

func init() { register(fieldFileWrite, func() Payload { return &FileWrite{} }) }

// FileWriteResponse reports how much of a FileWrite chunk was written.
type FileWriteResponse struct {
	Success      bool
	BytesWritten uint64
	ChunkNumber  uint32
	Error        string
}

func (FileWriteResponse) Kind() Kind                    { return KindFileWriteResponse }
func (FileWriteResponse) fieldNumber() protowire.Number { return fieldFileWriteResponse }

func (r FileWriteResponse) marshalBody() []byte {
	var b []byte
	b = appendBool(b, 1, r.Success)
	b = appendVarint(b, 2, r.BytesWritten)
	b = appendVarint(b, 3, uint64(r.ChunkNumber))
	b = appendString(b, 4, r.Error)
	return b
}

func (r *FileWriteResponse) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	r.Success = d.boolean(1)
	r.BytesWritten = d.u64(2)
	r.ChunkNumber = d.u32(3)
	r.Error = d.str(4)
	return nil
}

func init() { register(fieldFileWriteResponse, func() Payload { return &FileWriteResponse{} }) }

// FileRead requests one chunk of a file.
type FileRead struct {
	Path      string
	Offset    uint64
	Length    uint64
	ChunkSize uint32
}

func (FileRead) Kind() Kind                    { return KindFileRead }
func (FileRead) fieldNumber() protowire.Number { return fieldFileRead }

func (f FileRead) marshalBody() []byte {
	var b []byte
	b = appendString(b, 1, f.Path)
	b = appendVarint(b, 2, f.Offset)
	b = appendVarint(b, 3, f.Length)
	b = appendVarint(b, 4, uint64(f.ChunkSize))
	return b
}

func (f *FileRead) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	f.Path = d.str(1)
	f.Offset = d.u64(2)
	f.Length = d.u64(3)
	f.ChunkSize = d.u32(4)
	return nil
}

func init() { register(fieldFileRead, func() Payload { return &FileRead{} }) }

// FileReadResponse carries one read chunk plus the stat data required to
// be surfaced alongside it.
type FileReadResponse struct {
	Success    bool
	Data       []byte
	EOF        bool
	TotalSize  uint64
	Mode       uint32
	ModifiedAt int64
	Error      string
}

func (FileReadResponse) Kind() Kind                    { return KindFileReadResponse }
func (FileReadResponse) fieldNumber() protowire.Number { return fieldFileReadResponse }

func (r FileReadResponse) marshalBody() []byte {
	var b []byte
	b = appendBool(b, 1, r.Success)
	b = appendBytes(b, 2, r.Data)
	b = appendBool(b, 3, r.EOF)
	b = appendVarint(b, 4, r.TotalSize)
	b = appendVarint(b, 5, uint64(r.Mode))
	b = appendInt64(b, 6, r.ModifiedAt)
	b = appendString(b, 7, r.Error)
	return b
}

func (r *FileReadResponse) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	r.Success = d.boolean(1)
	r.Data = d.bytes(2)
	r.EOF = d.boolean(3)
	r.TotalSize = d.u64(4)
	r.Mode = d.u32(5)
	r.ModifiedAt = d.i64(6)
	r.Error = d.str(7)
	return nil
}

func init() { register(fieldFileReadResponse, func() Payload { return &FileReadResponse{} }) }

// ListDirectory requests a page of directory entries.
type ListDirectory struct {
	Path              string
	MaxEntries        uint32
	IncludeHidden     bool
	ContinuationToken string
}

func (ListDirectory) Kind() Kind                    { return KindListDirectory }
func (ListDirectory) fieldNumber() protowire.Number { return fieldListDirectory }

func (l ListDirectory) marshalBody() []byte {
	var b []byte
	b = appendString(b, 1, l.Path)
	b = appendVarint(b, 2, uint64(l.MaxEntries))
	b = appendBool(b, 3, l.IncludeHidden)
	b = appendString(b, 4, l.ContinuationToken)
	return b
}

func (l *ListDirectory) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	l.Path = d.str(1)
	l.MaxEntries = d.u32(2)
	l.IncludeHidden = d.boolean(3)
	l.ContinuationToken = d.str(4)
	return nil
}

func init() { register(fieldListDirectory, func() Payload { return &ListDirectory{} }) }

// Entry is one directory listing row.
type Entry struct {
	Name          string
	AbsolutePath  string
	IsDirectory   bool
	IsSymlink     bool
	SizeBytes     uint64
	Mode          uint32
	ModifiedAt    int64
	CreatedAt     int64
	Owner         string
	Group         string
	SymlinkTarget string
}

func (e Entry) marshal() []byte {
	var b []byte
	b = appendString(b, 1, e.Name)
	b = appendString(b, 2, e.AbsolutePath)
	b = appendBool(b, 3, e.IsDirectory)
	b = appendBool(b, 4, e.IsSymlink)
	b = appendVarint(b, 5, e.SizeBytes)
	b = appendVarint(b, 6, uint64(e.Mode))
	b = appendInt64(b, 7, e.ModifiedAt)
	b = appendInt64(b, 8, e.CreatedAt)
	b = appendString(b, 9, e.Owner)
	b = appendString(b, 10, e.Group)
	b = appendString(b, 11, e.SymlinkTarget)
	return b
}

func unmarshalEntry(buf []byte) (Entry, error) {
	fields, err := scanFields(buf)
	if err != nil {
		return Entry{}, err
	}
	d := index(fields)
	return Entry{
		Name:          d.str(1),
		AbsolutePath:  d.str(2),
		IsDirectory:   d.boolean(3),
		IsSymlink:     d.boolean(4),
		SizeBytes:     d.u64(5),
		Mode:          d.u32(6),
		ModifiedAt:    d.i64(7),
		CreatedAt:     d.i64(8),
		Owner:         d.str(9),
		Group:         d.str(10),
		SymlinkTarget: d.str(11),
	}, nil
}

// ListDirectoryResponse carries a page of Entry rows.
type ListDirectoryResponse struct {
	Success           bool
	Entries           []Entry
	ContinuationToken string
	Error             string
}

func (ListDirectoryResponse) Kind() Kind                    { return KindListDirectoryResponse }
func (ListDirectoryResponse) fieldNumber() protowire.Number { return fieldListDirectoryResponse }

func (r ListDirectoryResponse) marshalBody() []byte {
	var b []byte
	b = appendBool(b, 1, r.Success)
	for _, e := range r.Entries {
		b = appendSubmessage(b, 2, e.marshal())
	}
	b = appendString(b, 3, r.ContinuationToken)
	b = appendString(b, 4, r.Error)
	return b
}

func (r *ListDirectoryResponse) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	r.Success = d.boolean(1)
	for _, f := range fields {
		if f.num == 2 {
			e, err := unmarshalEntry(f.data)
			if err != nil {
				return err
			}
			r.Entries = append(r.Entries, e)
		}
	}
	r.ContinuationToken = d.str(3)
	r.Error = d.str(4)
	return nil
}

func init() { register(fieldListDirectoryResponse, func() Payload { return &ListDirectoryResponse{} }) }

// CreateDirectory requests a directory be created, recursively if Parents
// is set.
type CreateDirectory struct {
	Path    string
	Parents bool
	Mode    uint32
}

func (CreateDirectory) Kind() Kind                    { return KindCreateDirectory }
func (CreateDirectory) fieldNumber() protowire.Number { return fieldCreateDirectory }

func (c CreateDirectory) marshalBody() []byte {
	var b []byte
	b = appendString(b, 1, c.Path)
	b = appendBool(b, 2, c.Parents)
	b = appendVarint(b, 3, uint64(c.Mode))
	return b
}

func (c *CreateDirectory) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	c.Path = d.str(1)
	c.Parents = d.boolean(2)
	c.Mode = d.u32(3)
	return nil
}

func init() { register(fieldCreateDirectory, func() Payload { return &CreateDirectory{} }) }

// FileDelete requests a file or directory removal.
type FileDelete struct {
	Path      string
	Recursive bool
}

func (FileDelete) Kind() Kind                    { return KindFileDelete }
func (FileDelete) fieldNumber() protowire.Number { return fieldFileDelete }

func (f FileDelete) marshalBody() []byte {
	var b []byte
	b = appendString(b, 1, f.Path)
	b = appendBool(b, 2, f.Recursive)
	return b
}

func (f *FileDelete) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	f.Path = d.str(1)
	f.Recursive = d.boolean(2)
	return nil
}

func init() { register(fieldFileDelete, func() Payload { return &FileDelete{} }) }

// FileStat requests metadata for a single path.
type FileStat struct {
	Path string
}

func (FileStat) Kind() Kind                    { return KindFileStat }
func (FileStat) fieldNumber() protowire.Number { return fieldFileStat }

func (f FileStat) marshalBody() []byte {
	return appendString(nil, 1, f.Path)
}

func (f *FileStat) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	f.Path = index(fields).str(1)
	return nil
}

func init() { register(fieldFileStat, func() Payload { return &FileStat{} }) }

// FileStatResponse carries one Entry describing a FileStat path.
type FileStatResponse struct {
	Success bool
	Entry   Entry
	Error   string
}

func (FileStatResponse) Kind() Kind                    { return KindFileStatResponse }
func (FileStatResponse) fieldNumber() protowire.Number { return fieldFileStatResponse }

func (r FileStatResponse) marshalBody() []byte {
	var b []byte
	b = appendBool(b, 1, r.Success)
	b = appendSubmessage(b, 2, r.Entry.marshal())
	b = appendString(b, 3, r.Error)
	return b
}

func (r *FileStatResponse) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	r.Success = d.boolean(1)
	if eb := d.bytes(2); eb != nil {
		e, err := unmarshalEntry(eb)
		if err != nil {
			return err
		}
		r.Entry = e
	}
	r.Error = d.str(3)
	return nil
}

func init() { register(fieldFileStatResponse, func() Payload { return &FileStatResponse{} }) }

// SimpleResponse is the uniform {success, error} shape shared by
// CreateDirectory and FileDelete. Peripheral operations answer with
// Generic instead.
type SimpleResponse struct {
	Success bool
	Error   string
}

func (SimpleResponse) Kind() Kind                    { return KindSimpleResponse }
func (SimpleResponse) fieldNumber() protowire.Number { return fieldSimpleResponse }

func (r SimpleResponse) marshalBody() []byte {
	var b []byte
	b = appendBool(b, 1, r.Success)
	b = appendString(b, 2, r.Error)
	return b
}

func (r *SimpleResponse) unmarshalBody(buf []byte) error {
	fields, err := scanFields(buf)
	if err != nil {
		return err
	}
	d := index(fields)
	r.Success = d.boolean(1)
	r.Error = d.str(2)
	return nil
}

func init() { register(fieldSimpleResponse, func() Payload { return &SimpleResponse{} }) }
