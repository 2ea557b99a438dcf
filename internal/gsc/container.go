package gsc

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/cam-per/gsckit/utils"
	"golang.org/x/text/encoding/charmap"
)

const (
	key byte = 0x78
)

var ErrMalformed = errors.New("gsc: malformed archive")

type header struct {
	Hash     [4]byte
	Name     [64]byte
	Offset   uint32
	Size     uint32
	Reserved uint32
	Flags    uint8
}

func (h *header) obfuscated() bool { return h.Flags > 0 }

type Entry interface {
	fs.DirEntry
	fs.FileInfo
	Hash() string
	Path() string
}

type entry struct {
	path    string
	name    string
	isDir   bool
	header  *header
	entries []fs.DirEntry
	m       map[string]*entry
}

func newDirEntry(path string, name string) *entry {
	return &entry{
		path:  path,
		name:  name,
		isDir: true,
		m:     make(map[string]*entry),
	}
}

func newFileEntry(path string, name string, h *header) *entry {
	return &entry{
		path:   path,
		name:   name,
		header: h,
	}
}

func (e *entry) Name() string               { return e.name }
func (e *entry) IsDir() bool                { return e.isDir }
func (e *entry) Info() (fs.FileInfo, error) { return e, nil }
func (e *entry) Path() string               { return e.path }
func (e *entry) ModTime() time.Time         { return time.Time{} }
func (e *entry) Sys() any                   { return e.header }
func (e *entry) Type() fs.FileMode          { return e.Mode().Type() }

func (e *entry) Mode() fs.FileMode {
	if e.isDir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

func (e *entry) Size() int64 {
	if e.header == nil {
		return 0
	}
	return int64(e.header.Size)
}

// Hash returns the archive's stored 4-byte entry hash in hex.
func (e *entry) Hash() string {
	if e.header == nil {
		return ""
	}
	return hex.EncodeToString(e.header.Hash[:])
}

func (e *entry) makeDir(name string) (*entry, error) {
	if v, ok := e.m[name]; ok {
		if !v.isDir {
			return nil, fmt.Errorf("%w: %s is both a file and a directory", ErrMalformed, v.path)
		}
		return v, nil
	}
	v := newDirEntry(path.Join(e.path, name), name)
	e.add(v)
	return v, nil
}

func (e *entry) add(item *entry) {
	if _, ok := e.m[item.Name()]; ok {
		return
	}
	e.entries = append(e.entries, item)
	e.m[item.Name()] = item
}

type ArchiveReader interface {
	io.Reader
	io.ReaderAt
}

// Container is a read-only fs.FS over a GSC archive. Names follow the
// fs.ValidPath rules; use Clean for archive-style names.
type Container struct {
	header struct {
		Descriptor [6]byte
		Version    uint16
		Key        uint16
		Entries    uint32
	}
	r          ArchiveReader
	fat        []header
	fm         map[string]*entry
	files      []Entry
	root       *entry
	dataOffset int64
}

func NewContainer(r ArchiveReader) (*Container, error) {
	container := &Container{
		r:    r,
		root: newDirEntry("/", ""),
	}
	if err := container.readHeader(); err != nil {
		return nil, err
	}
	if err := container.readFAT(); err != nil {
		return nil, err
	}
	return container, nil
}

func (container *Container) Descriptor() string { return utils.CString(container.header.Descriptor[:]).String() }
func (container *Container) Version() uint16    { return container.header.Version }

// Files lists the file entries in archive order.
func (container *Container) Files() []Entry { return container.files }

func (container *Container) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	dir, ok := container.fm[container.key(name)]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	if !dir.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	entries := append([]fs.DirEntry(nil), dir.entries...)
	slices.SortFunc(entries, func(a, b fs.DirEntry) int { return strings.Compare(a.Name(), b.Name()) })
	return entries, nil
}

func (container *Container) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	e, ok := container.fm[container.key(name)]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return e, nil
}

// Open opens a file entry. Directories cannot be opened; use ReadDir.
func (container *Container) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	file, ok := container.fm[container.key(name)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if file.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	sr := io.NewSectionReader(container.r, container.dataOffset+int64(^file.header.Offset), int64(file.header.Size))
	return &openedFile{entry: file, sr: sr}, nil
}

func (container *Container) key(name string) string {
	return path.Clean("/" + name)
}

// Clean turns an archive-style name ("UNITS\\PEASANT.GP", "/units/x")
// into the fs.ValidPath form the container is opened with.
func Clean(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(name, "\\", "/")), "/")
	if name == "" {
		return "."
	}
	return name
}

func (container *Container) readHeader() error {
	return binary.Read(container.r, binary.LittleEndian, &container.header)
}

func (container *Container) readFAT() error {
	entrySize := int64(binary.Size(header{}))
	if size, ok := readerSize(container.r); ok {
		rest := size - int64(binary.Size(container.header))
		if int64(container.header.Entries) > rest/entrySize {
			return fmt.Errorf("%w: %d entries do not fit in %d bytes", ErrMalformed, container.header.Entries, size)
		}
	}

	// Without a known size the table is read in chunks, so a bogus count
	// fails at the end of input instead of allocating up front.
	const chunk = 256
	container.fat = make([]header, 0, min(container.header.Entries, chunk))
	for remaining := container.header.Entries; remaining > 0; {
		n := min(remaining, chunk)
		part := make([]header, n)
		if err := binary.Read(container.r, binary.LittleEndian, part); err != nil {
			return err
		}
		container.fat = append(container.fat, part...)
		remaining -= n
	}
	container.dataOffset = int64(binary.Size(container.header)) + entrySize*int64(len(container.fat))

	container.fm = map[string]*entry{
		"/": container.root,
	}
	for i, v := range container.fat {
		a := container.key(Clean(utils.CString(v.Name[:]).Decode(charmap.CodePage866)))
		if a == "/" {
			return fmt.Errorf("%w: entry %d has an empty name", ErrMalformed, i)
		}
		e := newFileEntry(a, path.Base(a), &container.fat[i])
		if err := container.createFile(a, e); err != nil {
			return err
		}
		container.files = append(container.files, e)
	}
	return nil
}

func (container *Container) createFile(path string, e *entry) error {
	if v, ok := container.fm[path]; ok && v.isDir {
		return fmt.Errorf("%w: %s is both a file and a directory", ErrMalformed, path)
	}
	container.fm[path] = e
	parts := strings.Split(path, "/")
	pwd := container.root
	for i, part := range parts {
		if i == 0 {
			continue
		}
		if i == len(parts)-1 {
			pwd.add(e)
			break
		}
		var err error
		if pwd, err = pwd.makeDir(part); err != nil {
			return err
		}
		container.fm[pwd.Path()] = pwd
	}
	return nil
}

// readerSize reports the archive size when the reader can tell it.
func readerSize(r ArchiveReader) (int64, bool) {
	switch r := r.(type) {
	case interface{ Size() int64 }:
		return r.Size(), true
	case interface{ Stat() (fs.FileInfo, error) }:
		info, err := r.Stat()
		if err != nil || !info.Mode().IsRegular() {
			return 0, false
		}
		return info.Size(), true
	}
	return 0, false
}

// openedFile reads one entry. Every read path undoes the XOR obfuscation,
// so Seek, Read and ReadAt all see plain bytes.
type openedFile struct {
	*entry
	sr *io.SectionReader
}

func (f *openedFile) Read(p []byte) (int, error) {
	n, err := f.sr.Read(p)
	f.deobfuscate(p[:n])
	return n, err
}

func (f *openedFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.sr.ReadAt(p, off)
	f.deobfuscate(p[:n])
	return n, err
}

func (f *openedFile) Seek(offset int64, whence int) (int64, error) {
	return f.sr.Seek(offset, whence)
}

func (f *openedFile) deobfuscate(p []byte) {
	if !f.header.obfuscated() {
		return
	}
	for i := range p {
		p[i] ^= key
	}
}

func (f *openedFile) Close() error               { return nil }
func (f *openedFile) Stat() (fs.FileInfo, error) { return f.entry, nil }
