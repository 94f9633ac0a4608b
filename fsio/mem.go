package fsio

import (
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// Mem is an in-memory FS. Paths are slash-separated; directories exist
// implicitly once created with MkdirAll or as parents of created files.
type Mem struct {
	mu    sync.Mutex
	files map[string]*memData
	dirs  map[string]bool
}

type memData struct {
	buf []byte
}

func NewMem() *Mem {
	return &Mem{
		files: make(map[string]*memData),
		dirs:  map[string]bool{".": true},
	}
}

func clean(p string) string {
	return path.Clean(strings.ReplaceAll(p, string(os.PathSeparator), "/"))
}

func (m *Mem) Open(p string) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.files[clean(p)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}

	return &memFile{data: d}, nil
}

func (m *Mem) Create(p string) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := clean(p)
	if _, ok := m.files[name]; ok {
		return nil, &fs.PathError{Op: "create", Path: p, Err: fs.ErrExist}
	}

	d := &memData{}
	m.files[name] = d
	for dir := path.Dir(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
		m.dirs[dir] = true
	}

	return &memFile{data: d, writable: true}, nil
}

func (m *Mem) ReadDir(p string) ([]fs.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := clean(p)
	if !m.dirs[name] {
		return nil, &fs.PathError{Op: "readdir", Path: p, Err: fs.ErrNotExist}
	}

	seen := map[string]fs.DirEntry{}
	for f := range m.files {
		if path.Dir(f) == name {
			base := path.Base(f)
			seen[base] = memEntry{name: base, dir: false}
		}
	}
	for d := range m.dirs {
		if d != name && path.Dir(d) == name {
			base := path.Base(d)
			seen[base] = memEntry{name: base, dir: true}
		}
	}

	entries := make([]fs.DirEntry, 0, len(seen))
	for _, e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	return entries, nil
}

func (m *Mem) MkdirAll(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for dir := clean(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		m.dirs[dir] = true
	}

	return nil
}

func (m *Mem) RemoveAll(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := clean(p)
	delete(m.files, name)
	for f := range m.files {
		if strings.HasPrefix(f, name+"/") {
			delete(m.files, f)
		}
	}
	delete(m.dirs, name)
	for d := range m.dirs {
		if strings.HasPrefix(d, name+"/") {
			delete(m.dirs, d)
		}
	}

	return nil
}

func (m *Mem) Stat(p string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := clean(p)
	if d, ok := m.files[name]; ok {
		return memInfo{name: path.Base(name), size: int64(len(d.buf))}, nil
	}
	if m.dirs[name] {
		return memInfo{name: path.Base(name), dir: true}, nil
	}

	return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
}

type memFile struct {
	data     *memData
	pos      int64
	writable bool
	closed   bool
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	if f.pos >= int64(len(f.data.buf)) {
		return 0, io.EOF
	}

	n := copy(p, f.data.buf[f.pos:])
	f.pos += int64(n)

	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	if !f.writable {
		return 0, fs.ErrPermission
	}

	if grow := f.pos + int64(len(p)) - int64(len(f.data.buf)); grow > 0 {
		f.data.buf = append(f.data.buf, make([]byte, grow)...)
	}
	n := copy(f.data.buf[f.pos:], p)
	f.pos += int64(n)

	return n, nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		base = int64(len(f.data.buf))
	default:
		return 0, fs.ErrInvalid
	}

	pos := base + offset
	if pos < 0 {
		return 0, fs.ErrInvalid
	}
	f.pos = pos

	return pos, nil
}

func (f *memFile) Sync() error { return nil }

func (f *memFile) Close() error {
	f.closed = true
	return nil
}

type memEntry struct {
	name string
	dir  bool
}

func (e memEntry) Name() string { return e.name }
func (e memEntry) IsDir() bool  { return e.dir }
func (e memEntry) Type() fs.FileMode {
	if e.dir {
		return fs.ModeDir
	}
	return 0
}
func (e memEntry) Info() (fs.FileInfo, error) {
	return memInfo{name: e.name, dir: e.dir}, nil
}

type memInfo struct {
	name string
	size int64
	dir  bool
}

func (i memInfo) Name() string     { return i.name }
func (i memInfo) Size() int64      { return i.size }
func (i memInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir
	}
	return 0
}
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return i.dir }
func (i memInfo) Sys() any           { return nil }
