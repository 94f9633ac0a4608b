// Package segmentmap layers a memory tier of cached segments over a disk
// tier of sealed segments for one partition. Writes always enter a fresh
// segment; reads consult segments oldest first.
package segmentmap

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/Priyanshu23/TieredIndexGo/fsio"
	"github.com/Priyanshu23/TieredIndexGo/segment"
)

// SpillThreshold is the value count above which an insert batch is
// materialized straight to disk instead of kept in memory.
const SpillThreshold = 4096

var segmentDirPattern = regexp.MustCompile(`^seg-(\d+)$`)

var (
	ErrUnknownFile  = errors.New("unknown file found in segments directory")
	ErrInvalidIndex = errors.New("segment directory has invalid index")
)

// Map is the tiered segment map of a single partition. It is not
// internally synchronized: callers must serialize Insert against any other
// operation on the same partition.
type Map struct {
	fs      fsio.FS
	dir     string
	counter int
	memory  []*segment.Cached
	disk    []*segment.Disk
	log     *zap.Logger
}

type Option func(*Map)

// WithFS substitutes the filesystem backend.
func WithFS(fsys fsio.FS) Option {
	return func(m *Map) { m.fs = fsys }
}

// WithLogger enables probe tracing.
func WithLogger(log *zap.Logger) Option {
	return func(m *Map) { m.log = log }
}

type diskEntry struct {
	index int
	path  string
}

// New opens the segment map rooted at dir, creating the directory if it is
// missing. Every child must be a seg-<N> directory; a directory missing any
// of the six segment files is a crash-partial write and is removed. After
// recovery the counter strictly exceeds every suffix that was on disk.
func New(dir string, options ...Option) (*Map, error) {
	m := &Map{
		fs:  fsio.NewReal(),
		dir: dir,
		log: zap.NewNop(),
	}
	for _, option := range options {
		option(m)
	}

	if err := m.fs.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("create segments directory: %w", err)
	}

	children, err := m.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan segments directory: %w", err)
	}

	found := make([]diskEntry, 0, len(children))
	maxIndex := -1
	for _, child := range children {
		matches := segmentDirPattern.FindStringSubmatch(child.Name())
		if !child.IsDir() || matches == nil {
			return nil, fmt.Errorf("%s: %w", child.Name(), ErrUnknownFile)
		}

		index, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", child.Name(), ErrInvalidIndex)
		}
		if index > maxIndex {
			maxIndex = index
		}

		path := filepath.Join(dir, child.Name())
		complete, err := m.segmentComplete(path)
		if err != nil {
			return nil, err
		}
		if !complete {
			m.log.Warn("removing partial segment", zap.String("path", path))
			if err := m.fs.RemoveAll(path); err != nil {
				return nil, fmt.Errorf("remove partial segment %s: %w", path, err)
			}
			continue
		}

		found = append(found, diskEntry{index: index, path: path})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].index < found[j].index })

	for _, e := range found {
		m.disk = append(m.disk, segment.OpenDisk(m.fs, e.path))
	}
	m.counter = maxIndex + 1

	return m, nil
}

// segmentComplete reports whether a segment directory holds all six files.
func (m *Map) segmentComplete(path string) (bool, error) {
	for _, name := range segment.RequiredFiles() {
		_, err := m.fs.Stat(filepath.Join(path, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, fmt.Errorf("stat %s: %w", filepath.Join(path, name), err)
		}
	}
	return true, nil
}

// Insert builds a segment from the batch and enqueues it. Batches whose
// distinct value count exceeds SpillThreshold go straight to disk.
func (m *Map) Insert(batch map[string][]string) error {
	cached, err := segment.NewCached(batch)
	if err != nil {
		return err
	}

	if cached.ValueCount() <= SpillThreshold {
		m.memory = append(m.memory, cached)
		m.log.Debug("enqueued memory segment",
			zap.Int("keys", cached.KeyCount()),
			zap.Int("values", cached.ValueCount()))
		return nil
	}

	// Claim the suffix before any I/O so a failed write never leaves a
	// partial directory in the way of the next spill.
	path := filepath.Join(m.dir, fmt.Sprintf("seg-%d", m.counter))
	m.counter++

	if err := m.fs.MkdirAll(path); err != nil {
		return fmt.Errorf("create segment directory %s: %w", path, err)
	}
	if err := segment.WriteCached(m.fs, path, cached); err != nil {
		return err
	}

	m.disk = append(m.disk, segment.OpenDisk(m.fs, path))
	m.log.Debug("sealed disk segment",
		zap.String("path", path),
		zap.Int("keys", cached.KeyCount()),
		zap.Int("values", cached.ValueCount()))

	return nil
}

// Find collects the values indexed under key, memory tier first, oldest
// segment first within each tier. A negative limit means unlimited; a zero
// limit returns empty without consulting any segment.
func (m *Map) Find(key string, limit int) ([]string, error) {
	if limit == 0 {
		return nil, nil
	}

	var values []string
	remaining := limit

	for _, cached := range m.memory {
		if limit > 0 && remaining <= 0 {
			break
		}

		found, err := cached.Find(key)
		if err != nil {
			return nil, err
		}
		m.log.Debug("probed memory segment", zap.Int("hits", len(found)))

		values = append(values, found...)
		remaining -= len(found)
	}

	for _, disk := range m.disk {
		if limit > 0 && remaining <= 0 {
			break
		}

		found, err := disk.Find(key)
		if err != nil {
			return nil, err
		}
		m.log.Debug("probed disk segment",
			zap.String("path", disk.Dir()),
			zap.Int("hits", len(found)))

		values = append(values, found...)
		remaining -= len(found)
	}

	if limit > 0 && len(values) > limit {
		values = values[:limit]
	}

	return values, nil
}
