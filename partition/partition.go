// Package partition routes index and search requests to per-partition
// tiered segment maps. Partition identifiers become filesystem-safe
// directory names through a reversible z-base-32 encoding.
package partition

import (
	"path/filepath"
	"sync"

	"github.com/tv42/zbase32"
	"go.uber.org/zap"

	"github.com/Priyanshu23/TieredIndexGo/fsio"
	"github.com/Priyanshu23/TieredIndexGo/segmentmap"
)

// Map routes partition identifiers to segment maps under one root
// directory. The root is fixed for the lifetime of the Map. Loaded segment
// maps are cached for the process lifetime so the memory tier stays visible
// across requests; each carries a read-write lock because segment maps are
// not internally synchronized.
type Map struct {
	fs   fsio.FS
	root string
	log  *zap.Logger

	mu     sync.Mutex
	loaded map[string]*partitionState
}

type partitionState struct {
	mu       sync.RWMutex
	segments *segmentmap.Map
}

type Option func(*Map)

func WithFS(fsys fsio.FS) Option {
	return func(m *Map) { m.fs = fsys }
}

func WithLogger(log *zap.Logger) Option {
	return func(m *Map) { m.log = log }
}

// New binds a partition map to its root directory.
func New(root string, options ...Option) *Map {
	m := &Map{
		fs:     fsio.NewReal(),
		root:   root,
		log:    zap.NewNop(),
		loaded: make(map[string]*partitionState),
	}
	for _, option := range options {
		option(m)
	}

	return m
}

// DirName returns the directory name a partition identifier maps to.
func DirName(name string) string {
	return zbase32.EncodeToString([]byte(name))
}

func (m *Map) load(name string) (*partitionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.loaded[name]; ok {
		return state, nil
	}

	dir := filepath.Join(m.root, DirName(name))
	segments, err := segmentmap.New(dir, segmentmap.WithFS(m.fs), segmentmap.WithLogger(m.log))
	if err != nil {
		return nil, err
	}

	state := &partitionState{segments: segments}
	m.loaded[name] = state

	return state, nil
}

// Index inserts a batch of partition to key to values mappings. Partitions
// are processed sequentially; an error leaves earlier partitions indexed.
func (m *Map) Index(batch map[string]map[string][]string) error {
	for name, entries := range batch {
		state, err := m.load(name)
		if err != nil {
			return err
		}

		state.mu.Lock()
		err = state.segments.Insert(entries)
		state.mu.Unlock()
		if err != nil {
			return err
		}
	}

	return nil
}

// Query names one key scoped to one partition.
type Query struct {
	Partition string
	Key       string
}

// Search resolves each query in order, accumulating values under a shared
// limit. A negative limit means unlimited; zero returns empty.
func (m *Map) Search(queries []Query, limit int) ([]string, error) {
	var values []string

	for _, q := range queries {
		remaining := limit
		if limit >= 0 {
			remaining = limit - len(values)
			if remaining <= 0 {
				break
			}
		}

		state, err := m.load(q.Partition)
		if err != nil {
			return nil, err
		}

		state.mu.RLock()
		found, err := state.segments.Find(q.Key, remaining)
		state.mu.RUnlock()
		if err != nil {
			return nil, err
		}

		values = append(values, found...)
	}

	return values, nil
}
