package partition

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tv42/zbase32"

	"github.com/Priyanshu23/TieredIndexGo/segmentmap"
)

func TestDirNameIsReversible(t *testing.T) {
	for _, name := range []string{"p1", "users/2024", "söme partition", "UPPER lower"} {
		dir := DirName(name)

		decoded, err := zbase32.DecodeString(dir)
		require.NoError(t, err)
		require.Equal(t, name, string(decoded))

		require.NotContains(t, dir, string(os.PathSeparator))
	}
}

func TestIndexAndSearchAcrossPartitions(t *testing.T) {
	m := New(t.TempDir())

	err := m.Index(map[string]map[string][]string{
		"p1": {"k": {"first"}},
	})
	require.NoError(t, err)

	err = m.Index(map[string]map[string][]string{
		"p2": {"k": {"second"}},
	})
	require.NoError(t, err)

	values, err := m.Search([]Query{
		{Partition: "p1", Key: "k"},
		{Partition: "p2", Key: "k"},
	}, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, values)
}

func TestSearchSharedLimit(t *testing.T) {
	m := New(t.TempDir())

	err := m.Index(map[string]map[string][]string{
		"p1": {"k": {"a", "b", "c"}},
		"p2": {"k": {"d", "e", "f"}},
	})
	require.NoError(t, err)

	values, err := m.Search([]Query{
		{Partition: "p1", Key: "k"},
		{Partition: "p2", Key: "k"},
	}, 4)
	require.NoError(t, err)
	require.Len(t, values, 4)
	require.Equal(t, []string{"a", "b", "c", "d"}, values)
}

func TestSearchZeroLimit(t *testing.T) {
	m := New(t.TempDir())

	err := m.Index(map[string]map[string][]string{"p1": {"k": {"v"}}})
	require.NoError(t, err)

	values, err := m.Search([]Query{{Partition: "p1", Key: "k"}}, 0)
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestSearchMissingPartitionCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	m := New(root)

	values, err := m.Search([]Query{{Partition: "ghost", Key: "k"}}, -1)
	require.NoError(t, err)
	require.Empty(t, values)

	_, err = os.Stat(filepath.Join(root, DirName("ghost")))
	require.NoError(t, err)
}

func TestRestartKeepsSpilledSegments(t *testing.T) {
	root := t.TempDir()
	m := New(root)

	values := make([]string, segmentmap.SpillThreshold+1)
	for i := range values {
		values[i] = fmt.Sprintf("val%d", i)
	}

	err := m.Index(map[string]map[string][]string{"p1": {"bigkey": values}})
	require.NoError(t, err)

	before, err := m.Search([]Query{{Partition: "p1", Key: "bigkey"}}, -1)
	require.NoError(t, err)
	require.Len(t, before, len(values))

	// A fresh Map over the same root sees the sealed segments.
	restarted := New(root)
	after, err := restarted.Search([]Query{{Partition: "p1", Key: "bigkey"}}, -1)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestMemoryTierVisibleAcrossRequests(t *testing.T) {
	m := New(t.TempDir())

	err := m.Index(map[string]map[string][]string{"p1": {"k": {"v"}}})
	require.NoError(t, err)

	// A second, separate request against the same Map must observe the
	// memory-tier insert.
	values, err := m.Search([]Query{{Partition: "p1", Key: "k"}}, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"v"}, values)
}
