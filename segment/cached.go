// Package segment implements the immutable storage unit of the index: a
// sorted key table, a sorted value table, a (key, value) index pair list and
// a bloom filter over the keys. A segment lives either in memory (Cached)
// or as six binary files in its own directory (Disk).
package segment

import (
	"math"
	"math/bits"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/Priyanshu23/TieredIndexGo/entry"
)

// IndexPair references one key and one value by their positions in the
// segment's sorted tables.
type IndexPair struct {
	Key   uint32
	Value uint32
}

// Cached is an in-memory segment. Immutable once built.
type Cached struct {
	keys    []entry.Entry
	values  []entry.Entry
	entries []IndexPair
	bloom   *bloom.BloomFilter
}

// NewCached builds a segment from a batch of key to values mappings.
// Keys and values are deduplicated and sorted by their decoded text; the
// pair list is sorted by key index with ties broken on value index.
func NewCached(input map[string][]string) (*Cached, error) {
	if len(input) == 0 {
		return nil, ErrEmptySegment
	}

	keyTexts := make([]string, 0, len(input))
	valueSet := make(map[string]struct{})
	for key, values := range input {
		keyTexts = append(keyTexts, key)
		for _, value := range values {
			valueSet[value] = struct{}{}
		}
	}
	sort.Strings(keyTexts)

	valueTexts := make([]string, 0, len(valueSet))
	for value := range valueSet {
		valueTexts = append(valueTexts, value)
	}
	sort.Strings(valueTexts)

	filter := newKeyFilter(len(keyTexts))
	for _, key := range keyTexts {
		filter.Add([]byte(key))
	}

	pairs := make([]IndexPair, 0, len(valueSet))
	for key, values := range input {
		keyIndex := sort.SearchStrings(keyTexts, key)
		for _, value := range values {
			pairs = append(pairs, IndexPair{
				Key:   uint32(keyIndex),
				Value: uint32(sort.SearchStrings(valueTexts, value)),
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Key != pairs[j].Key {
			return pairs[i].Key < pairs[j].Key
		}
		return pairs[i].Value < pairs[j].Value
	})
	pairs = dedupPairs(pairs)

	return &Cached{
		keys:    encodeAll(keyTexts),
		values:  encodeAll(valueTexts),
		entries: pairs,
		bloom:   filter,
	}, nil
}

// newKeyFilter sizes a bloom filter at ceil(log2 n)*2+1 bits per element
// for n key groups.
func newKeyFilter(n int) *bloom.BloomFilter {
	perElement := ceilLog2(n)*2 + 1
	hashes := uint(math.Round(float64(perElement) * math.Ln2))
	if hashes < 1 {
		hashes = 1
	}

	return bloom.New(uint(n*perElement), hashes)
}

func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

func encodeAll(texts []string) []entry.Entry {
	entries := make([]entry.Entry, len(texts))
	for i, text := range texts {
		entries[i] = entry.Encode(text)
	}
	return entries
}

func dedupPairs(pairs []IndexPair) []IndexPair {
	out := pairs[:0]
	for _, p := range pairs {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Find returns every value indexed under key, ascending by decoded text.
func (c *Cached) Find(key string) ([]string, error) {
	keyIndex, found, err := searchEntries(c.keys, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	start := sort.Search(len(c.entries), func(i int) bool {
		return c.entries[i].Key >= uint32(keyIndex)
	})

	var values []string
	for _, pair := range c.entries[start:] {
		if pair.Key != uint32(keyIndex) {
			break
		}

		text, err := c.values[pair.Value].Decode()
		if err != nil {
			return nil, err
		}
		values = append(values, text)
	}

	return values, nil
}

// searchEntries binary-searches a sorted entry table by decoded text.
func searchEntries(entries []entry.Entry, text string) (int, bool, error) {
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)

		decoded, err := entries[mid].Decode()
		if err != nil {
			return 0, false, err
		}

		switch {
		case decoded < text:
			lo = mid + 1
		case decoded > text:
			hi = mid
		default:
			return mid, true, nil
		}
	}

	return lo, false, nil
}

// MightContain probes the segment's bloom filter.
func (c *Cached) MightContain(key string) bool {
	return c.bloom.Test([]byte(key))
}

func (c *Cached) KeyCount() int   { return len(c.keys) }
func (c *Cached) ValueCount() int { return len(c.values) }
func (c *Cached) EntryCount() int { return len(c.entries) }
