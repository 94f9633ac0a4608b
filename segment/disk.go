package segment

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/Priyanshu23/TieredIndexGo/entry"
	"github.com/Priyanshu23/TieredIndexGo/fsio"
)

// Disk is a sealed on-disk segment. It holds only the directory path; files
// are opened per lookup and validated lazily.
type Disk struct {
	fs  fsio.FS
	dir string
}

// OpenDisk binds a disk segment to its directory. No content validation
// happens here.
func OpenDisk(fsys fsio.FS, dir string) *Disk {
	return &Disk{fs: fsys, dir: dir}
}

// Dir returns the segment's directory path.
func (d *Disk) Dir() string { return d.dir }

// Find resolves every value indexed under key. The probe order is bloom
// gate, key-table binary search, entries binary search plus run scan, then
// value dereference. Locating the key and the start of its entries run
// takes O(log n) record reads; the run scan and value dereference then add
// reads proportional to the number of matched values.
func (d *Disk) Find(key string) ([]string, error) {
	contains, err := d.mightContain(key)
	if err != nil {
		return nil, err
	}
	if !contains {
		return nil, nil
	}

	keys, err := d.openTable(keysPrefix)
	if err != nil {
		return nil, err
	}
	keyIndex, found, err := keys.search(key)
	keys.close()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	valueIndexes, err := d.entriesForKey(keyIndex)
	if err != nil {
		return nil, err
	}
	if len(valueIndexes) == 0 {
		return nil, nil
	}

	values, err := d.openTable(valuesPrefix)
	if err != nil {
		return nil, err
	}
	defer values.close()

	out := make([]string, 0, len(valueIndexes))
	for _, valueIndex := range valueIndexes {
		text, err := values.textAt(valueIndex)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}

	return out, nil
}

func (d *Disk) mightContain(key string) (bool, error) {
	name := filepath.Join(d.dir, bloomFile)
	file, err := d.fs.Open(name)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	filter := &bloom.BloomFilter{}
	if _, err := filter.ReadFrom(bufio.NewReader(file)); err != nil {
		return false, fmt.Errorf("read %s: %w", name, ErrBloomLoad)
	}

	return filter.Test([]byte(key)), nil
}

// diskTable pairs a data file with its offset lookup file.
type diskTable struct {
	data   fsio.File
	lookup fsio.File
	count  uint32
}

func (d *Disk) openTable(prefix string) (*diskTable, error) {
	lookupName := filepath.Join(d.dir, prefix+".lookup.bin")

	info, err := d.fs.Stat(lookupName)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", lookupName, err)
	}
	if info.Size()%8 != 0 {
		return nil, fmt.Errorf("%s: %w", lookupName, ErrLookupInvalidSize)
	}

	lookup, err := d.fs.Open(lookupName)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", lookupName, err)
	}

	dataName := filepath.Join(d.dir, prefix+".data.bin")
	data, err := d.fs.Open(dataName)
	if err != nil {
		lookup.Close()
		return nil, fmt.Errorf("open %s: %w", dataName, err)
	}

	return &diskTable{data: data, lookup: lookup, count: uint32(info.Size() / 8)}, nil
}

func (t *diskTable) close() {
	t.data.Close()
	t.lookup.Close()
}

func (t *diskTable) offsetAt(index uint32) (uint64, error) {
	if index >= t.count {
		return 0, ErrLookupInvalidSize
	}
	if _, err := t.lookup.Seek(int64(index)*8, io.SeekStart); err != nil {
		return 0, err
	}

	var buf [8]byte
	if _, err := io.ReadFull(t.lookup, buf[:]); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint64(buf[:]), nil
}

func (t *diskTable) textAt(index uint32) (string, error) {
	offset, err := t.offsetAt(index)
	if err != nil {
		return "", err
	}
	return readRecord(t.data, offset)
}

// search binary-searches the table by decoded record text over [0, count).
func (t *diskTable) search(key string) (uint32, bool, error) {
	lo, hi := uint32(0), t.count
	for lo < hi {
		mid := lo + (hi-lo)/2

		text, err := t.textAt(mid)
		if err != nil {
			return 0, false, err
		}

		switch {
		case text < key:
			lo = mid + 1
		case text > key:
			hi = mid
		default:
			return mid, true, nil
		}
	}

	return 0, false, nil
}

// readRecord decodes the record whose header starts at offset.
func readRecord(data fsio.File, offset uint64) (string, error) {
	if _, err := data.Seek(int64(offset), io.SeekStart); err != nil {
		return "", err
	}

	var header [4]byte
	if _, err := io.ReadFull(data, header[:]); err != nil {
		return "", fmt.Errorf("record header at %d: %w", offset, ErrDataInvalidSize)
	}

	lengthAndFlag := binary.BigEndian.Uint32(header[:])
	compressed := lengthAndFlag&compressedFlag != 0
	length := lengthAndFlag &^ compressedFlag

	payload := make([]byte, length)
	if _, err := io.ReadFull(data, payload); err != nil {
		return "", fmt.Errorf("record payload at %d: %w", offset, ErrDataInvalidSize)
	}

	return entry.Raw(payload, compressed).Decode()
}

// entriesForKey locates the run of index pairs for keyIndex in entries.bin.
// A binary search lands somewhere inside the run; the start is found by
// walking back one record at a time, then the run is scanned forward until
// the key index changes or the file ends.
func (d *Disk) entriesForKey(keyIndex uint32) ([]uint32, error) {
	name := filepath.Join(d.dir, entriesFile)

	info, err := d.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.Size()%8 != 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrLookupInvalidSize)
	}
	count := uint32(info.Size() / 8)

	file, err := d.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	keyAt := func(index uint32) (uint32, error) {
		if _, err := file.Seek(int64(index)*8, io.SeekStart); err != nil {
			return 0, err
		}
		var buf [4]byte
		if _, err := io.ReadFull(file, buf[:]); err != nil {
			return 0, fmt.Errorf("entry at %d: %w", index, ErrDataInvalidSize)
		}
		return binary.BigEndian.Uint32(buf[:]), nil
	}

	lo, hi := uint32(0), count
	var start uint32
	found := false
	for lo < hi {
		mid := lo + (hi-lo)/2

		k, err := keyAt(mid)
		if err != nil {
			return nil, err
		}

		switch {
		case k < keyIndex:
			lo = mid + 1
		case k > keyIndex:
			hi = mid
		default:
			start = mid
			found = true
		}
		if found {
			break
		}
	}
	if !found {
		return nil, nil
	}

	for start > 0 {
		k, err := keyAt(start - 1)
		if err != nil {
			return nil, err
		}
		if k != keyIndex {
			break
		}
		start--
	}

	if _, err := file.Seek(int64(start)*8, io.SeekStart); err != nil {
		return nil, err
	}

	var valueIndexes []uint32
	r := bufio.NewReader(file)
	for {
		var pair [8]byte
		if _, err := io.ReadFull(r, pair[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read %s: %w", name, ErrDataInvalidSize)
		}

		if binary.BigEndian.Uint32(pair[:4]) != keyIndex {
			break
		}
		valueIndexes = append(valueIndexes, binary.BigEndian.Uint32(pair[4:]))
	}

	return valueIndexes, nil
}
